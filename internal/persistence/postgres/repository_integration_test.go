//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dogukanozdemir/Fitmatch/internal/domain"
)

func newTestPool(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.Run(ctx, "postgis/postgis:16-3.4",
		postgrescontainer.WithDatabase("fitmatch"),
		postgrescontainer.WithUsername("fitmatch"),
		postgrescontainer.WithPassword("fitmatch"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func testEvent(organizerID string, capacity int) domain.Event {
	now := time.Now().UTC()
	return domain.Event{
		ID:               uuid.NewString(),
		OrganizerID:      organizerID,
		Title:            "Evening run",
		Activity:         domain.ActivityRunning,
		FitnessLevel:     domain.FitnessIntermediate,
		StartsAt:         now.Add(24 * time.Hour),
		Capacity:         capacity,
		ParticipantCount: 1,
		Lat:              41.0,
		Lng:              29.0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestRepositoryConcurrentJoinsNeverOverbook(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t, ctx)
	repo := NewRepository(pool, 5*time.Second)

	ev := testEvent(uuid.NewString(), 3)
	require.NoError(t, repo.Create(ctx, ev))

	const contenders = 10
	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, results[slot] = repo.Join(ctx, ev.ID, uuid.NewString(), time.Now().UTC())
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range results {
		if err == nil {
			admitted++
			continue
		}
		require.True(t, domain.IsInvalid(err), "unexpected join error: %v", err)
	}
	require.Equal(t, ev.Capacity-1, admitted, "exactly capacity-1 joins should succeed beyond the organizer")

	stored, err := repo.Get(ctx, ev.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, ev.Capacity, stored.ParticipantCount)

	var members int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM event_participants WHERE event_id = $1`, ev.ID).Scan(&members))
	require.Equal(t, stored.ParticipantCount, members, "cached count must equal membership cardinality")
}

func TestRepositoryLeaveAndRejoin(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t, ctx)
	repo := NewRepository(pool, 5*time.Second)

	ev := testEvent(uuid.NewString(), 4)
	require.NoError(t, repo.Create(ctx, ev))

	userID := uuid.NewString()
	joined, err := repo.Join(ctx, ev.ID, userID, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 2, joined.ParticipantCount)

	left, err := repo.Leave(ctx, ev.ID, userID, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 1, left.ParticipantCount)

	_, err = repo.Leave(ctx, ev.ID, userID, time.Now().UTC())
	require.True(t, domain.IsNotFound(err), "second leave should report missing membership")

	rejoined, err := repo.Join(ctx, ev.ID, userID, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 2, rejoined.ParticipantCount)

	var outboxRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE aggregate_id = $1`, ev.ID).Scan(&outboxRows))
	require.Equal(t, 4, outboxRows, "created + joined + left + rejoined outbox messages")
}

func TestRepositoryFindNearbyFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t, ctx)
	repo := NewRepository(pool, 5*time.Second)

	center := testEvent(uuid.NewString(), 4)
	center.Lat, center.Lng = 41.0, 29.0

	near := testEvent(uuid.NewString(), 4)
	near.Lat, near.Lng = 41.01, 29.0 // roughly 1.1 km north

	far := testEvent(uuid.NewString(), 4)
	far.Lat, far.Lng = 42.0, 29.0 // far outside a 5 km radius

	for _, ev := range []domain.Event{center, near, far} {
		require.NoError(t, repo.Create(ctx, ev))
	}

	candidates, err := repo.FindNearby(ctx, 41.0, 29.0, 5000)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, center.ID, candidates[0].ID)
	require.Equal(t, near.ID, candidates[1].ID)
	require.InDelta(t, 1113, candidates[1].DistanceMeters, 60)
}

func TestRepositoryDeleteCascades(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t, ctx)
	repo := NewRepository(pool, 5*time.Second)

	ev := testEvent(uuid.NewString(), 4)
	require.NoError(t, repo.Create(ctx, ev))

	_, err := repo.Join(ctx, ev.ID, uuid.NewString(), time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, ev.ID))

	stored, err := repo.Get(ctx, ev.ID)
	require.NoError(t, err)
	require.Nil(t, stored)

	var members int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM event_participants WHERE event_id = $1`, ev.ID).Scan(&members))
	require.Zero(t, members)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
