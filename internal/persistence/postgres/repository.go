// Package postgres provides pgx-backed persistence for events, memberships,
// and outbox rows.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dogukanozdemir/Fitmatch/internal/domain"
	"github.com/dogukanozdemir/Fitmatch/internal/observability"
	platformevents "github.com/dogukanozdemir/Fitmatch/pkg/events"
)

// lockNotAvailable is the Postgres error code raised when lock_timeout
// expires while waiting on the event row lock.
const lockNotAvailable = "55P03"

// Repository persists events in Postgres. Per-event serialization is the
// row-level write lock taken by SELECT ... FOR UPDATE; the membership write
// and count update commit in the same transaction or not at all.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository constructs a Repository. lockTimeout bounds how long Join
// and Leave wait for the event row lock.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

const eventColumns = `event_id, organizer_id, title, description, activity, fitness_level,
        starts_at, capacity, participant_count, ST_Y(location), ST_X(location), created_at, updated_at`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var ev domain.Event
	err := row.Scan(&ev.ID, &ev.OrganizerID, &ev.Title, &ev.Description, &ev.Activity, &ev.FitnessLevel,
		&ev.StartsAt, &ev.Capacity, &ev.ParticipantCount, &ev.Lat, &ev.Lng, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Create persists the event with its organizer membership and an outbox row
// inside a single transaction.
func (r *Repository) Create(ctx context.Context, ev domain.Event) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Internal("failed to open transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const insertEvent = `INSERT INTO events (event_id, organizer_id, title, description, activity, fitness_level,
            starts_at, capacity, participant_count, location, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, ST_SetSRID(ST_MakePoint($10,$11),4326), $12,$13)`

	_, err = tx.Exec(ctx, insertEvent,
		ev.ID, ev.OrganizerID, ev.Title, ev.Description, ev.Activity, ev.FitnessLevel,
		ev.StartsAt, ev.Capacity, ev.ParticipantCount, ev.Lng, ev.Lat, ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		return domain.Internal("failed to insert event", err)
	}

	const insertMembership = `INSERT INTO event_participants (event_id, user_id, joined_at) VALUES ($1,$2,$3)`
	if _, err = tx.Exec(ctx, insertMembership, ev.ID, ev.OrganizerID, ev.CreatedAt); err != nil {
		return domain.Internal("failed to insert organizer membership", err)
	}

	if err = insertOutbox(ctx, tx, ev.ID, "event.created", platformevents.EventCreated{
		EventID:          ev.ID,
		OrganizerID:      ev.OrganizerID,
		Title:            ev.Title,
		Activity:         string(ev.Activity),
		FitnessLevel:     string(ev.FitnessLevel),
		StartsAt:         ev.StartsAt,
		Capacity:         ev.Capacity,
		ParticipantCount: ev.ParticipantCount,
	}, fmt.Sprintf("%s:event.created", ev.ID)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.Internal("failed to commit event", err)
	}
	return nil
}

// Get retrieves an event snapshot, or nil when absent.
func (r *Repository) Get(ctx context.Context, eventID string) (*domain.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE event_id=$1`, eventColumns)

	ev, err := scanEvent(r.pool.QueryRow(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal("failed to load event", err)
	}
	return ev, nil
}

// Join admits a user under the event's row lock. The capacity check, the
// membership insert, and the count increment see and mutate the same locked
// row; concurrent joins on the same event serialize on the lock.
func (r *Repository) Join(ctx context.Context, eventID, userID string, now time.Time) (*domain.Event, error) {
	ev, err := r.joinLocked(ctx, eventID, userID, now)
	switch {
	case err == nil:
		observability.RecordJoin(observability.JoinAdmitted)
	case domain.IsInvalid(err) || domain.IsNotFound(err):
		observability.RecordJoin(observability.JoinRejected)
	default:
		observability.RecordJoin(observability.JoinError)
	}
	return ev, err
}

func (r *Repository) joinLocked(ctx context.Context, eventID, userID string, now time.Time) (*domain.Event, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, domain.Internal("failed to open transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ev, err := r.lockEvent(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	var alreadyMember bool
	const memberExists = `SELECT EXISTS (SELECT 1 FROM event_participants WHERE event_id=$1 AND user_id=$2)`
	if err = tx.QueryRow(ctx, memberExists, eventID, userID).Scan(&alreadyMember); err != nil {
		return nil, domain.Internal("failed to check membership", err)
	}

	if err = domain.CheckJoin(*ev, alreadyMember, now); err != nil {
		return nil, err
	}

	const insertMembership = `INSERT INTO event_participants (event_id, user_id, joined_at) VALUES ($1,$2,$3)`
	if _, err = tx.Exec(ctx, insertMembership, eventID, userID, now); err != nil {
		return nil, domain.Internal("failed to insert membership", err)
	}

	const bumpCount = `UPDATE events SET participant_count = participant_count + 1, updated_at = $2
        WHERE event_id = $1 RETURNING participant_count`
	if err = tx.QueryRow(ctx, bumpCount, eventID, now).Scan(&ev.ParticipantCount); err != nil {
		return nil, domain.Internal("failed to update participant count", err)
	}
	ev.UpdatedAt = now

	if err = insertOutbox(ctx, tx, eventID, "event.member_joined", platformevents.MemberJoined{
		EventID:          eventID,
		UserID:           userID,
		ParticipantCount: ev.ParticipantCount,
		OccurredAt:       now,
	}, fmt.Sprintf("%s:event.member_joined:%s:%d", eventID, userID, now.UnixNano())); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, domain.Internal("failed to commit join", err)
	}
	return ev, nil
}

// Leave removes a membership under the same row lock as Join so the cached
// count never diverges from membership cardinality.
func (r *Repository) Leave(ctx context.Context, eventID, userID string, now time.Time) (*domain.Event, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, domain.Internal("failed to open transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ev, err := r.lockEvent(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	var isMember bool
	const memberExists = `SELECT EXISTS (SELECT 1 FROM event_participants WHERE event_id=$1 AND user_id=$2)`
	if err = tx.QueryRow(ctx, memberExists, eventID, userID).Scan(&isMember); err != nil {
		return nil, domain.Internal("failed to check membership", err)
	}

	if err = domain.CheckLeave(*ev, userID, isMember); err != nil {
		return nil, err
	}

	const deleteMembership = `DELETE FROM event_participants WHERE event_id=$1 AND user_id=$2`
	if _, err = tx.Exec(ctx, deleteMembership, eventID, userID); err != nil {
		return nil, domain.Internal("failed to delete membership", err)
	}

	const dropCount = `UPDATE events SET participant_count = GREATEST(participant_count - 1, 0), updated_at = $2
        WHERE event_id = $1 RETURNING participant_count`
	if err = tx.QueryRow(ctx, dropCount, eventID, now).Scan(&ev.ParticipantCount); err != nil {
		return nil, domain.Internal("failed to update participant count", err)
	}
	ev.UpdatedAt = now

	if err = insertOutbox(ctx, tx, eventID, "event.member_left", platformevents.MemberLeft{
		EventID:          eventID,
		UserID:           userID,
		ParticipantCount: ev.ParticipantCount,
		OccurredAt:       now,
	}, fmt.Sprintf("%s:event.member_left:%s:%d", eventID, userID, now.UnixNano())); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, domain.Internal("failed to commit leave", err)
	}
	return ev, nil
}

// lockEvent takes the row-level write lock with a bounded wait and returns
// the locked snapshot.
func (r *Repository) lockEvent(ctx context.Context, tx pgx.Tx, eventID string) (*domain.Event, error) {
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return nil, domain.Internal("failed to bound lock wait", err)
	}

	start := time.Now()
	query := fmt.Sprintf(`SELECT %s FROM events WHERE event_id=$1 FOR UPDATE`, eventColumns)
	ev, err := scanEvent(tx.QueryRow(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("event not found")
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable {
			return nil, domain.Internal("timed out waiting for event lock", err)
		}
		return nil, domain.Internal("failed to lock event", err)
	}
	observability.RecordLockWait(time.Since(start))
	return ev, nil
}

// Delete removes the event, cascading membership rows, and records the
// deletion in the outbox.
func (r *Repository) Delete(ctx context.Context, eventID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Internal("failed to open transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var organizerID string
	if err = tx.QueryRow(ctx, `DELETE FROM events WHERE event_id=$1 RETURNING organizer_id`, eventID).Scan(&organizerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFound("event not found")
		}
		return domain.Internal("failed to delete event", err)
	}

	if err = insertOutbox(ctx, tx, eventID, "event.deleted", platformevents.EventDeleted{
		EventID:     eventID,
		OrganizerID: organizerID,
		OccurredAt:  time.Now().UTC(),
	}, fmt.Sprintf("%s:event.deleted", eventID)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.Internal("failed to commit delete", err)
	}
	return nil
}

// FindNearby returns candidate events within radiusMeters of the center,
// annotated with geodesic distance and ordered by distance ascending.
func (r *Repository) FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]domain.Candidate, error) {
	const query = `SELECT event_id,
	       title,
	       activity,
	       fitness_level,
	       starts_at,
	       capacity,
	       participant_count,
	       ST_Distance(
	         location::geography,
	         ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography
	       ) AS distance,
	       ST_Y(location) AS lat,
	       ST_X(location) AS lng
	FROM events
	WHERE ST_DWithin(
	        location::geography,
	        ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography,
	        $3
	      )
	ORDER BY distance ASC`

	rows, err := r.pool.Query(ctx, query, lat, lng, radiusMeters)
	if err != nil {
		return nil, domain.Internal("nearby search failed", err)
	}
	defer rows.Close()

	candidates := make([]domain.Candidate, 0)
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.Title, &c.Activity, &c.FitnessLevel, &c.StartsAt,
			&c.Capacity, &c.ParticipantCount, &c.DistanceMeters, &c.Lat, &c.Lng); err != nil {
			return nil, domain.Internal("failed to scan candidate", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("nearby search failed", err)
	}
	return candidates, nil
}

// EventMetadata describes how to route an outbox message.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	"event.created":       {Topic: "event_lifecycle", SchemaSubject: "event_lifecycle-value"},
	"event.deleted":       {Topic: "event_lifecycle", SchemaSubject: "event_lifecycle-value"},
	"event.member_joined": {Topic: "event_membership", SchemaSubject: "event_membership-value"},
	"event.member_left":   {Topic: "event_membership", SchemaSubject: "event_membership-value"},
}

func insertOutbox(ctx context.Context, tx pgx.Tx, eventID, eventType string, payload interface{}, dedupeKey string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Internal("failed to encode outbox payload", err)
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return domain.Internal(fmt.Sprintf("unknown event type: %s", eventType), nil)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	if _, err := tx.Exec(ctx, stmt, "event", eventID, eventType, meta.Topic, meta.SchemaSubject, eventID, body, dedupeKey); err != nil {
		return domain.Internal("failed to record outbox message", err)
	}
	return nil
}
