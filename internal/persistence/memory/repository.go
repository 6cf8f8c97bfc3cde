// Package memory provides an in-memory EventStore for local development and
// tests. Per-event serialization uses an exclusive lock token keyed by event
// id, acquired with a bounded, context-aware wait.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dogukanozdemir/Fitmatch/internal/domain"
	"github.com/dogukanozdemir/Fitmatch/internal/observability"
)

const defaultLockTimeout = 5 * time.Second

// Repository stores events and memberships in process memory.
type Repository struct {
	mu          sync.Mutex
	events      map[string]*domain.Event
	members     map[string]map[string]domain.Membership
	locks       map[string]chan struct{}
	lockTimeout time.Duration
}

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{
		events:      make(map[string]*domain.Event),
		members:     make(map[string]map[string]domain.Membership),
		locks:       make(map[string]chan struct{}),
		lockTimeout: defaultLockTimeout,
	}
}

// acquireEventLock takes the exclusive token for the event id. Different
// events never contend. The wait is bounded by the configured timeout and
// the caller's context.
func (r *Repository) acquireEventLock(ctx context.Context, eventID string) (func(), error) {
	r.mu.Lock()
	token, ok := r.locks[eventID]
	if !ok {
		token = make(chan struct{}, 1)
		r.locks[eventID] = token
	}
	r.mu.Unlock()

	start := time.Now()
	timer := time.NewTimer(r.lockTimeout)
	defer timer.Stop()

	select {
	case token <- struct{}{}:
		observability.RecordLockWait(time.Since(start))
		return func() { <-token }, nil
	case <-ctx.Done():
		return nil, domain.Internal("cancelled while waiting for event lock", ctx.Err())
	case <-timer.C:
		return nil, domain.Internal("timed out waiting for event lock", nil)
	}
}

// Create stores the event with its organizer membership.
func (r *Repository) Create(ctx context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := ev
	r.events[ev.ID] = &copied
	r.members[ev.ID] = map[string]domain.Membership{
		ev.OrganizerID: {EventID: ev.ID, UserID: ev.OrganizerID, JoinedAt: ev.CreatedAt},
	}
	return nil
}

// Get returns a snapshot of the event, or nil when absent.
func (r *Repository) Get(ctx context.Context, eventID string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[eventID]
	if !ok {
		return nil, nil
	}
	copied := *ev
	return &copied, nil
}

// Join admits the user under the event's exclusive lock. The membership
// write and the count increment happen under the same held token, so no two
// concurrent joins can both observe a free slot when only one remains.
func (r *Repository) Join(ctx context.Context, eventID, userID string, now time.Time) (*domain.Event, error) {
	release, err := r.acquireEventLock(ctx, eventID)
	if err != nil {
		observability.RecordJoin(observability.JoinError)
		return nil, err
	}
	defer release()

	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[eventID]
	if !ok {
		observability.RecordJoin(observability.JoinRejected)
		return nil, domain.NotFound("event not found")
	}

	_, alreadyMember := r.members[eventID][userID]
	if err := domain.CheckJoin(*ev, alreadyMember, now); err != nil {
		observability.RecordJoin(observability.JoinRejected)
		return nil, err
	}

	r.members[eventID][userID] = domain.Membership{EventID: eventID, UserID: userID, JoinedAt: now}
	ev.ParticipantCount++
	ev.UpdatedAt = now

	observability.RecordJoin(observability.JoinAdmitted)
	copied := *ev
	return &copied, nil
}

// Leave removes the membership under the same per-event lock as Join so the
// cached count tracks membership cardinality exactly.
func (r *Repository) Leave(ctx context.Context, eventID, userID string, now time.Time) (*domain.Event, error) {
	release, err := r.acquireEventLock(ctx, eventID)
	if err != nil {
		return nil, err
	}
	defer release()

	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[eventID]
	if !ok {
		return nil, domain.NotFound("event not found")
	}

	_, isMember := r.members[eventID][userID]
	if err := domain.CheckLeave(*ev, userID, isMember); err != nil {
		return nil, err
	}

	delete(r.members[eventID], userID)
	if ev.ParticipantCount > 0 {
		ev.ParticipantCount--
	}
	ev.UpdatedAt = now

	copied := *ev
	return &copied, nil
}

// Delete removes the event and cascades membership removal.
func (r *Repository) Delete(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[eventID]; !ok {
		return domain.NotFound("event not found")
	}
	delete(r.events, eventID)
	delete(r.members, eventID)
	delete(r.locks, eventID)
	return nil
}

// FindNearby returns candidates within radiusMeters of the center, distance
// ascending.
func (r *Repository) FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]domain.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidates := make([]domain.Candidate, 0)
	for _, ev := range r.events {
		distance := haversineMeters(lat, lng, ev.Lat, ev.Lng)
		if distance > radiusMeters {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			ID:               ev.ID,
			Title:            ev.Title,
			Activity:         ev.Activity,
			FitnessLevel:     ev.FitnessLevel,
			StartsAt:         ev.StartsAt,
			Capacity:         ev.Capacity,
			ParticipantCount: ev.ParticipantCount,
			DistanceMeters:   distance,
			Lat:              ev.Lat,
			Lng:              ev.Lng,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DistanceMeters < candidates[j].DistanceMeters
	})
	return candidates, nil
}

// MembershipCount reports the live cardinality of an event's membership
// set. Tests use it to assert count consistency.
func (r *Repository) MembershipCount(eventID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members[eventID])
}

const earthRadiusMeters = 6371000.0

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180.0
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
