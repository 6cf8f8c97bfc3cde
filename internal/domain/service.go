// Package domain holds the capacity-coordination and ranking core for
// fitmatch events.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventStore captures persistence operations for events and memberships.
// Join and Leave serialize per event: implementations acquire an exclusive
// lock keyed by the event id, evaluate CheckJoin/CheckLeave against the
// locked row, and commit the membership write together with the count
// update, or not at all. Lock waits are bounded; a timed-out wait surfaces
// as an internal, retryable error.
type EventStore interface {
	Create(ctx context.Context, ev Event) error
	Get(ctx context.Context, eventID string) (*Event, error)
	Join(ctx context.Context, eventID, userID string, now time.Time) (*Event, error)
	Leave(ctx context.Context, eventID, userID string, now time.Time) (*Event, error)
	Delete(ctx context.Context, eventID string) error
	FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]Candidate, error)
}

// ProfileDirectory resolves user ids to profiles via the user service.
type ProfileDirectory interface {
	GetByID(ctx context.Context, userID string) (*Profile, error)
}

// Service orchestrates event workflows. The caller identity is an explicit
// parameter on every operation.
type Service struct {
	store EventStore
	users ProfileDirectory
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store EventStore, users ProfileDirectory) *Service {
	return &Service{store: store, users: users, now: time.Now}
}

// CreateEvent validates the input and persists a new event with the
// organizer pre-joined, so the count starts at 1 and the organizer
// invariant holds from the first committed state.
func (s *Service) CreateEvent(ctx context.Context, organizerID string, in CreateEventInput) (*Event, error) {
	if organizerID == "" {
		return nil, Unauthenticated("no authenticated user")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ev := Event{
		ID:               uuid.NewString(),
		OrganizerID:      organizerID,
		Title:            in.Title,
		Description:      in.Description,
		Activity:         in.Activity,
		FitnessLevel:     in.FitnessLevel,
		StartsAt:         in.StartsAt.UTC(),
		Capacity:         in.Capacity,
		ParticipantCount: 1,
		Lat:              in.Lat,
		Lng:              in.Lng,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.Create(ctx, ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// GetEvent returns the current snapshot of an event.
func (s *Service) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	ev, err := s.store.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, NotFound("event not found")
	}
	return ev, nil
}

// JoinEvent admits the user into the event under the store's per-event
// serialization and returns the updated snapshot.
func (s *Service) JoinEvent(ctx context.Context, eventID, userID string) (*Event, error) {
	if userID == "" {
		return nil, Unauthenticated("no authenticated user")
	}
	return s.store.Join(ctx, eventID, userID, s.now().UTC())
}

// LeaveEvent removes the user's membership and decrements the count.
func (s *Service) LeaveEvent(ctx context.Context, eventID, userID string) (*Event, error) {
	if userID == "" {
		return nil, Unauthenticated("no authenticated user")
	}
	return s.store.Leave(ctx, eventID, userID, s.now().UTC())
}

// DeleteEvent removes the event and cascades membership removal. Only the
// organizer may delete.
func (s *Service) DeleteEvent(ctx context.Context, eventID, requesterID string) error {
	if requesterID == "" {
		return Unauthenticated("no authenticated user")
	}

	ev, err := s.store.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if ev == nil {
		return NotFound("event not found")
	}
	if ev.OrganizerID != requesterID {
		return Invalid("only the event organizer can delete this event")
	}
	return s.store.Delete(ctx, eventID)
}
