// Package events defines shared cross-service event payloads.
package events

import "time"

// EventCreated is emitted when an organizer publishes a new event.
type EventCreated struct {
	EventID          string    `json:"event_id"`
	OrganizerID      string    `json:"organizer_id"`
	Title            string    `json:"title"`
	Activity         string    `json:"activity"`
	FitnessLevel     string    `json:"fitness_level"`
	StartsAt         time.Time `json:"starts_at"`
	Capacity         int       `json:"capacity"`
	ParticipantCount int       `json:"participant_count"`
}

// EventDeleted is emitted when an organizer removes an event; memberships are
// cascaded away with it.
type EventDeleted struct {
	EventID     string    `json:"event_id"`
	OrganizerID string    `json:"organizer_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// MemberJoined tracks a successful join, carrying the committed count so
// downstream consumers never have to re-derive it.
type MemberJoined struct {
	EventID          string    `json:"event_id"`
	UserID           string    `json:"user_id"`
	ParticipantCount int       `json:"participant_count"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// MemberLeft tracks a successful leave.
type MemberLeft struct {
	EventID          string    `json:"event_id"`
	UserID           string    `json:"user_id"`
	ParticipantCount int       `json:"participant_count"`
	OccurredAt       time.Time `json:"occurred_at"`
}
