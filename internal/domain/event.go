package domain

import (
	"fmt"
	"strings"
	"time"
)

// Field limits enforced before any lock is taken.
const (
	MinCapacity          = 2
	MaxCapacity          = 10
	MaxTitleLength       = 140
	MaxDescriptionLength = 2000
)

// Event is the capacity-limited gathering aggregate. ParticipantCount is a
// cached denormalization of the membership set; it is mutated only through
// the store's serialized join/leave paths.
type Event struct {
	ID               string
	OrganizerID      string
	Title            string
	Description      string
	Activity         Activity
	FitnessLevel     FitnessLevel
	StartsAt         time.Time
	Capacity         int
	ParticipantCount int
	Lat              float64
	Lng              float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Membership records attendance of a user at an event. The (event, user)
// pair is unique and rows are never updated in place.
type Membership struct {
	EventID  string
	UserID   string
	JoinedAt time.Time
}

// Candidate is an event summary returned by the geo search, annotated with
// the geodesic distance to the search center in meters.
type Candidate struct {
	ID               string
	Title            string
	Activity         Activity
	FitnessLevel     FitnessLevel
	StartsAt         time.Time
	Capacity         int
	ParticipantCount int
	DistanceMeters   float64
	Lat              float64
	Lng              float64
}

// Profile is the read-only view of a user resolved from the user service.
type Profile struct {
	ID                string
	FitnessLevel      FitnessLevel
	ActivityInterests []Activity
	Lat               float64
	Lng               float64
	SearchRadiusKm    int
	ProfileCompleted  bool
}

// SearchRadiusMeters converts the profile's configured radius into the unit
// the geo candidate source and the scorer share.
func (p Profile) SearchRadiusMeters() float64 {
	return float64(p.SearchRadiusKm) * 1000.0
}

// CreateEventInput carries validated attributes for a new event.
type CreateEventInput struct {
	Title        string
	Description  string
	Activity     Activity
	FitnessLevel FitnessLevel
	StartsAt     time.Time
	Capacity     int
	Lat          float64
	Lng          float64
}

// Validate enforces field constraints.
func (in CreateEventInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return Invalid("title is required")
	}
	if len(in.Title) > MaxTitleLength {
		return Invalid(fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if len(in.Description) > MaxDescriptionLength {
		return Invalid(fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}
	if !in.Activity.Known() {
		return Invalid(fmt.Sprintf("unknown activity type: %s", in.Activity))
	}
	if !in.FitnessLevel.Known() {
		return Invalid(fmt.Sprintf("unknown fitness level: %s", in.FitnessLevel))
	}
	if in.StartsAt.IsZero() {
		return Invalid("starts_at is required")
	}
	if in.Capacity < MinCapacity || in.Capacity > MaxCapacity {
		return Invalid(fmt.Sprintf("capacity must be between %d and %d", MinCapacity, MaxCapacity))
	}
	if in.Lat < -90.0 || in.Lat > 90.0 {
		return Invalid("latitude must be between -90 and 90")
	}
	if in.Lng < -180.0 || in.Lng > 180.0 {
		return Invalid("longitude must be between -180 and 180")
	}
	return nil
}
