package domain

import (
	"context"
	"sort"
)

// RankedEvent pairs a candidate with its computed compatibility score.
type RankedEvent struct {
	Event              Candidate
	CompatibilityScore float64
}

// NearbyEvents resolves the caller's profile, retrieves candidates within
// the profile's search radius, scores each one, and returns the full list
// in deterministic rank order.
func (s *Service) NearbyEvents(ctx context.Context, userID string) ([]RankedEvent, error) {
	if userID == "" {
		return nil, Unauthenticated("no authenticated user")
	}

	profile, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, NotFound("user not found")
	}
	if !profile.ProfileCompleted {
		return nil, Invalid("user profile not completed")
	}

	radiusMeters := profile.SearchRadiusMeters()
	candidates, err := s.store.FindNearby(ctx, profile.Lat, profile.Lng, radiusMeters)
	if err != nil {
		return nil, err
	}

	return rank(candidates, profile.FitnessLevel, profile.ActivityInterests, radiusMeters), nil
}

// rank scores and orders candidates: score descending, then participant
// count descending (events filling up rank higher), then distance
// ascending.
func rank(candidates []Candidate, userFitness FitnessLevel, interests []Activity, radiusMeters float64) []RankedEvent {
	ranked := make([]RankedEvent, 0, len(candidates))
	for _, candidate := range candidates {
		ranked = append(ranked, RankedEvent{
			Event:              candidate,
			CompatibilityScore: Score(candidate, userFitness, interests, radiusMeters),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.CompatibilityScore != b.CompatibilityScore {
			return a.CompatibilityScore > b.CompatibilityScore
		}
		if a.Event.ParticipantCount != b.Event.ParticipantCount {
			return a.Event.ParticipantCount > b.Event.ParticipantCount
		}
		return a.Event.DistanceMeters < b.Event.DistanceMeters
	})

	return ranked
}
