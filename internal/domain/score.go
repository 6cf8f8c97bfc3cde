package domain

import "math"

// Fixed scoring policy. The weights are part of the product contract and
// must not be derived or tuned at runtime.
const (
	weightGeo      = 0.40
	weightActivity = 0.40
	weightFitness  = 0.20
)

// Score computes the compatibility between a candidate event and a user as
// a value in [0,100]. It is pure: same inputs, same output. distanceMeters
// on the candidate and radiusMeters share the same unit.
func Score(candidate Candidate, userFitness FitnessLevel, interests []Activity, radiusMeters float64) float64 {
	geo := geoCloseness(candidate.DistanceMeters, radiusMeters)
	activity := activityAffinity(candidate.Activity, interests)
	fitness := fitnessAffinity(candidate.FitnessLevel, userFitness)

	combined := weightGeo*geo + weightActivity*activity + weightFitness*fitness
	return clamp(100.0*combined, 0.0, 100.0)
}

// geoCloseness decays linearly from 1 at the center to 0 at or beyond the
// search radius.
func geoCloseness(distanceMeters, radiusMeters float64) float64 {
	if radiusMeters <= 0 {
		return 0.0
	}
	return clamp(1.0-math.Min(distanceMeters/radiusMeters, 1.0), 0.0, 1.0)
}

// activityAffinity is 1 for an exact interest match, 0.5 for a shared
// category, 0 otherwise. No recorded interests means no signal, not a
// neutral score.
func activityAffinity(event Activity, interests []Activity) float64 {
	if len(interests) == 0 {
		return 0.0
	}
	for _, interest := range interests {
		if interest == event {
			return 1.0
		}
	}
	eventCategory := event.Category()
	for _, interest := range interests {
		if interest.Category() == eventCategory {
			return 0.5
		}
	}
	return 0.0
}

// fitnessAffinity maps the rank distance between event and user levels onto
// 1 / 0.5 / 0.
func fitnessAffinity(event, user FitnessLevel) float64 {
	switch distance := event.Rank() - user.Rank(); {
	case distance == 0:
		return 1.0
	case distance == 1 || distance == -1:
		return 0.5
	default:
		return 0.0
	}
}

func clamp(value, low, high float64) float64 {
	return math.Max(low, math.Min(high, value))
}
