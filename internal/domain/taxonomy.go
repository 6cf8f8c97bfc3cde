package domain

import "fmt"

// Activity is the closed set of activity types an event can be about.
type Activity string

const (
	ActivityRunning          Activity = "RUNNING"
	ActivityCycling          Activity = "CYCLING"
	ActivitySwimming         Activity = "SWIMMING"
	ActivityWalking          Activity = "WALKING"
	ActivityRowing           Activity = "ROWING"
	ActivitySpinning         Activity = "SPINNING"
	ActivityYoga             Activity = "YOGA"
	ActivityPilates          Activity = "PILATES"
	ActivityStrengthTraining Activity = "STRENGTH_TRAINING"
	ActivityHIIT             Activity = "HIIT"
	ActivityFootball         Activity = "FOOTBALL"
	ActivityBasketball       Activity = "BASKETBALL"
	ActivityHiking           Activity = "HIKING"
	ActivityClimbing         Activity = "CLIMBING"
)

// ActivityCategory groups activities for affinity scoring. It is never used
// for identity.
type ActivityCategory string

const (
	CategoryEndurance   ActivityCategory = "ENDURANCE"
	CategoryFlexibility ActivityCategory = "FLEXIBILITY"
	CategoryStrength    ActivityCategory = "STRENGTH"
	CategoryTeamSport   ActivityCategory = "TEAM_SPORT"
	CategoryOutdoor     ActivityCategory = "OUTDOOR"
)

// activityCategories is the static, total mapping from activity to category.
var activityCategories = map[Activity]ActivityCategory{
	ActivityRunning:          CategoryEndurance,
	ActivityCycling:          CategoryEndurance,
	ActivitySwimming:         CategoryEndurance,
	ActivityWalking:          CategoryEndurance,
	ActivityRowing:           CategoryEndurance,
	ActivitySpinning:         CategoryEndurance,
	ActivityYoga:             CategoryFlexibility,
	ActivityPilates:          CategoryFlexibility,
	ActivityStrengthTraining: CategoryStrength,
	ActivityHIIT:             CategoryStrength,
	ActivityFootball:         CategoryTeamSport,
	ActivityBasketball:       CategoryTeamSport,
	ActivityHiking:           CategoryOutdoor,
	ActivityClimbing:         CategoryOutdoor,
}

// Category returns the category the activity belongs to.
func (a Activity) Category() ActivityCategory {
	return activityCategories[a]
}

// Known reports whether the value is part of the taxonomy.
func (a Activity) Known() bool {
	_, ok := activityCategories[a]
	return ok
}

// Activities returns every member of the taxonomy.
func Activities() []Activity {
	out := make([]Activity, 0, len(activityCategories))
	for activity := range activityCategories {
		out = append(out, activity)
	}
	return out
}

// ParseActivity validates a wire value against the taxonomy.
func ParseActivity(value string) (Activity, error) {
	activity := Activity(value)
	if !activity.Known() {
		return "", Invalid(fmt.Sprintf("unknown activity type: %s", value))
	}
	return activity, nil
}

// FitnessLevel is the totally ordered experience scale for users and events.
type FitnessLevel string

const (
	FitnessBeginner     FitnessLevel = "BEGINNER"
	FitnessIntermediate FitnessLevel = "INTERMEDIATE"
	FitnessAdvanced     FitnessLevel = "ADVANCED"
)

var fitnessRanks = map[FitnessLevel]int{
	FitnessBeginner:     0,
	FitnessIntermediate: 1,
	FitnessAdvanced:     2,
}

// Rank maps the level onto 0/1/2 for distance-based affinity.
func (f FitnessLevel) Rank() int {
	return fitnessRanks[f]
}

// Known reports whether the value is a valid level.
func (f FitnessLevel) Known() bool {
	_, ok := fitnessRanks[f]
	return ok
}

// ParseFitnessLevel validates a wire value against the scale.
func ParseFitnessLevel(value string) (FitnessLevel, error) {
	level := FitnessLevel(value)
	if !level.Known() {
		return "", Invalid(fmt.Sprintf("unknown fitness level: %s", value))
	}
	return level, nil
}
