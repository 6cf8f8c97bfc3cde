package domain

import "time"

// CheckJoin evaluates the join preconditions against a consistent view of
// the event. The store calls it while holding the event's exclusive lock so
// the capacity read and the subsequent membership write cannot interleave
// with a concurrent join or leave.
func CheckJoin(ev Event, alreadyMember bool, now time.Time) error {
	if !ev.StartsAt.After(now) {
		return Invalid("cannot join an event that has already started")
	}
	if alreadyMember {
		return Invalid("user is already attending this event")
	}
	if ev.ParticipantCount >= ev.Capacity {
		return Invalid("event is at full capacity")
	}
	return nil
}

// CheckLeave evaluates the leave preconditions under the same per-event
// lock, keeping the cached count consistent with membership cardinality.
func CheckLeave(ev Event, userID string, isMember bool) error {
	if ev.OrganizerID == userID {
		return Invalid("organizer cannot leave their own event, delete it instead")
	}
	if !isMember {
		return NotFound("user is not attending this event")
	}
	return nil
}
