package outbox

const eventCreatedSchema = `{
  "type": "object",
  "title": "EventCreated",
  "properties": {
    "event_id": {"type": "string"},
    "organizer_id": {"type": "string"},
    "title": {"type": "string"},
    "activity": {"type": "string"},
    "fitness_level": {"type": "string"},
    "starts_at": {"type": "string", "format": "date-time"},
    "capacity": {"type": "integer"},
    "participant_count": {"type": "integer"}
  },
  "required": ["event_id", "organizer_id", "title", "activity", "fitness_level", "starts_at", "capacity", "participant_count"],
  "additionalProperties": false
}`

const eventDeletedSchema = `{
  "type": "object",
  "title": "EventDeleted",
  "properties": {
    "event_id": {"type": "string"},
    "organizer_id": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "organizer_id", "occurred_at"],
  "additionalProperties": false
}`

const memberJoinedSchema = `{
  "type": "object",
  "title": "MemberJoined",
  "properties": {
    "event_id": {"type": "string"},
    "user_id": {"type": "string"},
    "participant_count": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "user_id", "participant_count", "occurred_at"],
  "additionalProperties": false
}`

const memberLeftSchema = `{
  "type": "object",
  "title": "MemberLeft",
  "properties": {
    "event_id": {"type": "string"},
    "user_id": {"type": "string"},
    "participant_count": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "user_id", "participant_count", "occurred_at"],
  "additionalProperties": false
}`

// schemaCatalog maps event types to the JSON schema registered for their
// subject.
var schemaCatalog = map[string]string{
	"event.created":       eventCreatedSchema,
	"event.deleted":       eventDeletedSchema,
	"event.member_joined": memberJoinedSchema,
	"event.member_left":   memberLeftSchema,
}
