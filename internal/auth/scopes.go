package auth

// Known OAuth scopes used by the backend services.
const (
	ScopeEventsWrite = "events:write"
	ScopeEventsRead  = "events:read"
)
