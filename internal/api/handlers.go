// Package api exposes HTTP handlers for the events service.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dogukanozdemir/Fitmatch/internal/auth"
	"github.com/dogukanozdemir/Fitmatch/internal/domain"
	"github.com/dogukanozdemir/Fitmatch/internal/observability"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/events", h.events)
	mux.HandleFunc("/v1/events/nearby", h.nearbyEvents)
	mux.HandleFunc("/v1/events/", h.eventSubtree)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createEvent(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) eventSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/events/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if parts[0] == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing event id")
		return
	}

	id := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getEvent(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.deleteEvent(w, r, id)
	case len(parts) == 2 && parts[1] == "join" && r.Method == http.MethodPost:
		h.joinEvent(w, r, id)
	case len(parts) == 2 && parts[1] == "leave" && r.Method == http.MethodPost:
		h.leaveEvent(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeEventsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope events:write required")
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	input, err := req.Input()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ev, err := h.service.CreateEvent(r.Context(), claims.Subject, input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventView(*ev))
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeEventsRead) && !claims.HasScope(auth.ScopeEventsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope events:read required")
		return
	}

	ev, err := h.service.GetEvent(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventView(*ev))
}

func (h *Handler) joinEvent(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeEventsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope events:write required")
		return
	}

	ev, err := h.service.JoinEvent(r.Context(), id, claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventView(*ev))
}

func (h *Handler) leaveEvent(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeEventsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope events:write required")
		return
	}

	ev, err := h.service.LeaveEvent(r.Context(), id, claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventView(*ev))
}

func (h *Handler) deleteEvent(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeEventsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope events:write required")
		return
	}

	if err := h.service.DeleteEvent(r.Context(), id, claims.Subject); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) nearbyEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeEventsRead) && !claims.HasScope(auth.ScopeEventsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope events:read required")
		return
	}

	observability.RecordNearbySearch()

	ranked, err := h.service.NearbyEvents(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]RankedEventView, 0, len(ranked))
	for _, entry := range ranked {
		items = append(items, toRankedEventView(entry))
	}
	writeJSON(w, http.StatusOK, NearbyEventsResponse{Items: items})
}

// CreateEventRequest is the payload for POST /v1/events.
type CreateEventRequest struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Activity     string    `json:"activity"`
	FitnessLevel string    `json:"fitness_level"`
	StartsAt     time.Time `json:"starts_at"`
	Capacity     int       `json:"capacity"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
}

// Input parses the request into validated domain input.
func (r CreateEventRequest) Input() (domain.CreateEventInput, error) {
	activity, err := domain.ParseActivity(r.Activity)
	if err != nil {
		return domain.CreateEventInput{}, err
	}
	level, err := domain.ParseFitnessLevel(r.FitnessLevel)
	if err != nil {
		return domain.CreateEventInput{}, err
	}

	input := domain.CreateEventInput{
		Title:        r.Title,
		Description:  r.Description,
		Activity:     activity,
		FitnessLevel: level,
		StartsAt:     r.StartsAt,
		Capacity:     r.Capacity,
		Lat:          r.Lat,
		Lng:          r.Lng,
	}
	if err := input.Validate(); err != nil {
		return domain.CreateEventInput{}, err
	}
	return input, nil
}

// EventView exposes full details about an event.
type EventView struct {
	EventID          string    `json:"event_id"`
	OrganizerID      string    `json:"organizer_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Activity         string    `json:"activity"`
	FitnessLevel     string    `json:"fitness_level"`
	StartsAt         time.Time `json:"starts_at"`
	Capacity         int       `json:"capacity"`
	ParticipantCount int       `json:"participant_count"`
	Lat              float64   `json:"lat"`
	Lng              float64   `json:"lng"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RankedEventView is a nearby candidate annotated with its score.
type RankedEventView struct {
	EventID            string    `json:"event_id"`
	Title              string    `json:"title"`
	Activity           string    `json:"activity"`
	FitnessLevel       string    `json:"fitness_level"`
	StartsAt           time.Time `json:"starts_at"`
	Capacity           int       `json:"capacity"`
	ParticipantCount   int       `json:"participant_count"`
	DistanceMeters     float64   `json:"distance_meters"`
	Lat                float64   `json:"lat"`
	Lng                float64   `json:"lng"`
	CompatibilityScore float64   `json:"compatibility_score"`
}

// NearbyEventsResponse packages ranked search results.
type NearbyEventsResponse struct {
	Items []RankedEventView `json:"items"`
}

func toEventView(ev domain.Event) EventView {
	return EventView{
		EventID:          ev.ID,
		OrganizerID:      ev.OrganizerID,
		Title:            ev.Title,
		Description:      ev.Description,
		Activity:         string(ev.Activity),
		FitnessLevel:     string(ev.FitnessLevel),
		StartsAt:         ev.StartsAt,
		Capacity:         ev.Capacity,
		ParticipantCount: ev.ParticipantCount,
		Lat:              ev.Lat,
		Lng:              ev.Lng,
		CreatedAt:        ev.CreatedAt,
		UpdatedAt:        ev.UpdatedAt,
	}
}

func toRankedEventView(entry domain.RankedEvent) RankedEventView {
	candidate := entry.Event
	return RankedEventView{
		EventID:            candidate.ID,
		Title:              candidate.Title,
		Activity:           string(candidate.Activity),
		FitnessLevel:       string(candidate.FitnessLevel),
		StartsAt:           candidate.StartsAt,
		Capacity:           candidate.Capacity,
		ParticipantCount:   candidate.ParticipantCount,
		DistanceMeters:     candidate.DistanceMeters,
		Lat:                candidate.Lat,
		Lng:                candidate.Lng,
		CompatibilityScore: entry.CompatibilityScore,
	}
}

// writeDomainError maps a domain failure kind to an HTTP response.
func writeDomainError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindUnauthenticated:
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case domain.KindInvalid:
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
