package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dogukanozdemir/Fitmatch/internal/auth"
	"github.com/dogukanozdemir/Fitmatch/internal/domain"
	"github.com/dogukanozdemir/Fitmatch/internal/persistence/memory"
)

type stubDirectory struct {
	profiles map[string]*domain.Profile
}

func (d *stubDirectory) GetByID(ctx context.Context, userID string) (*domain.Profile, error) {
	return d.profiles[userID], nil
}

func newTestMux(t *testing.T, directory *stubDirectory) (*http.ServeMux, *memory.Repository) {
	t.Helper()
	if directory == nil {
		directory = &stubDirectory{profiles: map[string]*domain.Profile{}}
	}
	repo := memory.NewRepository()
	service := domain.NewService(repo, directory)
	mux := http.NewServeMux()
	NewHandler(service).RegisterRoutes(mux)
	return mux, repo
}

func authedRequest(method, target string, body []byte, subject string, scopes ...string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	scopeSet := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		scopeSet[scope] = struct{}{}
	}
	claims := &auth.Claims{
		Subject:   subject,
		Scopes:    scopeSet,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func createEventBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(CreateEventRequest{
		Title:        "Morning run around the park",
		Activity:     "RUNNING",
		FitnessLevel: "INTERMEDIATE",
		StartsAt:     time.Now().Add(24 * time.Hour).UTC(),
		Capacity:     4,
		Lat:          41.0,
		Lng:          29.0,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return body
}

func TestCreateEventSuccess(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/v1/events", createEventBody(t), "organizer-1", auth.ScopeEventsWrite))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp EventView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.EventID == "" {
		t.Fatal("expected a generated event id")
	}
	if resp.OrganizerID != "organizer-1" {
		t.Fatalf("unexpected organizer %s", resp.OrganizerID)
	}
	if resp.ParticipantCount != 1 {
		t.Fatalf("expected organizer pre-joined, count %d", resp.ParticipantCount)
	}
}

func TestCreateEventRejectsUnknownActivity(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	body, _ := json.Marshal(CreateEventRequest{
		Title:        "Mystery meetup",
		Activity:     "PARKOUR",
		FitnessLevel: "BEGINNER",
		StartsAt:     time.Now().Add(time.Hour),
		Capacity:     4,
	})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/v1/events", body, "organizer-1", auth.ScopeEventsWrite))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateEventRequiresWriteScope(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/v1/events", createEventBody(t), "organizer-1", auth.ScopeEventsRead))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestJoinThenLeaveFlow(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/v1/events", createEventBody(t), "organizer-1", auth.ScopeEventsWrite))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", rr.Code, rr.Body.String())
	}
	var created EventView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/v1/events/"+created.EventID+"/join", nil, "runner-2", auth.ScopeEventsWrite))
	if rr.Code != http.StatusOK {
		t.Fatalf("join failed: %d %s", rr.Code, rr.Body.String())
	}
	var joined EventView
	if err := json.Unmarshal(rr.Body.Bytes(), &joined); err != nil {
		t.Fatalf("decode join response: %v", err)
	}
	if joined.ParticipantCount != 2 {
		t.Fatalf("expected count 2 after join, got %d", joined.ParticipantCount)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/v1/events/"+created.EventID+"/join", nil, "runner-2", auth.ScopeEventsWrite))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate join, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/v1/events/"+created.EventID+"/leave", nil, "runner-2", auth.ScopeEventsWrite))
	if rr.Code != http.StatusOK {
		t.Fatalf("leave failed: %d %s", rr.Code, rr.Body.String())
	}
	var left EventView
	if err := json.Unmarshal(rr.Body.Bytes(), &left); err != nil {
		t.Fatalf("decode leave response: %v", err)
	}
	if left.ParticipantCount != 1 {
		t.Fatalf("expected count 1 after leave, got %d", left.ParticipantCount)
	}
}

func TestJoinMissingEventReturnsNotFound(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/v1/events/no-such-event/join", nil, "runner-2", auth.ScopeEventsWrite))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOrganizerCannotLeaveOwnEvent(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/v1/events", createEventBody(t), "organizer-1", auth.ScopeEventsWrite))
	var created EventView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/v1/events/"+created.EventID+"/leave", nil, "organizer-1", auth.ScopeEventsWrite))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestDeleteEventOrganizerOnly(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/v1/events", createEventBody(t), "organizer-1", auth.ScopeEventsWrite))
	var created EventView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodDelete, "/v1/events/"+created.EventID, nil, "stranger", auth.ScopeEventsWrite))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-organizer delete, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodDelete, "/v1/events/"+created.EventID, nil, "organizer-1", auth.ScopeEventsWrite))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodGet, "/v1/events/"+created.EventID, nil, "organizer-1", auth.ScopeEventsRead))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestNearbyEventsRankedResponse(t *testing.T) {
	directory := &stubDirectory{profiles: map[string]*domain.Profile{
		"runner-1": {
			ID:                "runner-1",
			FitnessLevel:      domain.FitnessIntermediate,
			ActivityInterests: []domain.Activity{domain.ActivityRunning},
			Lat:               41.0,
			Lng:               29.0,
			SearchRadiusKm:    20,
			ProfileCompleted:  true,
		},
	}}
	mux, _ := newTestMux(t, directory)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodPost, "/v1/events", createEventBody(t), "organizer-1", auth.ScopeEventsWrite))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodGet, "/v1/events/nearby", nil, "runner-1", auth.ScopeEventsRead))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp NearbyEventsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item got %d", len(resp.Items))
	}
	item := resp.Items[0]
	if item.CompatibilityScore != 100.0 {
		t.Fatalf("expected perfect score at search center, got %f", item.CompatibilityScore)
	}
	if item.DistanceMeters != 0 {
		t.Fatalf("expected zero distance, got %f", item.DistanceMeters)
	}
}

func TestNearbyEventsIncompleteProfile(t *testing.T) {
	directory := &stubDirectory{profiles: map[string]*domain.Profile{
		"runner-1": {ID: "runner-1", ProfileCompleted: false},
	}}
	mux, _ := newTestMux(t, directory)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodGet, "/v1/events/nearby", nil, "runner-1", auth.ScopeEventsRead))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestNearbyEventsUnknownUser(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, authedRequest(http.MethodGet, "/v1/events/nearby", nil, "ghost", auth.ScopeEventsRead))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHealthzOpen(t *testing.T) {
	mux, _ := newTestMux(t, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
}
