// Package users resolves caller identities against the fitmatch user
// service.
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dogukanozdemir/Fitmatch/internal/domain"
)

// Client is a thin HTTP client for the user service's profile lookup.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client with sane defaults.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type profilePayload struct {
	ID                string   `json:"id"`
	FitnessLevel      string   `json:"fitnessLevel"`
	ActivityInterests []string `json:"activityInterests"`
	Lat               float64  `json:"lat"`
	Lon               float64  `json:"lon"`
	SearchRadiusKm    int      `json:"searchRadiusKm"`
	ProfileCompleted  bool     `json:"profileCompleted"`
}

// GetByID fetches the profile for a user id. A missing user yields
// (nil, nil); the caller decides how absence maps onto its error taxonomy.
func (c *Client) GetByID(ctx context.Context, userID string) (*domain.Profile, error) {
	endpoint := fmt.Sprintf("%s/api/users/%s", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.Internal("user service request failed", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.Internal("user service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, domain.Internal(fmt.Sprintf("user service error: %s", body), nil)
	}

	var payload profilePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, domain.Internal("user service returned malformed profile", err)
	}
	return toProfile(payload)
}

func toProfile(payload profilePayload) (*domain.Profile, error) {
	// Incomplete profiles may omit the level; the ranking gate rejects them
	// before it is read. A completed profile must carry a known level, or an
	// empty value would rank like BEGINNER.
	level, err := domain.ParseFitnessLevel(payload.FitnessLevel)
	if err != nil {
		if payload.ProfileCompleted || payload.FitnessLevel != "" {
			return nil, domain.Internal("user service returned unknown fitness level", err)
		}
	}

	interests := make([]domain.Activity, 0, len(payload.ActivityInterests))
	for _, raw := range payload.ActivityInterests {
		activity, err := domain.ParseActivity(raw)
		if err != nil {
			return nil, domain.Internal("user service returned unknown activity interest", err)
		}
		interests = append(interests, activity)
	}

	return &domain.Profile{
		ID:                payload.ID,
		FitnessLevel:      level,
		ActivityInterests: interests,
		Lat:               payload.Lat,
		Lng:               payload.Lon,
		SearchRadiusKm:    payload.SearchRadiusKm,
		ProfileCompleted:  payload.ProfileCompleted,
	}, nil
}
