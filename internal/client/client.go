// Package client talks to the TripMind REST API. It implements the backend
// contracts consumed by the planner session (trip reads, partial updates,
// child records, generation and suggestions).
//
// Requests are never retried: a persistence call must reach the server at
// most once, and the optimistic layer above decides what a failure means.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pkordes/tripmind/internal/api"
	"github.com/pkordes/tripmind/internal/domain"
)

const (
	// DefaultHTTPTimeout bounds a single request.
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultRequestsPerMinute is the client-side request budget.
	DefaultRequestsPerMinute = 120
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	HTTPClient        *http.Client
	RequestsPerMinute int
	Logger            *slog.Logger
}

// Client is a TripMind API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New returns a Client for the API rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client.New: invalid base URL %q", baseURL)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	rps := float64(opts.RequestsPerMinute) / 60.0
	burst := max(5, opts.RequestsPerMinute/5)
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     opts.Logger,
	}, nil
}

// ListTrips returns one page of trips, newest first.
func (c *Client) ListTrips(ctx context.Context, page, limit int) ([]domain.Trip, api.Pagination, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/trips"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list api.TripList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, api.Pagination{}, fmt.Errorf("client.Client.ListTrips: %w", err)
	}
	trips := make([]domain.Trip, len(list.Data))
	for i, t := range list.Data {
		trips[i] = t.ToDomain()
	}
	return trips, list.Pagination, nil
}

// CreateTrip creates a trip.
func (c *Client) CreateTrip(ctx context.Context, req api.CreateTripRequest) (domain.Trip, error) {
	var out api.Trip
	if err := c.do(ctx, http.MethodPost, "/api/trips", req, &out); err != nil {
		return domain.Trip{}, fmt.Errorf("client.Client.CreateTrip: %w", err)
	}
	return out.ToDomain(), nil
}

// GetTrip fetches the authoritative trip.
func (c *Client) GetTrip(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	var out api.Trip
	if err := c.do(ctx, http.MethodGet, tripPath(id), nil, &out); err != nil {
		return domain.Trip{}, fmt.Errorf("client.Client.GetTrip: %w", err)
	}
	return out.ToDomain(), nil
}

// UpdateTrip sends a partial update and returns the server's trip.
func (c *Client) UpdateTrip(ctx context.Context, id uuid.UUID, patch domain.TripPatch) (domain.Trip, error) {
	var out api.Trip
	if err := c.do(ctx, http.MethodPut, tripPath(id), api.FromPatch(patch), &out); err != nil {
		return domain.Trip{}, fmt.Errorf("client.Client.UpdateTrip: %w", err)
	}
	return out.ToDomain(), nil
}

// DeleteTrip removes a trip.
func (c *Client) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	if err := c.do(ctx, http.MethodDelete, tripPath(id), nil, nil); err != nil {
		return fmt.Errorf("client.Client.DeleteTrip: %w", err)
	}
	return nil
}

// AddActivity creates an itinerary activity on the given day.
func (c *Client) AddActivity(ctx context.Context, id uuid.UUID, day int, a domain.Activity) (domain.Trip, error) {
	var out api.Trip
	body := api.AddActivityRequest{Day: day, Activity: a}
	if err := c.do(ctx, http.MethodPost, tripPath(id)+"/activities", body, &out); err != nil {
		return domain.Trip{}, fmt.Errorf("client.Client.AddActivity: %w", err)
	}
	return out.ToDomain(), nil
}

// DeleteActivity removes an itinerary activity.
func (c *Client) DeleteActivity(ctx context.Context, id uuid.UUID, activityID string) (domain.Trip, error) {
	var out api.Trip
	path := tripPath(id) + "/activities/" + url.PathEscape(activityID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return domain.Trip{}, fmt.Errorf("client.Client.DeleteActivity: %w", err)
	}
	return out.ToDomain(), nil
}

// BeginGeneration asks the server to start filling the itinerary. It returns
// once the request is accepted; the content arrives later on the trip.
func (c *Client) BeginGeneration(ctx context.Context, id uuid.UUID, instruction string) (domain.GenerationAck, error) {
	var out api.GenerationAck
	body := api.GenerateRequest{Instruction: instruction}
	if err := c.do(ctx, http.MethodPost, tripPath(id)+"/generate", body, &out); err != nil {
		return domain.GenerationAck{}, fmt.Errorf("client.Client.BeginGeneration: %w", err)
	}
	return out.ToDomain(), nil
}

// RequestSuggestions generates fresh candidates for a category.
func (c *Client) RequestSuggestions(ctx context.Context, id uuid.UUID, category domain.Category, preferences string) ([]domain.Suggestion, error) {
	var out api.SuggestionsResponse
	body := api.SuggestionsRequest{Preferences: preferences}
	if err := c.do(ctx, http.MethodPost, suggestionsPath(id, category), body, &out); err != nil {
		return nil, fmt.Errorf("client.Client.RequestSuggestions: %w", err)
	}
	return out.Items, nil
}

// CommitSuggestion saves a candidate into the trip's bookings.
func (c *Client) CommitSuggestion(ctx context.Context, id uuid.UUID, s domain.Suggestion) (domain.Trip, error) {
	var out api.Trip
	body := api.CommitSuggestionRequest{Suggestion: s}
	if err := c.do(ctx, http.MethodPost, suggestionsPath(id, s.Category)+"/commit", body, &out); err != nil {
		return domain.Trip{}, fmt.Errorf("client.Client.CommitSuggestion: %w", err)
	}
	return out.ToDomain(), nil
}

// ExportItinerary returns the trip's itinerary flattened to one row per activity.
func (c *Client) ExportItinerary(ctx context.Context, id uuid.UUID) ([]api.ExportRow, error) {
	var out []api.ExportRow
	if err := c.do(ctx, http.MethodGet, tripPath(id)+"/export?format=json", nil, &out); err != nil {
		return nil, fmt.Errorf("client.Client.ExportItinerary: %w", err)
	}
	return out, nil
}

func tripPath(id uuid.UUID) string { return "/api/trips/" + id.String() }

func suggestionsPath(id uuid.UUID, category domain.Category) string {
	return tripPath(id) + "/suggestions/" + url.PathEscape(string(category))
}

// do sends one request and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("request failed: %v", err), cause: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
