// Package places provides a rate-limited client for the Google Places web service.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cold_solutions_backend/platform/logger"

	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	detailFields       = "place_id,name,formatted_address,formatted_phone_number,website,url,business_status,rating,user_ratings_total,types,reviews"

	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
	statusNotFound    = "NOT_FOUND"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("google places api key not configured")

// Config holds the client settings.
type Config struct {
	APIKey            string
	BaseURL           string
	RequestsPerSecond float64
}

// Client handles Google Places requests.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	log        *logger.Logger
}

// New creates a Places client. A non-positive rate disables limiting.
func New(cfg Config, log *logger.Logger) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		limiter:    rate.NewLimiter(limit, 1),
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		log:        log,
	}
}

// Lookup resolves q to a place and fetches its details. It returns nil, nil
// when nothing matches.
func (c *Client) Lookup(ctx context.Context, q Query) (*Place, error) {
	placeID, err := c.Resolve(ctx, q)
	if err != nil || placeID == "" {
		return nil, err
	}
	return c.Details(ctx, placeID)
}

// Resolve finds the Place ID for q: a Maps URL wins, then a name and city
// search, then a broader name and state search.
func (c *Client) Resolve(ctx context.Context, q Query) (string, error) {
	if id, ok := ExtractPlaceID(q.MapsURL); ok {
		return id, nil
	}
	if strings.TrimSpace(q.Name) == "" {
		return "", nil
	}

	candidates, err := c.TextSearch(ctx, joinQuery(q.Name, q.City, q.Country))
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 && q.State != "" {
		candidates, err = c.TextSearch(ctx, joinQuery(q.Name, q.State, q.Country))
		if err != nil {
			return "", err
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}
	return candidates[0].PlaceID, nil
}

// TextSearch runs a free-text place search.
func (c *Client) TextSearch(ctx context.Context, query string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("query", query)

	var payload textSearchResponse
	if err := c.get(ctx, "textsearch", params, &payload); err != nil {
		return nil, err
	}
	switch payload.Status {
	case statusOK:
		return payload.Results, nil
	case statusZeroResults:
		return nil, nil
	default:
		return nil, fmt.Errorf("places textsearch status %s: %s", payload.Status, payload.ErrorMessage)
	}
}

// Details fetches one place. It returns nil, nil for an unknown Place ID.
func (c *Client) Details(ctx context.Context, placeID string) (*Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailFields)

	var payload detailsResponse
	if err := c.get(ctx, "details", params, &payload); err != nil {
		return nil, err
	}
	switch payload.Status {
	case statusOK:
	case statusNotFound, statusZeroResults:
		return nil, nil
	default:
		return nil, fmt.Errorf("places details status %s: %s", payload.Status, payload.ErrorMessage)
	}

	r := payload.Result
	return &Place{
		PlaceID:        r.PlaceID,
		Name:           r.Name,
		Address:        r.FormattedAddress,
		Phone:          r.Phone,
		Website:        r.Website,
		MapsURL:        r.URL,
		BusinessStatus: r.BusinessStatus,
		Rating:         r.Rating,
		ReviewCount:    r.UserRatingsTotal,
		Types:          r.Types,
		Reviews:        r.Reviews,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("key", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s/json?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.ExternalCall("google_places", endpoint, time.Since(start), err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("places %s status %d", endpoint, resp.StatusCode)
		c.log.ExternalCall("google_places", endpoint, time.Since(start), err)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.ExternalCall("google_places", endpoint, time.Since(start), err)
		return err
	}
	c.log.ExternalCall("google_places", endpoint, time.Since(start), nil)
	return nil
}

func joinQuery(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
