package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cold_solutions_backend/platform/logger"
)

func TestExtractPlaceID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"query param", "https://www.google.com/maps/search/?api=1&query=x&query_place_id=ChIJabc123", "ChIJabc123", true},
		{"place_id param", "https://maps.google.com/?place_id=ChIJxyz_-9", "ChIJxyz_-9", true},
		{"path segment", "https://www.google.com/maps/place/Acme/data=!4m2!3m1!1sChIJN1t_tDeuEmsRUsoyG83frY4", "ChIJN1t_tDeuEmsRUsoyG83frY4", true},
		{"no id", "https://www.google.com/maps/place/Acme+Plumbing", "", false},
		{"empty", "", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractPlaceID(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("%s: expected %q/%v, got %q/%v", tc.name, tc.want, tc.ok, got, ok)
		}
	}
}

func newTestServer(t *testing.T, queries *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			http.Error(w, "missing key", http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/textsearch/json":
			q := r.URL.Query().Get("query")
			*queries = append(*queries, q)
			if q == "Acme Plumbing Springfield US" {
				_ = json.NewEncoder(w).Encode(map[string]any{"status": "ZERO_RESULTS", "results": []any{}})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":  "OK",
				"results": []map[string]any{{"place_id": "ChIJstate", "name": "Acme Plumbing"}},
			})
		case "/details/json":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "OK",
				"result": map[string]any{
					"place_id":           r.URL.Query().Get("place_id"),
					"name":               "Acme Plumbing",
					"website":            "https://acme.test",
					"rating":             4.2,
					"user_ratings_total": 37,
					"reviews":            []map[string]any{{"rating": 5, "text": "Fast and friendly"}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestLookupFallsBackToStateSearch(t *testing.T) {
	var queries []string
	srv := newTestServer(t, &queries)
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL}, logger.Discard())
	place, err := c.Lookup(context.Background(), Query{Name: "Acme Plumbing", City: "Springfield", State: "IL", Country: "US"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if place == nil || place.PlaceID != "ChIJstate" || place.ReviewCount != 37 || len(place.Reviews) != 1 {
		t.Fatalf("unexpected place %+v", place)
	}
	if len(queries) != 2 || queries[1] != "Acme Plumbing IL US" {
		t.Fatalf("expected city then state search, got %v", queries)
	}
}

func TestLookupPrefersMapsURL(t *testing.T) {
	var queries []string
	srv := newTestServer(t, &queries)
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL}, logger.Discard())
	place, err := c.Lookup(context.Background(), Query{Name: "Acme", MapsURL: "https://maps.google.com/?place_id=ChIJdirect"})
	if err != nil || place == nil || place.PlaceID != "ChIJdirect" {
		t.Fatalf("expected direct place id, got %+v %v", place, err)
	}
	if len(queries) != 0 {
		t.Fatalf("expected no text search, got %v", queries)
	}
}

func TestLookupWithoutKey(t *testing.T) {
	c := New(Config{BaseURL: "http://unused"}, logger.Discard())
	if _, err := c.Lookup(context.Background(), Query{Name: "Acme", City: "X"}); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
