// Package geocode resolves postal addresses to coordinates with a Nominatim-style
// search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

type Address struct {
	Number  string
	Street  string
	City    string
	Country string
}

// Query joins the non-empty parts as "number street, city, country".
func (a Address) Query() string {
	street := strings.TrimSpace(strings.Join(nonEmpty(a.Number, a.Street), " "))
	return strings.Join(nonEmpty(street, a.City, a.Country), ", ")
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Lookup returns the best match for addr, or nil when nothing could be resolved.
// Failures are logged, never returned.
func (c *Client) Lookup(ctx context.Context, addr Address) *models.Location {
	q := addr.Query()
	if q == "" {
		return nil
	}

	loc, err := c.search(ctx, q)
	if err != nil {
		slog.Warn("geocoding failed", "query", q, "error", err)
		return nil
	}
	if loc == nil {
		slog.Debug("geocoding found no match", "query", q)
	}
	return loc
}

func (c *Client) search(ctx context.Context, q string) (*models.Location, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", q)
	params.Set("limit", "1")
	params.Set("addressdetails", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	first := results[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", first.Lat, err)
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", first.Lon, err)
	}

	return &models.Location{
		Address:     first.DisplayName,
		Coordinates: &models.Coordinates{Latitude: lat, Longitude: lon},
	}, nil
}
