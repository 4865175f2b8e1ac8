// Package client queries a running phaselever API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/phase-lever/internal/persistence"
	"github.com/talgya/phase-lever/internal/phase"
)

// Region mirrors the region object in API responses.
type Region struct {
	Type              string   `json:"type"`
	Name              string   `json:"name"`
	Phases            []string `json:"phases"`
	LiquidComposition *float64 `json:"liquid_composition,omitempty"`
}

// Point mirrors GET /api/v1/classify and /api/v1/amounts.
type Point struct {
	X       float64        `json:"x"`
	T       float64        `json:"t"`
	Region  Region         `json:"region"`
	Amounts *phase.Amounts `json:"amounts,omitempty"`
}

// Step mirrors one entry of a cooling path.
type Step struct {
	T       float64       `json:"t"`
	Region  Region        `json:"region"`
	Amounts phase.Amounts `json:"amounts"`
}

// Transition mirrors a cooling region change.
type Transition struct {
	T    float64 `json:"t"`
	From string  `json:"from"`
	To   string  `json:"to"`
}

// CoolingPath mirrors GET /api/v1/cooling.
type CoolingPath struct {
	X           float64      `json:"x"`
	Steps       []Step       `json:"steps"`
	Transitions []Transition `json:"transitions"`
}

// StatusError is a non-200 answer from the API.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned %d: %s", e.Path, e.Code, e.Body)
}

// Client talks to the API at BaseURL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a Client targeting the given API base URL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Classify asks the server for the region at (x, t).
func (c *Client) Classify(ctx context.Context, x, t float64) (*Point, error) {
	var p Point
	if err := c.fetchJSON(ctx, "/api/v1/classify", pointQuery(x, t), &p); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	return &p, nil
}

// Amounts asks the server for the phase amounts at (x, t).
func (c *Client) Amounts(ctx context.Context, x, t float64) (*Point, error) {
	var p Point
	if err := c.fetchJSON(ctx, "/api/v1/amounts", pointQuery(x, t), &p); err != nil {
		return nil, fmt.Errorf("amounts: %w", err)
	}
	if p.Amounts == nil {
		return nil, fmt.Errorf("amounts: response has no amounts")
	}
	return &p, nil
}

// Cooling asks the server for a cooling path.
func (c *Client) Cooling(ctx context.Context, x, start, end, step float64) (*CoolingPath, error) {
	q := url.Values{}
	q.Set("x", formatFloat(x))
	q.Set("start", formatFloat(start))
	q.Set("end", formatFloat(end))
	q.Set("step", formatFloat(step))

	var p CoolingPath
	if err := c.fetchJSON(ctx, "/api/v1/cooling", q, &p); err != nil {
		return nil, fmt.Errorf("cooling: %w", err)
	}
	return &p, nil
}

// History returns the most recent stored queries.
func (c *Client) History(ctx context.Context, limit int) ([]persistence.Query, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var rows []persistence.Query
	if err := c.fetchJSON(ctx, "/api/v1/history", q, &rows); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return rows, nil
}

// Query returns one stored query by ID.
func (c *Client) Query(ctx context.Context, id string) (*persistence.Query, error) {
	var q persistence.Query
	if err := c.fetchJSON(ctx, "/api/v1/history/"+url.PathEscape(id), nil, &q); err != nil {
		return nil, fmt.Errorf("history %s: %w", id, err)
	}
	return &q, nil
}

func pointQuery(x, t float64) url.Values {
	q := url.Values{}
	q.Set("x", formatFloat(x))
	q.Set("t", formatFloat(t))
	return q
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (c *Client) fetchJSON(ctx context.Context, path string, query url.Values, target any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
