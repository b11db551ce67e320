// Package backend talks to the hosted PostgREST-style backend that owns the
// user's tasks, meals, water logs, preferences and analytics events.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/productivity-nox/noxstat/internal/model"
)

const (
	restPath       = "/rest/v1"
	requestTimeout = 15 * time.Second
	maxBodySize    = 8 << 20 // 8 MB per page
	pageSize       = 1000
	userAgent      = "noxstat/1.0"
)

var (
	// ErrUnauthorized indicates the key or access token is expired or invalid.
	ErrUnauthorized = errors.New("backend: unauthorized (key or token expired or invalid)")
	// ErrRateLimited indicates the API rate limit was hit.
	ErrRateLimited = errors.New("backend: rate limited")
	// ErrNotConfigured is returned when no backend URL or key is set.
	ErrNotConfigured = errors.New("backend: not configured")
)

// Source reads a user's records. Both the REST client and the direct
// Postgres source implement it.
type Source interface {
	FetchTasks(ctx context.Context, userID string) ([]model.Task, error)
	FetchMeals(ctx context.Context, userID string) ([]model.Meal, error)
	FetchWaterLogs(ctx context.Context, userID string) ([]model.WaterLog, error)
	FetchEvents(ctx context.Context, userID string, since, until time.Time) ([]model.AnalyticsEvent, error)
	FetchPreferences(ctx context.Context, userID string) (*model.UserPreferences, error)
}

// Writer pushes locally created records to the backend.
type Writer interface {
	InsertTask(ctx context.Context, t model.Task) error
	InsertMeal(ctx context.Context, m model.Meal) error
	InsertWaterLog(ctx context.Context, w model.WaterLog) error
	InsertEvent(ctx context.Context, e model.AnalyticsEvent) error
	UpdateTaskCompleted(ctx context.Context, id string, completed bool) error
}

// Client is a REST client for the backend.
type Client struct {
	baseURL     string
	anonKey     string
	accessToken string
	http        *http.Client
}

// NewClient creates a client. It returns ErrNotConfigured if the URL or
// anon key is empty. The access token is optional; without it requests use
// the anon key.
func NewClient(baseURL, anonKey, accessToken string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	anonKey = strings.TrimSpace(anonKey)
	switch {
	case baseURL == "":
		return nil, fmt.Errorf("%w: missing URL", ErrNotConfigured)
	case anonKey == "":
		return nil, fmt.Errorf("%w: missing anon key", ErrNotConfigured)
	}
	return &Client{
		baseURL:     baseURL,
		anonKey:     anonKey,
		accessToken: strings.TrimSpace(accessToken),
		http:        &http.Client{},
	}, nil
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// FetchTasks returns the user's tasks, newest first.
func (c *Client) FetchTasks(ctx context.Context, userID string) ([]model.Task, error) {
	raws, err := c.fetchAll(ctx, "tasks", userQuery(userID, "created_at"))
	if err != nil {
		return nil, err
	}
	out := make([]model.Task, 0, len(raws))
	for _, raw := range raws {
		t, err := DecodeTask(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// FetchMeals returns the user's meals, newest first.
func (c *Client) FetchMeals(ctx context.Context, userID string) ([]model.Meal, error) {
	raws, err := c.fetchAll(ctx, "meals", userQuery(userID, "created_at"))
	if err != nil {
		return nil, err
	}
	out := make([]model.Meal, 0, len(raws))
	for _, raw := range raws {
		m, err := DecodeMeal(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// FetchWaterLogs returns the user's water logs, newest first.
func (c *Client) FetchWaterLogs(ctx context.Context, userID string) ([]model.WaterLog, error) {
	raws, err := c.fetchAll(ctx, "water_logs", userQuery(userID, "created_at"))
	if err != nil {
		return nil, err
	}
	out := make([]model.WaterLog, 0, len(raws))
	for _, raw := range raws {
		w, err := DecodeWaterLog(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

// FetchEvents returns the user's analytics events in [since, until].
// A zero bound leaves that side open.
func (c *Client) FetchEvents(ctx context.Context, userID string, since, until time.Time) ([]model.AnalyticsEvent, error) {
	q := userQuery(userID, "timestamp")
	if !since.IsZero() {
		q.Add("timestamp", "gte."+FormatTimestamp(since))
	}
	if !until.IsZero() {
		q.Add("timestamp", "lte."+FormatTimestamp(until))
	}
	raws, err := c.fetchAll(ctx, "analytics_events", q)
	if err != nil {
		return nil, err
	}
	out := make([]model.AnalyticsEvent, 0, len(raws))
	for _, raw := range raws {
		e, err := DecodeEvent(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// FetchPreferences returns the user's preferences, or nil if none exist.
func (c *Client) FetchPreferences(ctx context.Context, userID string) (*model.UserPreferences, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("limit", "1")
	body, err := c.do(ctx, http.MethodGet, "/user_preferences?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("backend: parsing user_preferences: %w", err)
	}
	if len(raws) == 0 {
		return nil, nil
	}
	p, err := DecodePreferences(raws[0])
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertTask creates a task row.
func (c *Client) InsertTask(ctx context.Context, t model.Task) error {
	return c.insert(ctx, "tasks", taskToRow(t))
}

// InsertMeal creates a meal row.
func (c *Client) InsertMeal(ctx context.Context, m model.Meal) error {
	return c.insert(ctx, "meals", mealToRow(m))
}

// InsertWaterLog creates a water_logs row.
func (c *Client) InsertWaterLog(ctx context.Context, w model.WaterLog) error {
	return c.insert(ctx, "water_logs", waterToRow(w))
}

// InsertEvent creates an analytics_events row.
func (c *Client) InsertEvent(ctx context.Context, e model.AnalyticsEvent) error {
	return c.insert(ctx, "analytics_events", eventToRow(e))
}

// UpdateTaskCompleted sets a task's completed flag.
func (c *Client) UpdateTaskCompleted(ctx context.Context, id string, completed bool) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	payload, err := json.Marshal(map[string]any{"completed": completed})
	if err != nil {
		return fmt.Errorf("backend: encoding task update: %w", err)
	}
	_, err = c.do(ctx, http.MethodPatch, "/tasks?"+q.Encode(), payload)
	return err
}

func (c *Client) insert(ctx context.Context, table string, row map[string]any) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("backend: encoding %s row: %w", table, err)
	}
	_, err = c.do(ctx, http.MethodPost, "/"+table, payload)
	return err
}

func userQuery(userID, orderColumn string) url.Values {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("order", orderColumn+".desc,id.asc")
	return q
}

// fetchAll pages through a table with limit/offset until a short page.
func (c *Client) fetchAll(ctx context.Context, table string, q url.Values) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for offset := 0; ; offset += pageSize {
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("offset", strconv.Itoa(offset))

		body, err := c.do(ctx, http.MethodGet, "/"+table+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		var page []json.RawMessage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("backend: parsing %s: %w", table, err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// do performs an authenticated request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+restPath+path, body)
	if err != nil {
		return nil, fmt.Errorf("backend: creating request: %w", err)
	}

	bearer := c.accessToken
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=minimal")
	}

	//nolint:gosec // URL is built from the configured backend base URL
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("backend: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("backend: reading response: %w", err)
	}
	return data, nil
}
