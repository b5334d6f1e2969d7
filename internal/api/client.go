// Package api is a typed facade over the clinic backend's REST endpoints.
// It is a transparent, stateless pass-through: no retries, no caching. Its
// only added behavior is auth header injection from the current session.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook-go/internal/observability/metrics"
	"github.com/clinicbook/clinicbook-go/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// TokenSource supplies the current auth token, or "" when logged out.
// session.Store satisfies this.
type TokenSource interface {
	Token() string
}

// Client is the typed backend gateway. Concurrent calls are independent; no
// ordering is guaranteed between distinct calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *logging.Logger
	metrics    *metrics.RequestMetrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics attaches request metrics. Nil metrics are a no-op.
func WithMetrics(m *metrics.RequestMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a backend client rooted at baseURL (no trailing slash).
// tokens may be nil for a purely unauthenticated client.
func NewClient(baseURL string, tokens TokenSource, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		tokens: tokens,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register creates a new patient account. No auth required.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, "register", http.MethodPost, "/register/", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token grant.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, "login", http.MethodPost, "/login/", nil, loginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the authenticated patient's profile.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, "profile", http.MethodGet, "/me/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile applies a partial update to the authenticated profile.
func (c *Client) UpdateProfile(ctx context.Context, req ProfileUpdate) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, "update_profile", http.MethodPut, "/me/", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Doctors lists all doctors.
func (c *Client) Doctors(ctx context.Context) ([]Doctor, error) {
	var out []Doctor
	if err := c.do(ctx, "doctors", http.MethodGet, "/doctors/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Doctor fetches a single doctor by id.
func (c *Client) Doctor(ctx context.Context, id int) (*Doctor, error) {
	var out Doctor
	if err := c.do(ctx, "doctor", http.MethodGet, fmt.Sprintf("/doctors/%d/", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Schedules lists a doctor's slots. When date is "" the server returns the
// full upcoming available schedule; otherwise it filters to that date.
// Filtering is server-side only.
func (c *Client) Schedules(ctx context.Context, doctorID int, date string) ([]Slot, error) {
	q := url.Values{}
	q.Set("doctor_id", strconv.Itoa(doctorID))
	if date != "" {
		q.Set("date", date)
	}
	var out []Slot
	if err := c.do(ctx, "schedules", http.MethodGet, "/schedules/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAppointment reserves a slot. The server may reject with a conflict
// if the slot is no longer available.
func (c *Client) CreateAppointment(ctx context.Context, scheduleID int) (*Appointment, error) {
	var out Appointment
	if err := c.do(ctx, "create_appointment", http.MethodPost, "/appointments/", nil, createAppointmentRequest{Schedule: scheduleID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Appointments lists the authenticated patient's appointments.
func (c *Client) Appointments(ctx context.Context) ([]Appointment, error) {
	var out []Appointment
	if err := c.do(ctx, "appointments", http.MethodGet, "/appointments/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelAppointment cancels a booked appointment. The backend answers 204.
func (c *Client) CancelAppointment(ctx context.Context, id int) error {
	return c.do(ctx, "cancel_appointment", http.MethodPatch, fmt.Sprintf("/appointments/%d/cancel/", id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Op: op, Message: fmt.Sprintf("marshal request: %v", err)}
		}
		reader = bytes.NewReader(payload)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &RequestError{Op: op, Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Token "+tok)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(op, 0, time.Since(start).Seconds())
		c.logger.Warn("backend request failed", "operation", op, "error", err)
		return &RequestError{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(op, resp.StatusCode, time.Since(start).Seconds())
	if err != nil {
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode >= 400 {
		reqErr := &RequestError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
		c.logger.Warn("backend rejected request", "operation", op, "status", resp.StatusCode, "message", reqErr.Message)
		return reqErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("unmarshal response: %v", err)}
	}
	return nil
}

// errorMessage pulls a human-readable message out of a backend error body.
// The backend answers either {"error": "..."}, {"detail": "..."} or a field
// validation map; anything unrecognized is passed through truncated.
func errorMessage(body []byte) string {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, key := range []string{"error", "detail"} {
			var msg string
			if raw, ok := envelope[key]; ok && json.Unmarshal(raw, &msg) == nil {
				return msg
			}
		}
	}
	msg := string(bytes.TrimSpace(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	if msg == "" {
		msg = "request failed"
	}
	return msg
}
