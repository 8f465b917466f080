// Package client checks attendees in through a remote rollcall server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rollcall/internal/checkin"
	"rollcall/internal/platform/middleware"
	"rollcall/internal/token"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/circuit"
)

const defaultTimeout = 10 * time.Second

// ErrServerUnavailable is returned without a request while the breaker is open.
var ErrServerUnavailable = errors.New("check-in server unavailable, retrying shortly")

// Client posts scanned tokens to POST /checkin/{eventID}.
type Client struct {
	baseURL   string
	stationID string
	http      *http.Client
	breaker   *circuit.Breaker
}

type Option func(*Client)

// WithBreaker replaces the default breaker, which opens after three
// unreachable attempts in a row and tries again after five seconds.
func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

// WithHTTPClient replaces the default client, which times out after 10s.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithStationID tags every attempt with the station's identifier.
func WithStationID(station string) Option {
	return func(cl *Client) {
		cl.stationID = station
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url must be absolute: %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		breaker: circuit.New("checkin-server", circuit.WithFailureThreshold(3), circuit.WithCooldown(5*time.Second)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AttemptCheckIn forwards the attempt to the server. Transport failures and
// unreadable responses come back as update failures and count against the
// breaker.
func (c *Client) AttemptCheckIn(ctx context.Context, eventID id.EventID, tok token.Token) checkin.Outcome {
	if !c.breaker.Allow() {
		return checkin.UpdateFailed(ErrServerUnavailable)
	}
	outcome, reached := c.post(ctx, eventID, tok)
	if reached {
		c.breaker.RecordSuccess()
	} else {
		c.breaker.RecordFailure()
	}
	return outcome
}

// Breaker exposes the client's breaker state.
func (c *Client) Breaker() *circuit.Breaker { return c.breaker }

func (c *Client) post(ctx context.Context, eventID id.EventID, tok token.Token) (checkin.Outcome, bool) {
	body, err := json.Marshal(map[string]string{"token": string(tok)})
	if err != nil {
		return checkin.UpdateFailed(err), true
	}
	endpoint := c.baseURL + "/checkin/" + url.PathEscape(eventID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return checkin.UpdateFailed(err), true
	}
	req.Header.Set("Content-Type", "application/json")
	if c.stationID != "" {
		req.Header.Set(middleware.StationIDHeader, c.stationID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return checkin.UpdateFailed(fmt.Errorf("check-in request failed: %w", err)), false
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return checkin.UpdateFailed(fmt.Errorf("read check-in response: %w", err)), false
	}
	var outcome checkin.Outcome
	if err := json.Unmarshal(raw, &outcome); err != nil || outcome.Kind == "" {
		return checkin.UpdateFailed(fmt.Errorf("unexpected check-in response: %s", resp.Status)), false
	}
	if outcome.Kind == checkin.KindUpdateFailed {
		outcome.Err = errors.New(outcome.Message)
	}
	return outcome, true
}
