package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext carries the HTTP client and the state a scenario builds up.
type TestContext struct {
	BaseURL string
	Client  *http.Client

	StatusCode int
	Body       []byte

	eventID  string
	checkins map[string]string // attendee name -> check-in URL
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   &http.Client{Timeout: 10 * time.Second},
		checkins: map[string]string{},
	}
}

// Reset clears scenario state between scenarios.
func (tc *TestContext) Reset() {
	tc.StatusCode = 0
	tc.Body = nil
	tc.eventID = ""
	tc.checkins = map[string]string{}
}

func (tc *TestContext) POST(path string, body interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(raw), map[string]string{"Content-Type": "application/json"})
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = tc.BaseURL + path
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := tc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.StatusCode = resp.StatusCode
	tc.Body, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GetStatusCode() int {
	return tc.StatusCode
}

// GetResponseField reads a top-level field of the last JSON response.
// Nested fields use dots, e.g. "attendee.id".
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(tc.Body, &v); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w: %s", err, tc.Body)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q not found in %s", field, tc.Body)
		}
		if v, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %q not found in %s", field, tc.Body)
		}
	}
	return v, nil
}

func (tc *TestContext) GetEventID() string {
	return tc.eventID
}

func (tc *TestContext) SetEventID(id string) {
	tc.eventID = id
}

func (tc *TestContext) GetCheckInURL(name string) (string, error) {
	url, ok := tc.checkins[name]
	if !ok {
		return "", fmt.Errorf("attendee %q was not registered in this scenario", name)
	}
	return url, nil
}

func (tc *TestContext) SetCheckInURL(name, url string) {
	tc.checkins[name] = url
}
