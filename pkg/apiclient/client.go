// Package apiclient talks to the assessment HTTP API and unwraps its
// {code, message, data} envelope.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrapf(err, "decode data of %s %s", method, path)
		}
	}
	return nil
}

func (c *Client) GetTest(ctx context.Context, testID string) (*Test, error) {
	var out struct {
		Test Test `json:"test"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tests/"+url.PathEscape(testID), nil, &out); err != nil {
		return nil, err
	}
	return &out.Test, nil
}

func (c *Client) StartSession(ctx context.Context, testID string, mode Mode) (*StartResult, error) {
	var out StartResult
	body := map[string]interface{}{"testId": testID, "mode": mode}
	if err := c.do(ctx, http.MethodPost, "/api/sessions/start", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var out struct {
		Session Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

func (c *Client) ListActiveSessions(ctx context.Context) ([]Session, error) {
	var out struct {
		Sessions []Session `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sessions/active", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) PatchSession(ctx context.Context, sessionID string, patch PatchRequest) (*PatchResult, error) {
	var out PatchResult
	if err := c.do(ctx, http.MethodPatch, "/api/sessions/"+url.PathEscape(sessionID), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitSession(ctx context.Context, sessionID string, overdueSeconds int) (*SubmitResult, error) {
	var out SubmitResult
	body := map[string]int{"overdueTime": overdueSeconds}
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/submit", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AbandonSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(sessionID), nil, nil)
}

func (c *Client) RecordAttempt(ctx context.Context, req RecordAttemptRequest) (*SubmitResult, error) {
	var out SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/attempts", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchEndlessBatch(ctx context.Context, size int, exclude []string) ([]EndlessQuestion, error) {
	q := url.Values{}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	if len(exclude) > 0 {
		q.Set("exclude", strings.Join(exclude, ","))
	}
	path := "/api/endless/batch"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var out struct {
		Questions []EndlessQuestion `json:"questions"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}
