// internal/crawler/client.go
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

// Client is a typed wrapper over the controller's HTTP API. Every call is
// paced by a shared rate limiter, and page-bound calls carry an explicit
// session id so work stays pinned to the page it started on.
type Client struct {
	baseURL    string
	profile    string
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a client against cfg.ControllerURL. The profile id is
// stamped onto requests as the browser header, except for the default
// profile, which the controller resolves on its own.
func NewClient(cfg config.CrawlerConfig, profile string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.ControllerURL, "/"),
		profile: profile,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger.With(zap.String("component", "crawler_client")),
	}
}

// Ping checks that the controller is up and answering.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/ping", "", nil)
	if err != nil {
		return err
	}
	var out schemas.PingResponse
	return c.decode(resp, &out)
}

// StartSession opens a fresh session on the configured profile and returns
// its id.
func (c *Client) StartSession(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, "/start_session", "", nil)
	if err != nil {
		return "", err
	}
	var out schemas.SessionResponse
	if err := c.decode(resp, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("controller returned an empty session id")
	}
	return out.SessionID, nil
}

// EndSession closes a session. Ending a session that is already gone is not
// an error on the controller side.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.do(ctx, http.MethodDelete, "/end_session", sessionID, nil)
	if err != nil {
		return err
	}
	return c.decode(resp, nil)
}

// Selectors runs a selector batch against a page and returns the extracted
// values.
func (c *Client) Selectors(ctx context.Context, sessionID string, req schemas.SelectorsRequest) ([]schemas.SelectorResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/selectors", sessionID, req)
	if err != nil {
		return nil, err
	}
	var out []schemas.SelectorResult
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Capture runs an interaction sequence and returns the page text it
// produced. The interact route answers with JSON when the sequence captured
// nothing; that case returns an empty string.
func (c *Client) Capture(ctx context.Context, sessionID string, req schemas.InteractRequest) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/interact", sessionID, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read interact response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp.StatusCode, body)
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return "", nil
	}
	return string(body), nil
}

// -- Request plumbing --

func (c *Client) do(ctx context.Context, method, path, sessionID string, payload any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.profile != "" && c.profile != schemas.DefaultProfileID {
		req.Header.Set(schemas.HeaderBrowserID, c.profile)
	}
	if sessionID != "" {
		req.Header.Set(schemas.HeaderSessionID, sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// decode drains the response and unmarshals a 2xx body into out. Error
// statuses are turned into errors carrying the controller's detail string.
func (c *Client) decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

func apiError(status int, body []byte) error {
	var er schemas.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Detail != "" {
		return fmt.Errorf("controller returned status %d: %s", status, er.Detail)
	}
	return fmt.Errorf("controller returned status %d: %s", status, string(body))
}
