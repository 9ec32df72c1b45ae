// Package confluence is a thin Confluence REST wrapper for pages, spaces
// and CQL search.
package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds the connection settings. BaseURL is the site root, for
// example https://example.atlassian.net/wiki.
type Config struct {
	BaseURL string
	Email   string
	Token   string
	Timeout time.Duration
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// Client calls the Confluence content and space APIs.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a client for cfg.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

func (c *Client) authenticateRequest(req *http.Request) {
	if c.cfg.Email != "" {
		req.SetBasicAuth(c.cfg.Email, c.cfg.Token)
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
}

// call sends a request to /rest/api<path>. what names the resource in
// error messages.
func (c *Client) call(ctx context.Context, method, path string, params url.Values, in, out any, what string) error {
	u := c.cfg.BaseURL + "/rest/api" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authenticateRequest(req)

	log.Debug().Str("method", method).Str("path", req.URL.Path).Msg("Confluence request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Confluence request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read Confluence response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp, data, what)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode Confluence response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response, data []byte, what string) *APIError {
	e := &APIError{StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		var body struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &body) != nil || body.Message == "" {
			body.Message = "bad request"
		}
		e.Message = "Invalid request for " + what + ": " + body.Message
	case http.StatusUnauthorized:
		e.Message = "Confluence authentication failed. Please check CONFLUENCE_EMAIL and CONFLUENCE_TOKEN."
	case http.StatusForbidden:
		e.Message = "No permission to access " + what
	case http.StatusNotFound:
		e.Message = strings.ToUpper(what[:1]) + what[1:] + " not found"
	case http.StatusConflict:
		e.Message = "Version conflict on " + what + "; fetch the page and retry"
	case http.StatusTooManyRequests:
		e.Message = "Confluence rate limit exceeded (429)."
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			e.Message = fmt.Sprintf("Confluence rate limit exceeded (429). Retry after %s seconds.", ra)
		}
	default:
		e.Message = fmt.Sprintf("Confluence API error %d for %s", resp.StatusCode, what)
	}
	return e
}
