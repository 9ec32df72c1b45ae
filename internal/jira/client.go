// Package jira is a thin JIRA REST (v2) wrapper. Calls are fallible and
// never retried; the caller decides whether to try again.
package jira

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
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Config holds the authentication and connection settings for JIRA.
type Config struct {
	BaseURL string

	// Email and Token select basic auth (cloud). Token alone is sent as a
	// bearer personal access token (data center).
	Email string
	Token string

	// KnowledgeField is the custom field searched by SearchKnowledge, for
	// example "customfield_10100". Empty searches the issue text.
	KnowledgeField string

	RequestDelay time.Duration
	Timeout      time.Duration
}

// Client is the set of JIRA endpoints the tools use.
type Client interface {
	SearchIssues(ctx context.Context, jql string, startAt, maxResults int, fields ...string) (*SearchResponse, error)
	GetIssue(ctx context.Context, key string, expand ...string) (*Issue, error)
	CreateIssue(ctx context.Context, fields map[string]any) (*CreatedIssue, error)
	GetComments(ctx context.Context, key string, startAt, maxResults int) (*CommentPage, error)
	AddComment(ctx context.Context, key, body string, visibility *Visibility) (*Comment, error)
	UpdateComment(ctx context.Context, key, id, body string, visibility *Visibility) (*Comment, error)
	DeleteComment(ctx context.Context, key, id string) error
	Download(ctx context.Context, contentURL string) ([]byte, error)
	GetProjects(ctx context.Context) ([]Project, error)
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// IsNotFound reports whether err is a 404 from JIRA.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type restClient struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter

	projectsMu  sync.Mutex
	projects    []Project
	projectsExp time.Time
}

// NewClient creates a REST client for cfg.
func NewClient(cfg Config) Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	return &restClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

func (c *restClient) authenticateRequest(req *http.Request) {
	if c.cfg.Email != "" {
		req.SetBasicAuth(c.cfg.Email, c.cfg.Token)
		return
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
}

// send performs one request against rawURL and returns the response body.
func (c *restClient) send(ctx context.Context, method, rawURL string, in any, what string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", what, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authenticateRequest(req)

	log.Debug().Str("method", method).Str("path", req.URL.Path).Msg("JIRA request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("JIRA request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read JIRA response: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr.Message = fmt.Sprintf("JIRA authentication failed (%d). Please check JIRA_EMAIL and JIRA_TOKEN.", resp.StatusCode)
	case http.StatusNotFound:
		apiErr.Message = fmt.Sprintf("%s not found", what)
	case http.StatusTooManyRequests:
		apiErr.Message = "JIRA rate limit exceeded (429)."
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			apiErr.Message = fmt.Sprintf("JIRA rate limit exceeded (429). Retry after %s seconds.", retryAfter)
		}
	case http.StatusBadRequest:
		apiErr.Message = "JIRA rejected the request: " + errorDetail(data)
	default:
		apiErr.Message = fmt.Sprintf("JIRA API returned status %d for %s", resp.StatusCode, what)
	}
	return nil, apiErr
}

// errorDetail extracts errorMessages and field errors from a JIRA error body.
func errorDetail(data []byte) string {
	var body struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if json.Unmarshal(data, &body) != nil {
		return strings.TrimSpace(string(data))
	}
	parts := append([]string(nil), body.ErrorMessages...)
	for field, msg := range body.Errors {
		parts = append(parts, field+": "+msg)
	}
	if len(parts) == 0 {
		return "bad request"
	}
	return strings.Join(parts, "; ")
}

func (c *restClient) call(ctx context.Context, method, path string, params url.Values, in, out any, what string) error {
	u := c.cfg.BaseURL + "/rest/api/2" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	data, err := c.send(ctx, method, u, in, what)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", what, err)
	}
	return nil
}

func (c *restClient) SearchIssues(ctx context.Context, jql string, startAt, maxResults int, fields ...string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("jql", jql)
	params.Set("startAt", fmt.Sprint(startAt))
	params.Set("maxResults", fmt.Sprint(maxResults))
	if len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}
	var out SearchResponse
	if err := c.call(ctx, http.MethodGet, "/search", params, nil, &out, "search"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *restClient) GetIssue(ctx context.Context, key string, expand ...string) (*Issue, error) {
	params := url.Values{}
	if len(expand) > 0 {
		params.Set("expand", strings.Join(expand, ","))
	}
	var out Issue
	if err := c.call(ctx, http.MethodGet, "/issue/"+url.PathEscape(key), params, nil, &out, "issue "+key); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *restClient) CreateIssue(ctx context.Context, fields map[string]any) (*CreatedIssue, error) {
	var out CreatedIssue
	if err := c.call(ctx, http.MethodPost, "/issue", nil, map[string]any{"fields": fields}, &out, "create issue"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *restClient) GetComments(ctx context.Context, key string, startAt, maxResults int) (*CommentPage, error) {
	params := url.Values{}
	params.Set("startAt", fmt.Sprint(startAt))
	params.Set("maxResults", fmt.Sprint(maxResults))
	var out CommentPage
	if err := c.call(ctx, http.MethodGet, "/issue/"+url.PathEscape(key)+"/comment", params, nil, &out, "comments of "+key); err != nil {
		return nil, err
	}
	return &out, nil
}

func commentBody(body string, visibility *Visibility) map[string]any {
	in := map[string]any{"body": body}
	if visibility != nil {
		in["visibility"] = visibility
	}
	return in
}

func (c *restClient) AddComment(ctx context.Context, key, body string, visibility *Visibility) (*Comment, error) {
	var out Comment
	if err := c.call(ctx, http.MethodPost, "/issue/"+url.PathEscape(key)+"/comment", nil,
		commentBody(body, visibility), &out, "issue "+key); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *restClient) UpdateComment(ctx context.Context, key, id, body string, visibility *Visibility) (*Comment, error) {
	var out Comment
	path := "/issue/" + url.PathEscape(key) + "/comment/" + url.PathEscape(id)
	if err := c.call(ctx, http.MethodPut, path, nil, commentBody(body, visibility), &out, "comment "+id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *restClient) DeleteComment(ctx context.Context, key, id string) error {
	path := "/issue/" + url.PathEscape(key) + "/comment/" + url.PathEscape(id)
	return c.call(ctx, http.MethodDelete, path, nil, nil, nil, "comment "+id)
}

// Download fetches an attachment body. contentURL must point at the
// configured JIRA host so credentials are never sent elsewhere.
func (c *restClient) Download(ctx context.Context, contentURL string) ([]byte, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	target, err := url.Parse(contentURL)
	if err != nil {
		return nil, fmt.Errorf("invalid content url: %w", err)
	}
	if !target.IsAbs() {
		target = base.ResolveReference(target)
	}
	if target.Host != base.Host {
		return nil, fmt.Errorf("content url host %q does not match JIRA host %q", target.Host, base.Host)
	}
	return c.send(ctx, http.MethodGet, target.String(), nil, "attachment")
}

// GetProjects returns every visible project. The list is cached for five
// minutes.
func (c *restClient) GetProjects(ctx context.Context) ([]Project, error) {
	c.projectsMu.Lock()
	defer c.projectsMu.Unlock()
	if c.projects != nil && time.Now().Before(c.projectsExp) {
		log.Debug().Msg("JIRA projects cache hit")
		return c.projects, nil
	}
	var out []Project
	params := url.Values{}
	params.Set("expand", "description,lead")
	if err := c.call(ctx, http.MethodGet, "/project", params, nil, &out, "projects"); err != nil {
		return nil, err
	}
	c.projects = out
	c.projectsExp = time.Now().Add(5 * time.Minute)
	return out, nil
}
