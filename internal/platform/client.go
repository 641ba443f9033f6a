// Client for the paywall platform's REST API. It owns no state beyond
// the credential: every call is independent, and retry policy belongs
// to callers because some operations (project creation) must not be
// blindly retried.

package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oneclicksub/creatorctl/internal/models"
)

// Client issues authenticated requests against the platform API.
type Client struct {
	client  *http.Client
	baseURL string
	token   string
}

// New creates a new Client. An empty token is a precondition failure:
// the workflow requires a credential before any call is attempted.
func New(baseURL, token string) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	return &Client{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: baseURL,
		token:   token,
	}, nil
}

// CreateProject creates a new project (channel placeholder). This is a
// one-shot, non-idempotent call; callers must not re-invoke it within
// the same connection attempt.
func (c *Client) CreateProject(ctx context.Context, title string) (*models.Project, error) {
	payload := models.ProjectCreate{Title: title, Active: true}
	var project models.Project
	if err := c.do(ctx, http.MethodPost, "/projects/", payload, &project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &project, nil
}

// GetProject fetches a single project. Safe to call repeatedly; the
// connect workflow polls it to observe linkage progress.
func (c *Client) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%d", id), nil, &project); err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return &project, nil
}

// ListProjects returns all projects owned by the caller.
func (c *Client) ListProjects(ctx context.Context) ([]*models.Project, error) {
	var projects []*models.Project
	if err := c.do(ctx, http.MethodGet, "/projects/", nil, &projects); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// RequestConnectLink asks the platform for the bot deep-link that hands
// the given project off to Telegram. The URL is treated as opaque.
func (c *Client) RequestConnectLink(ctx context.Context, projectID int64) (string, error) {
	var link models.ConnectLink
	path := fmt.Sprintf("/projects/%d/connect-link", projectID)
	if err := c.do(ctx, http.MethodPost, path, nil, &link); err != nil {
		return "", fmt.Errorf("request connect link for project %d: %w", projectID, err)
	}
	return link.BotLink, nil
}

// CreatePlan creates a subscription plan for a project.
func (c *Client) CreatePlan(ctx context.Context, spec models.PlanCreate) (*models.Plan, error) {
	var plan models.Plan
	if err := c.do(ctx, http.MethodPost, "/plans/", spec, &plan); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	return &plan, nil
}

// ListPlansForProject returns the active plans for a project.
func (c *Client) ListPlansForProject(ctx context.Context, projectID int64) ([]*models.Plan, error) {
	var plans []*models.Plan
	path := fmt.Sprintf("/plans/project/%d", projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &plans); err != nil {
		return nil, fmt.Errorf("list plans for project %d: %w", projectID, err)
	}
	return plans, nil
}

// do builds, sends and decodes a single API request.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// classifyError maps a non-2xx response onto the error taxonomy. The
// server's detail message is preserved verbatim where present.
func classifyError(resp *http.Response) error {
	detail := readDetail(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
		}
		return ErrUnauthorized
	case http.StatusNotFound:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, detail)
		}
		return ErrNotFound
	case http.StatusConflict:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrNotReady, detail)
		}
		return ErrNotReady
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: detail}
}

// readDetail extracts the error message from a FastAPI-style
// {"detail": ...} body, falling back to {"error": ...}.
func readDetail(r io.Reader) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return payload.Error
}
