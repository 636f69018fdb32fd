package crewboardsdk

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

	"github.com/cenkalti/backoff/v4"
)

// Client is a minimal Crewboard HTTP API client.
type Client struct {
	BaseURL    string
	ProjectID  string
	AgentID    string
	HTTPClient *http.Client
	Timeout    time.Duration
	MaxRetries uint64
}

// New creates a client with sane defaults.
func New(baseURL, projectID, agentID string) *Client {
	return &Client{
		BaseURL:    baseURL,
		ProjectID:  projectID,
		AgentID:    agentID,
		Timeout:    10 * time.Second,
		MaxRetries: 3,
	}
}

// Item represents the API item model.
type Item struct {
	ID             string   `json:"id"`
	ProjectID      string   `json:"project_id"`
	MissionID      string   `json:"mission_id,omitempty"`
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Priority       int      `json:"priority"`
	StageID        string   `json:"stage_id"`
	AssignedAgent  string   `json:"assigned_agent,omitempty"`
	RejectionCount int      `json:"rejection_count"`
	DependsOn      []string `json:"depends_on,omitempty"`
	UpdatedAt      string   `json:"updated_at"`
	ArchivedAt     string   `json:"archived_at,omitempty"`
}

// Claim represents item ownership.
type Claim struct {
	ItemID    string `json:"item_id"`
	ProjectID string `json:"project_id"`
	Agent     string `json:"agent"`
	ClaimedAt string `json:"claimed_at"`
}

// Mission groups items.
type Mission struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	CompletedAt string `json:"completed_at,omitempty"`
	ArchivedAt  string `json:"archived_at,omitempty"`
}

// DependencyReport is the dependency check result.
type DependencyReport struct {
	Valid        bool       `json:"valid"`
	Cycles       [][]string `json:"cycles"`
	ReadyItems   []string   `json:"ready_items"`
	BlockedItems []string   `json:"blocked_items"`
}

// ActivityEntry is one activity log line.
type ActivityEntry struct {
	TS      string `json:"ts"`
	Agent   string `json:"agent"`
	Message string `json:"message"`
	ItemID  string `json:"item_id,omitempty"`
}

// APIError wraps non-2xx responses. 4xx responses are returned as-is; the
// request is never retried.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ErrRetriesExhausted wraps the last error after retryable failures (5xx or
// network) used up the retry budget.
var ErrRetriesExhausted = errors.New("retries exhausted")

// CreateItem creates an item on the board.
func (c *Client) CreateItem(ctx context.Context, title, itemType string, dependsOn []string) (Item, error) {
	body := map[string]any{
		"title": title,
		"type":  itemType,
	}
	if len(dependsOn) > 0 {
		body["depends_on"] = dependsOn
	}
	var resp Item
	err := c.do(ctx, http.MethodPost, c.projectPath("items"), body, &resp)
	return resp, err
}

// GetItem fetches an item by id.
func (c *Client) GetItem(ctx context.Context, id string) (Item, error) {
	var resp Item
	err := c.do(ctx, http.MethodGet, c.projectPath("items/"+url.PathEscape(id)), nil, &resp)
	return resp, err
}

// ListItems returns the project's items, optionally filtered by stage.
func (c *Client) ListItems(ctx context.Context, stageID string) ([]Item, error) {
	endpoint := c.projectPath("items")
	if stageID != "" {
		endpoint += "?stage=" + url.QueryEscape(stageID)
	}
	var resp struct {
		Items []Item `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// ClaimItem claims an item for this client's agent.
func (c *Client) ClaimItem(ctx context.Context, id string) (Claim, error) {
	var resp Claim
	err := c.do(ctx, http.MethodPost, c.projectPath(fmt.Sprintf("items/%s/claim", url.PathEscape(id))), nil, &resp)
	return resp, err
}

// ReleaseItem releases a claim this client's agent holds.
func (c *Client) ReleaseItem(ctx context.Context, id string) (Item, error) {
	var resp Item
	err := c.do(ctx, http.MethodPost, c.projectPath(fmt.Sprintf("items/%s/release", url.PathEscape(id))), nil, &resp)
	return resp, err
}

// RejectItem sends an item back to blocked with a reason.
func (c *Client) RejectItem(ctx context.Context, id, reason string) (Item, error) {
	var resp Item
	err := c.do(ctx, http.MethodPost, c.projectPath(fmt.Sprintf("items/%s/reject", url.PathEscape(id))),
		map[string]any{"reason": reason}, &resp)
	return resp, err
}

// MoveItem transitions an item to another stage.
func (c *Client) MoveItem(ctx context.Context, id, toStage string) (Item, error) {
	var resp Item
	err := c.do(ctx, http.MethodPost, c.projectPath(fmt.Sprintf("items/%s/move", url.PathEscape(id))),
		map[string]any{"to_stage": toStage}, &resp)
	return resp, err
}

// CheckDependencies evaluates the project dependency graph.
func (c *Client) CheckDependencies(ctx context.Context) (DependencyReport, error) {
	var resp DependencyReport
	err := c.do(ctx, http.MethodGet, c.projectPath("dependencies/check"), nil, &resp)
	return resp, err
}

// CreateMission creates a mission.
func (c *Client) CreateMission(ctx context.Context, name string) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodPost, c.projectPath("missions"), map[string]any{"name": name}, &resp)
	return resp, err
}

// ArchiveMission archives a mission and its items.
func (c *Client) ArchiveMission(ctx context.Context, id string) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodPost, c.projectPath(fmt.Sprintf("missions/%s/archive", url.PathEscape(id))), nil, &resp)
	return resp, err
}

// CompleteMission marks a mission completed once all its items are done.
func (c *Client) CompleteMission(ctx context.Context, id string) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodPost, c.projectPath(fmt.Sprintf("missions/%s/complete", url.PathEscape(id))), nil, &resp)
	return resp, err
}

// Event is one audit log record.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	AgentID    string `json:"agent_id"`
	Payload    string `json:"payload,omitempty"`
}

// Events returns recent audit events, newest first. The endpoint responds
// with a bare JSON array.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := c.projectPath("events")
	if limit > 0 {
		endpoint += fmt.Sprintf("?limit=%d", limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// AppendActivity appends one entry to the shared activity log.
func (c *Client) AppendActivity(ctx context.Context, message, itemID string) (ActivityEntry, error) {
	body := map[string]any{"message": message}
	if itemID != "" {
		body["item_id"] = itemID
	}
	var resp ActivityEntry
	err := c.do(ctx, http.MethodPost, c.projectPath("activity"), body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	attempt := func() error {
		return c.doOnce(ctx, method, endpoint, payload, out)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.MaxRetries), ctx)
	err := backoff.Retry(attempt, policy)
	if err == nil {
		return nil
	}
	// Only a retryable failure that survived the whole budget counts as
	// exhausted. A 4xx or decode error comes back as-is.
	var re *retryableError
	if errors.As(err, &re) {
		return fmt.Errorf("%w: %w", ErrRetriesExhausted, re.err)
	}
	return err
}

// retryableError marks a failure worth retrying: a 5xx response or a
// network-level error. Everything else is permanent.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (c *Client) doOnce(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.AgentID != "" {
		req.Header.Set("X-Agent-Id", c.AgentID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &retryableError{err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		if resp.StatusCode >= 500 {
			return &retryableError{apiErr}
		}
		// Client errors will not improve with retries.
		return backoff.Permanent(apiErr)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(err)
		}
	}
	return nil
}

func (c *Client) projectPath(p string) string {
	project := url.PathEscape(c.ProjectID)
	return fmt.Sprintf("v0/projects/%s/%s", project, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
