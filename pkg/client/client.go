// Package client is a thin HTTP client for the SPARC coordination API,
// intended for worker agents and scripts that drive the service
// remotely. It carries its own wire types so consumers outside this
// module can use it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response decoded from the service's error
// payload.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to a SPARC coordination service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL (e.g.
// "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateWorkflow creates a workflow.
func (c *Client) CreateWorkflow(ctx context.Context, req WorkflowRequest) (*Workflow, error) {
	var w Workflow
	if err := c.do(ctx, http.MethodPost, "/api/workflows", req, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWorkflow fetches a workflow by id.
func (c *Client) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	var w Workflow
	if err := c.do(ctx, http.MethodGet, "/api/workflows/"+id, nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWorkflows fetches all workflows.
func (c *Client) ListWorkflows(ctx context.Context) ([]*Workflow, error) {
	var out []*Workflow
	if err := c.do(ctx, http.MethodGet, "/api/workflows", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateWorkflow applies a partial patch.
func (c *Client) UpdateWorkflow(ctx context.Context, id string, patch WorkflowPatch) (*Workflow, error) {
	var w Workflow
	if err := c.do(ctx, http.MethodPut, "/api/workflows/"+id, patch, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// DeleteWorkflow deletes a workflow and its tasks.
func (c *Client) DeleteWorkflow(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/workflows/"+id, nil, nil)
}

// AdvancePhase moves a workflow to its next phase.
func (c *Client) AdvancePhase(ctx context.Context, id string) (*Workflow, error) {
	var w Workflow
	if err := c.do(ctx, http.MethodPost, "/api/workflows/"+id+"/advance", nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateTask creates a task under an existing workflow.
func (c *Client) CreateTask(ctx context.Context, req TaskRequest) (*Task, error) {
	var t Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", req, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTask fetches a task by id, result payload included.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+id, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks fetches tasks matching the filter.
func (c *Client) ListTasks(ctx context.Context, f TaskFilter) ([]*Task, error) {
	q := url.Values{}
	if f.WorkflowID != "" {
		q.Set("workflow_id", f.WorkflowID)
	}
	if f.Phase != "" {
		q.Set("phase", f.Phase)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	path := "/api/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []*Task
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTask applies a partial patch.
func (c *Client) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error) {
	var t Task
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+id, patch, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil)
}

// StoreResult attaches a result payload to a task.
func (c *Client) StoreResult(ctx context.Context, taskID string, result interface{}) error {
	body := map[string]interface{}{"result": result}
	return c.do(ctx, http.MethodPost, "/api/tasks/"+taskID+"/result", body, nil)
}

// RegisterAgent registers (or re-registers) an agent.
func (c *Client) RegisterAgent(ctx context.Context, req AgentRequest) (*Agent, error) {
	var a Agent
	if err := c.do(ctx, http.MethodPost, "/api/agents", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAgents fetches all registered agents.
func (c *Client) ListAgents(ctx context.Context) ([]*Agent, error) {
	var out []*Agent
	if err := c.do(ctx, http.MethodGet, "/api/agents", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestAssignment asks for the best pending task for an agent.
func (c *Client) RequestAssignment(ctx context.Context, req AssignmentRequest) (*Assignment, error) {
	body := map[string]interface{}{
		"action":      "request_assignment",
		"agent_id":    req.AgentID,
		"workflow_id": req.WorkflowID,
	}
	var a Assignment
	if err := c.do(ctx, http.MethodPost, "/api/coordination", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ReportProgress sends a progress report.
func (c *Client) ReportProgress(ctx context.Context, r ProgressReport) error {
	body := map[string]interface{}{
		"action":   "report_progress",
		"agent_id": r.AgentID,
		"task_id":  r.TaskID,
		"progress": r.Progress,
		"status":   r.Status,
		"message":  r.Message,
		"metadata": r.Metadata,
	}
	return c.do(ctx, http.MethodPost, "/api/coordination", body, nil)
}

// Notify broadcasts a notification.
func (c *Client) Notify(ctx context.Context, n Notification) error {
	body := map[string]interface{}{
		"action":        "notify",
		"message":       n.Message,
		"workflow_id":   n.WorkflowID,
		"target_agents": n.TargetAgents,
		"priority":      n.Priority,
		"metadata":      n.Metadata,
	}
	return c.do(ctx, http.MethodPost, "/api/coordination", body, nil)
}

// Messages queries the coordination log.
func (c *Client) Messages(ctx context.Context, f MessageFilter) ([]*Message, error) {
	q := url.Values{}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if f.WorkflowID != "" {
		q.Set("workflow_id", f.WorkflowID)
	}
	if f.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", f.Limit))
	}
	path := "/api/coordination/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []*Message
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Status fetches a status view into out, which should be a pointer to a
// type matching the requested view.
func (c *Client) Status(ctx context.Context, view string, out interface{}) error {
	return c.do(ctx, http.MethodGet, "/api/status?view="+url.QueryEscape(view), nil, out)
}
