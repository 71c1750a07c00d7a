package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/quarry/sparc/internal/api"
	"github.com/quarry/sparc/internal/coord"
	"github.com/quarry/sparc/internal/status"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	logger := zap.NewNop()
	state := coord.NewState(coord.Options{Logger: logger})
	h := api.NewHandler(state, status.New(state, logger), logger)
	ts := httptest.NewServer(h.Router())
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

// The whole lifecycle runs through the client's own request and
// response types; nothing here needs the service's domain package.
func TestClientWorkflowLifecycle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	w, err := c.CreateWorkflow(ctx, WorkflowRequest{Name: "Acme Build"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.CurrentPhase != "specification" {
		t.Errorf("expected specification, got %q", w.CurrentPhase)
	}
	if w.Status != WorkflowInitialized {
		t.Errorf("expected initialized, got %q", w.Status)
	}

	task, err := c.CreateTask(ctx, TaskRequest{
		WorkflowID: w.ID, Name: "t", Phase: "specification", Priority: PriorityHigh,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := c.RegisterAgent(ctx, AgentRequest{ID: "agent-1", Type: "coder"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	a, err := c.RequestAssignment(ctx, AssignmentRequest{AgentID: "agent-1", WorkflowID: w.ID})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if a.Task == nil || a.Task.ID != task.ID {
		t.Fatalf("expected assignment of %s, got %+v", task.ID, a)
	}
	if a.Task.Status != TaskAssigned {
		t.Errorf("expected assigned, got %q", a.Task.Status)
	}

	if err := c.ReportProgress(ctx, ProgressReport{
		AgentID: "agent-1", TaskID: task.ID, Status: TaskCompleted,
	}); err != nil {
		t.Fatalf("report: %v", err)
	}

	got, err := c.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != TaskCompleted {
		t.Errorf("expected completed, got %q", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("completedAt not set")
	}

	msgs, err := c.Messages(ctx, MessageFilter{Type: MessageTaskAssigned})
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("expected 1 assignment message, got %d", len(msgs))
	}
}

func TestClientPartialUpdate(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	w, err := c.CreateWorkflow(ctx, WorkflowRequest{Name: "old", Type: "sparc"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "new"
	updated, err := c.UpdateWorkflow(ctx, w.ID, WorkflowPatch{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "new" || updated.Type != "sparc" {
		t.Errorf("patch applied wrong: %q %q", updated.Name, updated.Type)
	}
}

func TestClientErrorMapping(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.GetWorkflow(ctx, "ghost")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 404 {
		t.Errorf("expected 404, got %d", apiErr.StatusCode)
	}

	_, err = c.CreateWorkflow(ctx, WorkflowRequest{})
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 400 {
		t.Errorf("expected 400 APIError, got %v", err)
	}
}

func TestClientStatusView(t *testing.T) {
	c := newTestClient(t)

	var overview struct {
		Service         string `json:"service"`
		ActiveWorkflows int    `json:"active_workflows"`
	}
	if err := c.Status(context.Background(), "overview", &overview); err != nil {
		t.Fatalf("status: %v", err)
	}
	if overview.Service != "sparc-coordination" {
		t.Errorf("unexpected service name: %q", overview.Service)
	}
}
