package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/quarry/sparc/internal/coord"
	"github.com/quarry/sparc/internal/status"
)

// newTestServer creates a Handler over a fresh in-memory state (no
// Postgres/Redis).
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	state := coord.NewState(coord.Options{Logger: logger})
	agg := status.New(state, logger)
	h := NewHandler(state, agg, logger)
	ts := httptest.NewServer(h.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func putJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest("PUT", ts.URL+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT %s: %v", path, err)
	}
	return resp
}

func getJSON(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func deleteReq(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest("DELETE", ts.URL+path, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// --- Tests ---

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	resp := getJSON(t, ts, "/api/health")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestWorkflowCRUD(t *testing.T) {
	ts := newTestServer(t)

	// create with default phases
	resp := postJSON(t, ts, "/api/workflows", map[string]interface{}{"name": "Acme Build"})
	if resp.StatusCode != 201 {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var wf coord.Workflow
	decodeJSON(t, resp, &wf)
	if wf.CurrentPhase != "specification" || wf.Status != coord.WorkflowInitialized {
		t.Errorf("unexpected create result: %q %q", wf.CurrentPhase, wf.Status)
	}
	if len(wf.Phases) != 5 {
		t.Errorf("expected 5 default phases, got %v", wf.Phases)
	}

	// missing name is a 400
	resp = postJSON(t, ts, "/api/workflows", map[string]interface{}{})
	if resp.StatusCode != 400 {
		t.Errorf("create without name: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// read
	resp = getJSON(t, ts, "/api/workflows/"+wf.ID)
	if resp.StatusCode != 200 {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getJSON(t, ts, "/api/workflows/nope")
	if resp.StatusCode != 404 {
		t.Errorf("get missing: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// list
	resp = getJSON(t, ts, "/api/workflows")
	var list []coord.Workflow
	decodeJSON(t, resp, &list)
	if len(list) != 1 {
		t.Errorf("list: expected 1, got %d", len(list))
	}

	// partial update
	resp = putJSON(t, ts, "/api/workflows/"+wf.ID, map[string]interface{}{"name": "Renamed"})
	if resp.StatusCode != 200 {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	var updated coord.Workflow
	decodeJSON(t, resp, &updated)
	if updated.Name != "Renamed" {
		t.Errorf("update: expected Renamed, got %q", updated.Name)
	}
	if len(updated.Phases) != 5 {
		t.Errorf("update clobbered phases: %v", updated.Phases)
	}

	// delete
	resp = deleteReq(t, ts, "/api/workflows/"+wf.ID)
	if resp.StatusCode != 200 {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = deleteReq(t, ts, "/api/workflows/"+wf.ID)
	if resp.StatusCode != 404 {
		t.Errorf("double delete: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestWorkflowAdvanceLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/workflows", map[string]interface{}{"name": "wf"})
	var wf coord.Workflow
	decodeJSON(t, resp, &wf)

	var last coord.Workflow
	for i := 0; i < 5; i++ {
		resp = postJSON(t, ts, "/api/workflows/"+wf.ID+"/advance", nil)
		if resp.StatusCode != 200 {
			t.Fatalf("advance %d: expected 200, got %d", i, resp.StatusCode)
		}
		decodeJSON(t, resp, &last)
	}
	if last.Status != coord.WorkflowCompleted {
		t.Errorf("expected completed after 5 advances, got %q", last.Status)
	}

	// sixth is a no-op
	resp = postJSON(t, ts, "/api/workflows/"+wf.ID+"/advance", nil)
	var again coord.Workflow
	decodeJSON(t, resp, &again)
	if again.Status != coord.WorkflowCompleted || again.CurrentPhase != last.CurrentPhase {
		t.Errorf("post-completion advance changed state")
	}
}

func TestTaskEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/workflows", map[string]interface{}{"name": "wf"})
	var wf coord.Workflow
	decodeJSON(t, resp, &wf)

	// create against missing workflow is a 404
	resp = postJSON(t, ts, "/api/tasks", map[string]interface{}{
		"workflow_id": "ghost", "name": "t", "phase": "specification",
	})
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// missing phase is a 400
	resp = postJSON(t, ts, "/api/tasks", map[string]interface{}{
		"workflow_id": wf.ID, "name": "t",
	})
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts, "/api/tasks", map[string]interface{}{
		"workflow_id": wf.ID,
		"name":        "Analyze reqs",
		"phase":       "specification",
		"priority":    "high",
	})
	if resp.StatusCode != 201 {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var task coord.Task
	decodeJSON(t, resp, &task)
	if task.Status != coord.TaskPending || task.StartedAt != nil {
		t.Errorf("unexpected new task state: %q", task.Status)
	}

	// parent workflow now references the task
	resp = getJSON(t, ts, "/api/workflows/"+wf.ID)
	var reloaded coord.Workflow
	decodeJSON(t, resp, &reloaded)
	if len(reloaded.TaskIDs) != 1 || reloaded.TaskIDs[0] != task.ID {
		t.Errorf("workflow task list: %v", reloaded.TaskIDs)
	}

	// filtered list
	resp = getJSON(t, ts, "/api/tasks?workflow_id="+wf.ID+"&phase=specification")
	var tasks []coord.Task
	decodeJSON(t, resp, &tasks)
	if len(tasks) != 1 {
		t.Errorf("filtered list: expected 1, got %d", len(tasks))
	}
	resp = getJSON(t, ts, "/api/tasks?status=completed")
	tasks = nil
	decodeJSON(t, resp, &tasks)
	if len(tasks) != 0 {
		t.Errorf("status filter: expected 0, got %d", len(tasks))
	}

	// result round-trip
	resp = postJSON(t, ts, "/api/tasks/"+task.ID+"/result", map[string]interface{}{
		"result": map[string]interface{}{"findings": 3},
	})
	if resp.StatusCode != 201 {
		t.Fatalf("store result: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getJSON(t, ts, "/api/tasks/"+task.ID)
	var withResult coord.Task
	decodeJSON(t, resp, &withResult)
	if withResult.Result == nil {
		t.Error("result not merged into single-task read")
	}

	// delete cleans the workflow reference
	resp = deleteReq(t, ts, "/api/tasks/"+task.ID)
	if resp.StatusCode != 200 {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getJSON(t, ts, "/api/workflows/"+wf.ID)
	decodeJSON(t, resp, &reloaded)
	if len(reloaded.TaskIDs) != 0 {
		t.Errorf("dangling task reference: %v", reloaded.TaskIDs)
	}
}

func TestAgentRegistration(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/agents", map[string]interface{}{"id": "agent-1"})
	if resp.StatusCode != 400 {
		t.Errorf("missing type: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts, "/api/agents", map[string]interface{}{
		"id":           "agent-1",
		"type":         "coder",
		"capabilities": []string{"go", "sql"},
	})
	if resp.StatusCode != 201 {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var a coord.Agent
	decodeJSON(t, resp, &a)
	if a.Status != coord.AgentActive {
		t.Errorf("expected active, got %q", a.Status)
	}

	resp = getJSON(t, ts, "/api/agents")
	var agents []coord.Agent
	decodeJSON(t, resp, &agents)
	if len(agents) != 1 {
		t.Errorf("expected 1 agent, got %d", len(agents))
	}
}

// TestCoordinationRoundTrip drives the full protocol through the action
// endpoint: register, create work, request assignment, report progress
// twice, then inspect the log.
func TestCoordinationRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/workflows", map[string]interface{}{"name": "Acme Build"})
	var wf coord.Workflow
	decodeJSON(t, resp, &wf)

	resp = postJSON(t, ts, "/api/tasks", map[string]interface{}{
		"workflow_id": wf.ID, "name": "Analyze reqs", "phase": "specification", "priority": "high",
	})
	var task coord.Task
	decodeJSON(t, resp, &task)

	resp = postJSON(t, ts, "/api/coordination", map[string]interface{}{
		"action": "register_agent", "agent_id": "agent-1", "agent_type": "researcher",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("register_agent: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// assignment picks the only pending task
	resp = postJSON(t, ts, "/api/coordination", map[string]interface{}{
		"action": "request_assignment", "agent_id": "agent-1", "workflow_id": wf.ID,
	})
	var assignment coord.Assignment
	decodeJSON(t, resp, &assignment)
	if assignment.Task == nil || assignment.Task.ID != task.ID {
		t.Fatalf("expected task assigned, got %+v", assignment)
	}
	if assignment.Task.Assignee != "agent-1" || assignment.Task.Status != coord.TaskAssigned {
		t.Errorf("assignment fields: %q %q", assignment.Task.Assignee, assignment.Task.Status)
	}

	// two progress reports walk the task to completion
	for _, st := range []string{"in_progress", "completed"} {
		resp = postJSON(t, ts, "/api/coordination", map[string]interface{}{
			"action": "report_progress", "agent_id": "agent-1", "task_id": task.ID, "status": st,
		})
		if resp.StatusCode != 200 {
			t.Fatalf("report_progress %s: expected 200, got %d", st, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp = getJSON(t, ts, "/api/tasks/"+task.ID)
	var done coord.Task
	decodeJSON(t, resp, &done)
	if done.Status != coord.TaskCompleted || done.StartedAt == nil || done.CompletedAt == nil {
		t.Errorf("task not completed: %q", done.Status)
	}

	// the log saw registration, assignment, and both reports
	resp = getJSON(t, ts, "/api/coordination/messages?type=progress_report")
	var reports []coord.Message
	decodeJSON(t, resp, &reports)
	if len(reports) != 2 {
		t.Errorf("expected 2 progress reports, got %d", len(reports))
	}
	resp = getJSON(t, ts, "/api/coordination/messages?type=task_assigned&workflow_id="+wf.ID)
	var assigned []coord.Message
	decodeJSON(t, resp, &assigned)
	if len(assigned) != 1 {
		t.Errorf("expected 1 assignment entry, got %d", len(assigned))
	}
}

func TestCoordinationActions(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/coordination", map[string]interface{}{
		"action": "notify", "message": "deploy window open", "priority": "high",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("notify: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts, "/api/coordination", map[string]interface{}{
		"action": "sync_memory", "agent_id": "agent-1",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("sync_memory: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts, "/api/coordination", map[string]interface{}{"action": "explode"})
	if resp.StatusCode != 400 {
		t.Errorf("unknown action: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// empty assignment is a 200 with a null task
	resp = postJSON(t, ts, "/api/coordination", map[string]interface{}{
		"action": "request_assignment", "agent_id": "agent-1",
	})
	var assignment coord.Assignment
	decodeJSON(t, resp, &assignment)
	if assignment.Task != nil || assignment.Candidates != 0 {
		t.Errorf("expected empty assignment, got %+v", assignment)
	}

	resp = getJSON(t, ts, "/api/coordination/messages?limit=1")
	var msgs []coord.Message
	decodeJSON(t, resp, &msgs)
	if len(msgs) != 1 {
		t.Errorf("limit: expected 1, got %d", len(msgs))
	}

	resp = getJSON(t, ts, "/api/coordination/messages?limit=-3")
	if resp.StatusCode != 400 {
		t.Errorf("bad limit: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestStatusViews(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/workflows", map[string]interface{}{"name": "wf"})
	var wf coord.Workflow
	decodeJSON(t, resp, &wf)
	resp = postJSON(t, ts, "/api/tasks", map[string]interface{}{
		"workflow_id": wf.ID, "name": "t", "phase": "specification",
	})
	resp.Body.Close()

	resp = getJSON(t, ts, "/api/status")
	var overview status.Overview
	decodeJSON(t, resp, &overview)
	if overview.ActiveWorkflows != 1 || overview.TotalTasks != 1 {
		t.Errorf("overview counts: %+v", overview)
	}

	resp = getJSON(t, ts, "/api/status?view=health")
	var health status.Health
	decodeJSON(t, resp, &health)
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %q", health.Status)
	}
	if len(health.Checks) != 4 {
		t.Errorf("expected 4 checks, got %d", len(health.Checks))
	}

	resp = getJSON(t, ts, "/api/status?view=metrics")
	var metrics status.Metrics
	decodeJSON(t, resp, &metrics)
	if metrics.Tasks.ByStatus["pending"] != 1 {
		t.Errorf("metrics task breakdown: %+v", metrics.Tasks.ByStatus)
	}

	for _, view := range []string{"performance", "workflows", "tasks", "agents"} {
		resp = getJSON(t, ts, "/api/status?view="+view)
		if resp.StatusCode != 200 {
			t.Errorf("view %s: expected 200, got %d", view, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp = getJSON(t, ts, "/api/status?view=bogus")
	if resp.StatusCode != 400 {
		t.Errorf("unknown view: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
