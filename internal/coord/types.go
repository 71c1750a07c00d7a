package coord

import "time"

// WorkflowStatus tracks a workflow's position in its lifecycle.
type WorkflowStatus string

const (
	WorkflowInitialized WorkflowStatus = "initialized"
	WorkflowInProgress  WorkflowStatus = "in_progress"
	WorkflowCompleted   WorkflowStatus = "completed"
)

// TaskStatus tracks execution state of a single task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Priority orders tasks for assignment. Unknown values rank as medium.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// rank maps a priority to its sort weight for assignment ordering.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// AgentStatus tracks a registered agent's availability.
type AgentStatus string

const (
	AgentActive AgentStatus = "active"
	AgentIdle   AgentStatus = "idle"
	AgentBusy   AgentStatus = "busy"
)

// MessageType classifies coordination log entries.
type MessageType string

const (
	MessageAgentRegistered MessageType = "agent_registered"
	MessageNotification    MessageType = "notification"
	MessageTaskAssigned    MessageType = "task_assigned"
	MessageProgressReport  MessageType = "progress_report"
	MessageMemorySync      MessageType = "memory_sync"
)

// DefaultPhases is the phase sequence used when a workflow is created
// without an explicit one.
var DefaultPhases = []string{"specification", "pseudocode", "architecture", "refinement", "completion"}

// Workflow is a named, multi-phase unit of work with an ordered phase
// sequence and a current position within it.
type Workflow struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Type         string                 `json:"type,omitempty"`
	Phases       []string               `json:"phases"`
	Status       WorkflowStatus         `json:"status"`
	CurrentPhase string                 `json:"current_phase"`
	TaskIDs      []string               `json:"task_ids"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Task is a unit of work belonging to a workflow.
type Task struct {
	ID           string                 `json:"id"`
	WorkflowID   string                 `json:"workflow_id"`
	Name         string                 `json:"name"`
	Phase        string                 `json:"phase"`
	Type         string                 `json:"type,omitempty"`
	Priority     Priority               `json:"priority"`
	Assignee     string                 `json:"assignee,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Dependencies []string               `json:"dependencies,omitempty"`
	Status       TaskStatus             `json:"status"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Result       interface{}            `json:"result,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

// Agent is a registered worker identity that can be assigned tasks and
// report progress. IDs are caller-supplied.
type Agent struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Capabilities []string               `json:"capabilities,omitempty"`
	Status       AgentStatus            `json:"status"`
	WorkflowID   string                 `json:"workflow_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	RegisteredAt time.Time              `json:"registered_at"`
	LastActivity time.Time              `json:"last_activity"`
}

// Message is one entry in the capped coordination log.
type Message struct {
	ID         string                 `json:"id"`
	Type       MessageType            `json:"type"`
	AgentID    string                 `json:"agent_id,omitempty"`
	WorkflowID string                 `json:"workflow_id,omitempty"`
	TaskID     string                 `json:"task_id,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Targets    []string               `json:"targets,omitempty"`
	Priority   string                 `json:"priority,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// TaskResult is an opaque result payload stored against a task id.
type TaskResult struct {
	TaskID   string      `json:"task_id"`
	Result   interface{} `json:"result"`
	StoredAt time.Time   `json:"stored_at"`
}

// Handlers encode records outside the state lock, so the state only ever
// hands out copies.

func (w *Workflow) clone() *Workflow {
	cp := *w
	cp.Phases = append([]string(nil), w.Phases...)
	cp.TaskIDs = append([]string(nil), w.TaskIDs...)
	cp.Metadata = cloneMap(w.Metadata)
	return &cp
}

func (t *Task) clone() *Task {
	cp := *t
	cp.Dependencies = append([]string(nil), t.Dependencies...)
	cp.Metadata = cloneMap(t.Metadata)
	if t.StartedAt != nil {
		v := *t.StartedAt
		cp.StartedAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		cp.CompletedAt = &v
	}
	return &cp
}

func (a *Agent) clone() *Agent {
	cp := *a
	cp.Capabilities = append([]string(nil), a.Capabilities...)
	cp.Metadata = cloneMap(a.Metadata)
	return &cp
}

func (m *Message) clone() *Message {
	cp := *m
	cp.Targets = append([]string(nil), m.Targets...)
	cp.Metadata = cloneMap(m.Metadata)
	return &cp
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	cp := make(map[string]interface{}, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
