package client

import "time"

// Wire types for the coordination API. Statuses and priorities travel
// as plain strings; the constants below cover the values the service
// emits.

const (
	WorkflowInitialized = "initialized"
	WorkflowInProgress  = "in_progress"
	WorkflowCompleted   = "completed"

	TaskPending    = "pending"
	TaskAssigned   = "assigned"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
	TaskFailed     = "failed"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"

	AgentActive = "active"
	AgentIdle   = "idle"
	AgentBusy   = "busy"

	MessageAgentRegistered = "agent_registered"
	MessageNotification    = "notification"
	MessageTaskAssigned    = "task_assigned"
	MessageProgressReport  = "progress_report"
	MessageMemorySync      = "memory_sync"
)

// Workflow is a multi-phase unit of work as returned by the service.
type Workflow struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Type         string                 `json:"type,omitempty"`
	Phases       []string               `json:"phases"`
	Status       string                 `json:"status"`
	CurrentPhase string                 `json:"current_phase"`
	TaskIDs      []string               `json:"task_ids"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// WorkflowRequest creates a workflow. Name is required; phases default
// to the SPARC sequence when omitted.
type WorkflowRequest struct {
	Name     string                 `json:"name"`
	Type     string                 `json:"type,omitempty"`
	Phases   []string               `json:"phases,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// WorkflowPatch is a partial workflow update. Nil fields are left
// untouched by the service.
type WorkflowPatch struct {
	Name         *string                `json:"name,omitempty"`
	Type         *string                `json:"type,omitempty"`
	Phases       []string               `json:"phases,omitempty"`
	Status       *string                `json:"status,omitempty"`
	CurrentPhase *string                `json:"current_phase,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Task is a unit of work belonging to a workflow.
type Task struct {
	ID           string                 `json:"id"`
	WorkflowID   string                 `json:"workflow_id"`
	Name         string                 `json:"name"`
	Phase        string                 `json:"phase"`
	Type         string                 `json:"type,omitempty"`
	Priority     string                 `json:"priority"`
	Assignee     string                 `json:"assignee,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Dependencies []string               `json:"dependencies,omitempty"`
	Status       string                 `json:"status"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Result       interface{}            `json:"result,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

// TaskRequest creates a task. WorkflowID, name and phase are required.
type TaskRequest struct {
	WorkflowID   string                 `json:"workflow_id"`
	Name         string                 `json:"name"`
	Phase        string                 `json:"phase"`
	Type         string                 `json:"type,omitempty"`
	Priority     string                 `json:"priority,omitempty"`
	Assignee     string                 `json:"assignee,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Dependencies []string               `json:"dependencies,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// TaskPatch is a partial task update.
type TaskPatch struct {
	Name         *string                `json:"name,omitempty"`
	Phase        *string                `json:"phase,omitempty"`
	Type         *string                `json:"type,omitempty"`
	Priority     *string                `json:"priority,omitempty"`
	Assignee     *string                `json:"assignee,omitempty"`
	Description  *string                `json:"description,omitempty"`
	Dependencies []string               `json:"dependencies,omitempty"`
	Status       *string                `json:"status,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// TaskFilter narrows ListTasks. Zero fields match everything.
type TaskFilter struct {
	WorkflowID string
	Phase      string
	Status     string
}

// Agent is a registered worker identity.
type Agent struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Capabilities []string               `json:"capabilities,omitempty"`
	Status       string                 `json:"status"`
	WorkflowID   string                 `json:"workflow_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	RegisteredAt time.Time              `json:"registered_at"`
	LastActivity time.Time              `json:"last_activity"`
}

// AgentRequest registers (or re-registers) an agent. ID and type are
// required.
type AgentRequest struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Capabilities []string               `json:"capabilities,omitempty"`
	WorkflowID   string                 `json:"workflow_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Message is one coordination log entry.
type Message struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	AgentID    string                 `json:"agent_id,omitempty"`
	WorkflowID string                 `json:"workflow_id,omitempty"`
	TaskID     string                 `json:"task_id,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Targets    []string               `json:"targets,omitempty"`
	Priority   string                 `json:"priority,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// MessageFilter narrows coordination log queries.
type MessageFilter struct {
	Type       string
	WorkflowID string
	Limit      int
}

// AssignmentRequest asks for the best pending task for an agent.
type AssignmentRequest struct {
	AgentID      string   `json:"agent_id"`
	WorkflowID   string   `json:"workflow_id,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Assignment is the outcome of an assignment attempt. Task is nil when
// nothing was available.
type Assignment struct {
	Task       *Task `json:"task"`
	Candidates int   `json:"candidates"`
}

// ProgressReport is an agent's progress update against an optional
// task.
type ProgressReport struct {
	AgentID  string                 `json:"agent_id"`
	TaskID   string                 `json:"task_id,omitempty"`
	Progress map[string]interface{} `json:"progress,omitempty"`
	Status   string                 `json:"status,omitempty"`
	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Notification is a broadcast message for the coordination log.
type Notification struct {
	Message      string                 `json:"message"`
	WorkflowID   string                 `json:"workflow_id,omitempty"`
	TargetAgents []string               `json:"target_agents,omitempty"`
	Priority     string                 `json:"priority,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}
