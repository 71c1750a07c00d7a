package coord

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageFilter narrows coordination log queries. Supplied fields are
// ANDed; Limit caps the result to the most recent N entries.
type MessageFilter struct {
	Type       MessageType
	WorkflowID string
	Limit      int
}

// Messages returns coordination log entries matching the filter, most
// recent first.
func (s *State) Messages(f MessageFilter) []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Message
	for i := len(s.log) - 1; i >= 0; i-- {
		m := s.log[i]
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if f.WorkflowID != "" && m.WorkflowID != f.WorkflowID {
			continue
		}
		out = append(out, m.clone())
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// Notification is a broadcast message appended to the coordination log.
// Target agents are not verified to exist and there is no delivery
// acknowledgment; this is a log write, not a messaging guarantee.
type Notification struct {
	Message      string                 `json:"message"`
	WorkflowID   string                 `json:"workflow_id,omitempty"`
	TargetAgents []string               `json:"target_agents,omitempty"`
	Priority     string                 `json:"priority,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Notify appends a "notification" entry with a generated id.
func (s *State) Notify(n Notification) (*Message, error) {
	if n.Message == "" {
		return nil, invalid("notification message is required")
	}
	m := &Message{
		ID:         uuid.New().String(),
		Type:       MessageNotification,
		WorkflowID: n.WorkflowID,
		Message:    n.Message,
		Targets:    n.TargetAgents,
		Priority:   n.Priority,
		Metadata:   n.Metadata,
		Timestamp:  now(),
	}

	s.mu.Lock()
	s.appendLog(m)
	cp := m.clone()
	s.mu.Unlock()

	s.emit(cp)
	return cp, nil
}

// ProgressReport is an agent's progress update against an optional task.
type ProgressReport struct {
	AgentID  string                 `json:"agent_id"`
	TaskID   string                 `json:"task_id,omitempty"`
	Progress map[string]interface{} `json:"progress,omitempty"`
	Status   TaskStatus             `json:"status,omitempty"`
	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ReportProgress records an agent's progress. The agent's lastActivity
// is touched if the agent is known (unknown agents do not fail the
// call). If the task resolves, the report's progress map is merged into
// the task's metadata.progress and the status, when supplied, is
// applied. A "progress_report" entry is appended regardless.
func (s *State) ReportProgress(r ProgressReport) (*Message, error) {
	if r.AgentID == "" {
		return nil, invalid("progress report agent_id is required")
	}

	m := &Message{
		ID:        uuid.New().String(),
		Type:      MessageProgressReport,
		AgentID:   r.AgentID,
		TaskID:    r.TaskID,
		Message:   r.Message,
		Metadata:  r.Metadata,
		Timestamp: now(),
	}

	s.mu.Lock()
	acp := s.touchAgent(r.AgentID)

	var tcp *Task
	if r.TaskID != "" {
		if t, ok := s.tasks[r.TaskID]; ok {
			m.WorkflowID = t.WorkflowID
			if len(r.Progress) > 0 {
				if t.Metadata == nil {
					t.Metadata = map[string]interface{}{}
				}
				prog, _ := t.Metadata["progress"].(map[string]interface{})
				if prog == nil {
					prog = map[string]interface{}{}
				}
				for k, v := range r.Progress {
					prog[k] = v
				}
				t.Metadata["progress"] = prog
			}
			if r.Status != "" {
				applyStatus(t, r.Status)
			}
			t.UpdatedAt = now()
			tcp = t.clone()
		}
	}
	s.appendLog(m)
	mcp := m.clone()
	s.mu.Unlock()

	if acp != nil {
		s.persistAgent(acp)
	}
	if tcp != nil {
		s.persistTask(tcp)
	}
	s.emit(mcp)
	s.logger.Debug("progress reported",
		zap.String("agent", r.AgentID),
		zap.String("task", r.TaskID),
		zap.String("status", string(r.Status)))
	return mcp, nil
}

// SyncMemory appends a "memory_sync" entry. The action is logged only;
// there is no memory store behind it.
func (s *State) SyncMemory(agentID string, metadata map[string]interface{}) (*Message, error) {
	if agentID == "" {
		return nil, invalid("memory sync agent_id is required")
	}
	m := &Message{
		ID:        uuid.New().String(),
		Type:      MessageMemorySync,
		AgentID:   agentID,
		Message:   "memory sync requested",
		Metadata:  metadata,
		Timestamp: now(),
	}

	s.mu.Lock()
	s.appendLog(m)
	cp := m.clone()
	s.mu.Unlock()

	s.emit(cp)
	return cp, nil
}
