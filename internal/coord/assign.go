package coord

import (
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssignmentRequest asks for the best-matching pending task for an
// agent.
type AssignmentRequest struct {
	AgentID      string   `json:"agent_id"`
	WorkflowID   string   `json:"workflow_id,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Assignment is the outcome of a single assignment attempt. Task is nil
// when no candidate was available; Candidates is the number of tasks
// that were eligible at decision time.
type Assignment struct {
	Task       *Task `json:"task"`
	Candidates int   `json:"candidates"`
}

// RequestAssignment selects the best pending task and assigns it to the
// requesting agent. Candidates are pending tasks whose workflow matches
// the request (when supplied) and whose assignee is unset or already the
// requester. Higher priority wins; ties break by earliest createdAt.
// The whole read-candidates/pick/write sequence runs under the state
// lock, so two concurrent requests can never claim the same task.
// Single attempt, best effort: no candidates is not an error.
func (s *State) RequestAssignment(req AssignmentRequest) (*Assignment, error) {
	if req.AgentID == "" {
		return nil, invalid("assignment agent_id is required")
	}

	s.mu.Lock()
	var candidates []*Task
	for _, t := range s.tasks {
		if t.Status != TaskPending {
			continue
		}
		if req.WorkflowID != "" && t.WorkflowID != req.WorkflowID {
			continue
		}
		if t.Assignee != "" && t.Assignee != req.AgentID {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		s.mu.Unlock()
		return &Assignment{Candidates: 0}, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		ri, rj := candidates[i].Priority.rank(), candidates[j].Priority.rank()
		if ri != rj {
			return ri > rj
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	t := candidates[0]
	t.Assignee = req.AgentID
	applyStatus(t, TaskAssigned)
	t.UpdatedAt = now()

	m := &Message{
		ID:         uuid.New().String(),
		Type:       MessageTaskAssigned,
		AgentID:    req.AgentID,
		WorkflowID: t.WorkflowID,
		TaskID:     t.ID,
		Message:    "task " + t.Name + " assigned to " + req.AgentID,
		Timestamp:  now(),
	}
	s.appendLog(m)

	tcp := t.clone()
	mcp := m.clone()
	n := len(candidates)
	s.mu.Unlock()

	s.persistTask(tcp)
	s.emit(mcp)
	s.logger.Info("task assigned",
		zap.String("task", tcp.ID),
		zap.String("agent", req.AgentID),
		zap.Int("candidates", n))
	return &Assignment{Task: tcp, Candidates: n}, nil
}
