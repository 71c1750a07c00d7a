package coord

import (
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkflowSpec carries the fields of a workflow create request.
type WorkflowSpec struct {
	Name     string                 `json:"name"`
	Type     string                 `json:"type,omitempty"`
	Phases   []string               `json:"phases,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// WorkflowUpdate carries a partial workflow patch. Nil fields are left
// untouched.
type WorkflowUpdate struct {
	Name         *string                `json:"name,omitempty"`
	Type         *string                `json:"type,omitempty"`
	Phases       []string               `json:"phases,omitempty"`
	Status       *WorkflowStatus        `json:"status,omitempty"`
	CurrentPhase *string                `json:"current_phase,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// CreateWorkflow creates a workflow with a generated id, status
// "initialized", and currentPhase set to the first phase. Name is
// required; phases default to DefaultPhases.
func (s *State) CreateWorkflow(spec WorkflowSpec) (*Workflow, error) {
	if spec.Name == "" {
		return nil, invalid("workflow name is required")
	}
	phases := spec.Phases
	if len(phases) == 0 {
		phases = append([]string(nil), DefaultPhases...)
	}

	ts := now()
	w := &Workflow{
		ID:           uuid.New().String(),
		Name:         spec.Name,
		Type:         spec.Type,
		Phases:       phases,
		Status:       WorkflowInitialized,
		CurrentPhase: phases[0],
		TaskIDs:      []string{},
		Metadata:     spec.Metadata,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	s.mu.Lock()
	s.workflows[w.ID] = w
	cp := w.clone()
	s.mu.Unlock()

	s.persistWorkflow(cp)
	s.logger.Info("workflow created", zap.String("id", w.ID), zap.String("name", w.Name))
	return cp, nil
}

// GetWorkflow returns the workflow with the given id.
func (s *State) GetWorkflow(id string) (*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workflows[id]
	if !ok {
		return nil, notFound("workflow", id)
	}
	return w.clone(), nil
}

// ListWorkflows returns all workflows ordered by creation time.
func (s *State) ListWorkflows() []*Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Workflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		out = append(out, w.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// UpdateWorkflow merges the patch shallowly into the workflow and
// refreshes updatedAt.
func (s *State) UpdateWorkflow(id string, patch WorkflowUpdate) (*Workflow, error) {
	s.mu.Lock()
	w, ok := s.workflows[id]
	if !ok {
		s.mu.Unlock()
		return nil, notFound("workflow", id)
	}
	if patch.Name != nil {
		w.Name = *patch.Name
	}
	if patch.Type != nil {
		w.Type = *patch.Type
	}
	if patch.Phases != nil {
		w.Phases = append([]string(nil), patch.Phases...)
	}
	if patch.Status != nil {
		w.Status = *patch.Status
	}
	if patch.CurrentPhase != nil {
		w.CurrentPhase = *patch.CurrentPhase
	}
	if patch.Metadata != nil {
		w.Metadata = patch.Metadata
	}
	w.UpdatedAt = now()
	cp := w.clone()
	s.mu.Unlock()

	s.persistWorkflow(cp)
	return cp, nil
}

// DeleteWorkflow removes the workflow and cascades to its tasks and
// their stored results.
func (s *State) DeleteWorkflow(id string) error {
	s.mu.Lock()
	w, ok := s.workflows[id]
	if !ok {
		s.mu.Unlock()
		return notFound("workflow", id)
	}
	removed := w.TaskIDs
	for _, tid := range removed {
		delete(s.tasks, tid)
		delete(s.results, tid)
	}
	delete(s.workflows, id)
	s.mu.Unlock()

	for _, tid := range removed {
		s.persistTaskDelete(tid)
	}
	s.persistWorkflowDelete(id)
	s.logger.Info("workflow deleted", zap.String("id", id), zap.Int("tasks_removed", len(removed)))
	return nil
}

// AdvancePhase moves currentPhase to the next entry in the phase
// sequence. At the last phase it sets status to "completed" instead of
// advancing past the end; further calls are no-ops.
func (s *State) AdvancePhase(id string) (*Workflow, error) {
	s.mu.Lock()
	w, ok := s.workflows[id]
	if !ok {
		s.mu.Unlock()
		return nil, notFound("workflow", id)
	}

	idx := -1
	for i, p := range w.Phases {
		if p == w.CurrentPhase {
			idx = i
			break
		}
	}
	switch {
	case w.Status == WorkflowCompleted:
		// already done, keep state as-is
	case idx >= 0 && idx < len(w.Phases)-1:
		w.CurrentPhase = w.Phases[idx+1]
		w.Status = WorkflowInProgress
		w.UpdatedAt = now()
	default:
		w.Status = WorkflowCompleted
		w.UpdatedAt = now()
	}
	cp := w.clone()
	s.mu.Unlock()

	s.persistWorkflow(cp)
	return cp, nil
}
