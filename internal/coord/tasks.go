package coord

import (
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskSpec carries the fields of a task create request.
type TaskSpec struct {
	WorkflowID   string                 `json:"workflow_id"`
	Name         string                 `json:"name"`
	Phase        string                 `json:"phase"`
	Type         string                 `json:"type,omitempty"`
	Priority     Priority               `json:"priority,omitempty"`
	Assignee     string                 `json:"assignee,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Dependencies []string               `json:"dependencies,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// TaskUpdate carries a partial task patch. Nil fields are left untouched.
type TaskUpdate struct {
	Name         *string                `json:"name,omitempty"`
	Phase        *string                `json:"phase,omitempty"`
	Type         *string                `json:"type,omitempty"`
	Priority     *Priority              `json:"priority,omitempty"`
	Assignee     *string                `json:"assignee,omitempty"`
	Description  *string                `json:"description,omitempty"`
	Dependencies []string               `json:"dependencies,omitempty"`
	Status       *TaskStatus            `json:"status,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// TaskFilter narrows ListTasks results. Zero fields match everything;
// supplied fields are ANDed.
type TaskFilter struct {
	WorkflowID string
	Phase      string
	Status     TaskStatus
}

// CreateTask creates a task under an existing workflow with status
// "pending". WorkflowID, name and phase are required; the workflow must
// exist. The new task id is appended to the parent workflow's task list.
func (s *State) CreateTask(spec TaskSpec) (*Task, error) {
	if spec.WorkflowID == "" {
		return nil, invalid("task workflow_id is required")
	}
	if spec.Name == "" {
		return nil, invalid("task name is required")
	}
	if spec.Phase == "" {
		return nil, invalid("task phase is required")
	}
	if spec.Priority == "" {
		spec.Priority = PriorityMedium
	}

	ts := now()
	t := &Task{
		ID:           uuid.New().String(),
		WorkflowID:   spec.WorkflowID,
		Name:         spec.Name,
		Phase:        spec.Phase,
		Type:         spec.Type,
		Priority:     spec.Priority,
		Assignee:     spec.Assignee,
		Description:  spec.Description,
		Dependencies: spec.Dependencies,
		Status:       TaskPending,
		Metadata:     spec.Metadata,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	s.mu.Lock()
	w, ok := s.workflows[spec.WorkflowID]
	if !ok {
		s.mu.Unlock()
		return nil, notFound("workflow", spec.WorkflowID)
	}
	s.tasks[t.ID] = t
	w.TaskIDs = append(w.TaskIDs, t.ID)
	w.UpdatedAt = ts
	tcp := t.clone()
	wcp := w.clone()
	s.mu.Unlock()

	s.persistTask(tcp)
	s.persistWorkflow(wcp)
	s.logger.Info("task created",
		zap.String("id", t.ID),
		zap.String("workflow", t.WorkflowID),
		zap.String("phase", t.Phase))
	return tcp, nil
}

// GetTask returns the task with the given id, merging in any stored
// result payload.
func (s *State) GetTask(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, notFound("task", id)
	}
	cp := t.clone()
	if r, ok := s.results[id]; ok {
		cp.Result = r.Result
	}
	return cp, nil
}

// ListTasks returns tasks matching the filter, ordered by creation time.
func (s *State) ListTasks(f TaskFilter) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Task
	for _, t := range s.tasks {
		if f.WorkflowID != "" && t.WorkflowID != f.WorkflowID {
			continue
		}
		if f.Phase != "" && t.Phase != f.Phase {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// UpdateTask merges the patch shallowly into the task.
// startedAt is stamped the first time status becomes "in_progress" and
// completedAt the first time it becomes "completed"; neither is ever
// overwritten. Transitions are otherwise permissive: any status edge is
// accepted.
func (s *State) UpdateTask(id string, patch TaskUpdate) (*Task, error) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return nil, notFound("task", id)
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Phase != nil {
		t.Phase = *patch.Phase
	}
	if patch.Type != nil {
		t.Type = *patch.Type
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Assignee != nil {
		t.Assignee = *patch.Assignee
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Dependencies != nil {
		t.Dependencies = append([]string(nil), patch.Dependencies...)
	}
	if patch.Metadata != nil {
		t.Metadata = patch.Metadata
	}
	if patch.Status != nil {
		applyStatus(t, *patch.Status)
	}
	t.UpdatedAt = now()
	cp := t.clone()
	s.mu.Unlock()

	s.persistTask(cp)
	return cp, nil
}

// applyStatus sets a task's status and stamps startedAt/completedAt on
// first entry into in_progress/completed. Caller must hold the write
// lock.
func applyStatus(t *Task, status TaskStatus) {
	t.Status = status
	ts := now()
	if status == TaskInProgress && t.StartedAt == nil {
		t.StartedAt = &ts
	}
	if status == TaskCompleted && t.CompletedAt == nil {
		t.CompletedAt = &ts
	}
}

// DeleteTask removes the task, drops its id from the parent workflow's
// task list if the parent still exists, and discards any stored result.
func (s *State) DeleteTask(id string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return notFound("task", id)
	}
	delete(s.tasks, id)
	delete(s.results, id)

	var wcp *Workflow
	if w, ok := s.workflows[t.WorkflowID]; ok {
		for i, tid := range w.TaskIDs {
			if tid == id {
				w.TaskIDs = append(w.TaskIDs[:i], w.TaskIDs[i+1:]...)
				break
			}
		}
		w.UpdatedAt = now()
		wcp = w.clone()
	}
	s.mu.Unlock()

	s.persistTaskDelete(id)
	if wcp != nil {
		s.persistWorkflow(wcp)
	}
	return nil
}

// StoreResult associates an opaque result payload with a task id. The
// payload is merged into the task on single-task reads.
func (s *State) StoreResult(taskID string, result interface{}) (*TaskResult, error) {
	s.mu.Lock()
	if _, ok := s.tasks[taskID]; !ok {
		s.mu.Unlock()
		return nil, notFound("task", taskID)
	}
	r := &TaskResult{TaskID: taskID, Result: result, StoredAt: now()}
	s.results[taskID] = r
	s.mu.Unlock()

	s.persistResult(r)
	return r, nil
}
