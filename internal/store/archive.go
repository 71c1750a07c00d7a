package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quarry/sparc/internal/coord"
)

// SaveWorkflow upserts a workflow row.
func (s *Store) SaveWorkflow(ctx context.Context, w *coord.Workflow) error {
	phases, _ := json.Marshal(w.Phases)
	taskIDs, _ := json.Marshal(w.TaskIDs)
	metadata, _ := json.Marshal(w.Metadata)
	_, err := s.db.Exec(ctx, `
		INSERT INTO workflows (id, name, type, phases, status, current_phase, task_ids, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			phases = EXCLUDED.phases,
			status = EXCLUDED.status,
			current_phase = EXCLUDED.current_phase,
			task_ids = EXCLUDED.task_ids,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`,
		w.ID, w.Name, w.Type, phases, string(w.Status), w.CurrentPhase,
		taskIDs, metadata, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save workflow %s: %w", w.ID, err)
	}
	return nil
}

// DeleteWorkflow removes a workflow row.
func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete workflow %s: %w", id, err)
	}
	return nil
}

// SaveTask upserts a task row.
func (s *Store) SaveTask(ctx context.Context, t *coord.Task) error {
	deps, _ := json.Marshal(t.Dependencies)
	metadata, _ := json.Marshal(t.Metadata)
	_, err := s.db.Exec(ctx, `
		INSERT INTO tasks (id, workflow_id, name, phase, type, priority, assignee, description,
			dependencies, status, metadata, created_at, updated_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			workflow_id = EXCLUDED.workflow_id,
			name = EXCLUDED.name,
			phase = EXCLUDED.phase,
			type = EXCLUDED.type,
			priority = EXCLUDED.priority,
			assignee = EXCLUDED.assignee,
			description = EXCLUDED.description,
			dependencies = EXCLUDED.dependencies,
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at`,
		t.ID, t.WorkflowID, t.Name, t.Phase, t.Type, string(t.Priority), t.Assignee,
		t.Description, deps, string(t.Status), metadata,
		t.CreatedAt, t.UpdatedAt, t.StartedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// DeleteTask removes a task row and its stored result.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM task_results WHERE task_id = $1`, id); err != nil {
		return fmt.Errorf("delete task result %s: %w", id, err)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// SaveAgent upserts an agent row.
func (s *Store) SaveAgent(ctx context.Context, a *coord.Agent) error {
	caps, _ := json.Marshal(a.Capabilities)
	metadata, _ := json.Marshal(a.Metadata)
	_, err := s.db.Exec(ctx, `
		INSERT INTO agents (id, type, capabilities, status, workflow_id, metadata, registered_at, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			capabilities = EXCLUDED.capabilities,
			status = EXCLUDED.status,
			workflow_id = EXCLUDED.workflow_id,
			metadata = EXCLUDED.metadata,
			registered_at = EXCLUDED.registered_at,
			last_activity = EXCLUDED.last_activity`,
		a.ID, a.Type, caps, string(a.Status), a.WorkflowID, metadata,
		a.RegisteredAt, a.LastActivity,
	)
	if err != nil {
		return fmt.Errorf("save agent %s: %w", a.ID, err)
	}
	return nil
}

// SaveResult upserts a task result row.
func (s *Store) SaveResult(ctx context.Context, r *coord.TaskResult) error {
	result, _ := json.Marshal(r.Result)
	_, err := s.db.Exec(ctx, `
		INSERT INTO task_results (task_id, result, stored_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (task_id) DO UPDATE SET
			result = EXCLUDED.result,
			stored_at = EXCLUDED.stored_at`,
		r.TaskID, result, r.StoredAt,
	)
	if err != nil {
		return fmt.Errorf("save result for task %s: %w", r.TaskID, err)
	}
	return nil
}

// AppendMessage inserts a coordination log row. Rows are never updated
// or deleted; the table keeps the full history even when the in-memory
// log has evicted old entries.
func (s *Store) AppendMessage(ctx context.Context, m *coord.Message) error {
	targets, _ := json.Marshal(m.Targets)
	metadata, _ := json.Marshal(m.Metadata)
	_, err := s.db.Exec(ctx, `
		INSERT INTO coordination_log (id, type, agent_id, workflow_id, task_id, message, targets, priority, metadata, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		m.ID, string(m.Type), m.AgentID, m.WorkflowID, m.TaskID, m.Message,
		targets, m.Priority, metadata, m.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append message %s: %w", m.ID, err)
	}
	return nil
}

// LoadWorkflows reads back all archived workflows.
func (s *Store) LoadWorkflows(ctx context.Context) ([]*coord.Workflow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, COALESCE(type,''), phases, status, current_phase, task_ids, metadata, created_at, updated_at
		FROM workflows ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("load workflows: %w", err)
	}
	defer rows.Close()

	var out []*coord.Workflow
	for rows.Next() {
		w := &coord.Workflow{}
		var phases, taskIDs, metadata []byte
		var status string
		if err := rows.Scan(&w.ID, &w.Name, &w.Type, &phases, &status,
			&w.CurrentPhase, &taskIDs, &metadata, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		w.Status = coord.WorkflowStatus(status)
		_ = json.Unmarshal(phases, &w.Phases)
		_ = json.Unmarshal(taskIDs, &w.TaskIDs)
		_ = json.Unmarshal(metadata, &w.Metadata)
		out = append(out, w)
	}
	return out, rows.Err()
}

// LoadTasks reads back all archived tasks.
func (s *Store) LoadTasks(ctx context.Context) ([]*coord.Task, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, workflow_id, name, phase, COALESCE(type,''), priority, COALESCE(assignee,''),
		       COALESCE(description,''), dependencies, status, metadata,
		       created_at, updated_at, started_at, completed_at
		FROM tasks ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	var out []*coord.Task
	for rows.Next() {
		t := &coord.Task{}
		var deps, metadata []byte
		var priority, status string
		if err := rows.Scan(&t.ID, &t.WorkflowID, &t.Name, &t.Phase, &t.Type,
			&priority, &t.Assignee, &t.Description, &deps, &status, &metadata,
			&t.CreatedAt, &t.UpdatedAt, &t.StartedAt, &t.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Priority = coord.Priority(priority)
		t.Status = coord.TaskStatus(status)
		_ = json.Unmarshal(deps, &t.Dependencies)
		_ = json.Unmarshal(metadata, &t.Metadata)
		out = append(out, t)
	}
	return out, rows.Err()
}

// LoadAgents reads back all archived agents.
func (s *Store) LoadAgents(ctx context.Context) ([]*coord.Agent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, type, capabilities, status, COALESCE(workflow_id,''), metadata, registered_at, last_activity
		FROM agents ORDER BY registered_at`)
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	defer rows.Close()

	var out []*coord.Agent
	for rows.Next() {
		a := &coord.Agent{}
		var caps, metadata []byte
		var status string
		if err := rows.Scan(&a.ID, &a.Type, &caps, &status, &a.WorkflowID,
			&metadata, &a.RegisteredAt, &a.LastActivity); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		a.Status = coord.AgentStatus(status)
		_ = json.Unmarshal(caps, &a.Capabilities)
		_ = json.Unmarshal(metadata, &a.Metadata)
		out = append(out, a)
	}
	return out, rows.Err()
}
