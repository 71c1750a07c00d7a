package coord

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AgentSpec carries the fields of an agent registration. IDs are
// caller-supplied; registering an existing id overwrites the prior
// record.
type AgentSpec struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Capabilities []string               `json:"capabilities,omitempty"`
	WorkflowID   string                 `json:"workflow_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// RegisterAgent upserts an agent with status "active" and appends an
// "agent_registered" entry to the coordination log. ID and type are
// required.
func (s *State) RegisterAgent(spec AgentSpec) (*Agent, error) {
	if spec.ID == "" {
		return nil, invalid("agent id is required")
	}
	if spec.Type == "" {
		return nil, invalid("agent type is required")
	}

	ts := now()
	a := &Agent{
		ID:           spec.ID,
		Type:         spec.Type,
		Capabilities: spec.Capabilities,
		Status:       AgentActive,
		WorkflowID:   spec.WorkflowID,
		Metadata:     spec.Metadata,
		RegisteredAt: ts,
		LastActivity: ts,
	}
	m := &Message{
		ID:         uuid.New().String(),
		Type:       MessageAgentRegistered,
		AgentID:    a.ID,
		WorkflowID: a.WorkflowID,
		Message:    "agent " + a.ID + " registered as " + a.Type,
		Timestamp:  ts,
	}

	s.mu.Lock()
	s.agents[a.ID] = a
	s.appendLog(m)
	acp := a.clone()
	s.mu.Unlock()

	s.persistAgent(acp)
	s.emit(m)
	s.logger.Info("agent registered", zap.String("id", a.ID), zap.String("type", a.Type))
	return acp, nil
}

// ListAgents returns all registered agents ordered by registration time.
func (s *State) ListAgents() []*Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out
}

// touchAgent refreshes an agent's lastActivity and re-activates it if a
// staleness sweep had marked it idle. Silently no-ops for unknown ids.
// Caller must hold the write lock. Returns the agent copy for archiving,
// or nil.
func (s *State) touchAgent(id string) *Agent {
	a, ok := s.agents[id]
	if !ok {
		return nil
	}
	a.LastActivity = now()
	if a.Status == AgentIdle {
		a.Status = AgentActive
	}
	return a.clone()
}

// MarkStaleAgents flips agents with no activity for longer than ttl from
// "active" to "idle" and returns the affected ids. Agents are never
// removed; a later progress report re-activates them.
func (s *State) MarkStaleAgents(ttl time.Duration) []string {
	cutoff := now().Add(-ttl)

	s.mu.Lock()
	var flipped []string
	var copies []*Agent
	for _, a := range s.agents {
		if a.Status == AgentActive && a.LastActivity.Before(cutoff) {
			a.Status = AgentIdle
			flipped = append(flipped, a.ID)
			copies = append(copies, a.clone())
		}
	}
	s.mu.Unlock()

	for _, cp := range copies {
		s.persistAgent(cp)
	}
	if len(flipped) > 0 {
		s.logger.Info("agents marked idle", zap.Strings("ids", flipped))
	}
	return flipped
}
