package api

import (
	"net/http"
	"strconv"

	"github.com/quarry/sparc/internal/coord"
)

// coordinationRequest is the single-endpoint action envelope. The
// action field selects the operation; the remaining fields are read as
// that action needs them.
type coordinationRequest struct {
	Action       string                 `json:"action"`
	AgentID      string                 `json:"agent_id,omitempty"`
	AgentType    string                 `json:"agent_type,omitempty"`
	Capabilities []string               `json:"capabilities,omitempty"`
	WorkflowID   string                 `json:"workflow_id,omitempty"`
	TaskID       string                 `json:"task_id,omitempty"`
	Message      string                 `json:"message,omitempty"`
	TargetAgents []string               `json:"target_agents,omitempty"`
	Priority     string                 `json:"priority,omitempty"`
	Progress     map[string]interface{} `json:"progress,omitempty"`
	Status       string                 `json:"status,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func (h *Handler) coordinationAction(w http.ResponseWriter, r *http.Request) {
	var req coordinationRequest
	if !h.decode(w, r, &req) {
		return
	}

	switch req.Action {
	case "register_agent":
		a, err := h.state.RegisterAgent(coord.AgentSpec{
			ID:           req.AgentID,
			Type:         req.AgentType,
			Capabilities: req.Capabilities,
			WorkflowID:   req.WorkflowID,
			Metadata:     req.Metadata,
		})
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"agent": a})

	case "notify":
		m, err := h.state.Notify(coord.Notification{
			Message:      req.Message,
			WorkflowID:   req.WorkflowID,
			TargetAgents: req.TargetAgents,
			Priority:     req.Priority,
			Metadata:     req.Metadata,
		})
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"notification": m})

	case "request_assignment":
		a, err := h.state.RequestAssignment(coord.AssignmentRequest{
			AgentID:      req.AgentID,
			WorkflowID:   req.WorkflowID,
			Capabilities: req.Capabilities,
		})
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)

	case "report_progress":
		m, err := h.state.ReportProgress(coord.ProgressReport{
			AgentID:  req.AgentID,
			TaskID:   req.TaskID,
			Progress: req.Progress,
			Status:   coord.TaskStatus(req.Status),
			Message:  req.Message,
			Metadata: req.Metadata,
		})
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"report": m})

	case "sync_memory":
		m, err := h.state.SyncMemory(req.AgentID, req.Metadata)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sync": m})

	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown action: " + req.Action})
	}
}

func (h *Handler) coordinationMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	msgs := h.state.Messages(coord.MessageFilter{
		Type:       coord.MessageType(q.Get("type")),
		WorkflowID: q.Get("workflow_id"),
		Limit:      limit,
	})
	if msgs == nil {
		msgs = []*coord.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}
