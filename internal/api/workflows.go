package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quarry/sparc/internal/coord"
)

func (h *Handler) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var spec coord.WorkflowSpec
	if !h.decode(w, r, &spec) {
		return
	}
	wf, err := h.state.CreateWorkflow(spec)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

func (h *Handler) listWorkflows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.ListWorkflows())
}

func (h *Handler) getWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.state.GetWorkflow(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (h *Handler) updateWorkflow(w http.ResponseWriter, r *http.Request) {
	var patch coord.WorkflowUpdate
	if !h.decode(w, r, &patch) {
		return
	}
	wf, err := h.state.UpdateWorkflow(chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (h *Handler) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := h.state.DeleteWorkflow(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) advanceWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.state.AdvancePhase(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}
