package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quarry/sparc/internal/coord"
)

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var spec coord.TaskSpec
	if !h.decode(w, r, &spec) {
		return
	}
	t, err := h.state.CreateTask(spec)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks := h.state.ListTasks(coord.TaskFilter{
		WorkflowID: q.Get("workflow_id"),
		Phase:      q.Get("phase"),
		Status:     coord.TaskStatus(q.Get("status")),
	})
	if tasks == nil {
		tasks = []*coord.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.state.GetTask(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	var patch coord.TaskUpdate
	if !h.decode(w, r, &patch) {
		return
	}
	t, err := h.state.UpdateTask(chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.state.DeleteTask(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type storeResultRequest struct {
	Result interface{} `json:"result"`
}

func (h *Handler) storeTaskResult(w http.ResponseWriter, r *http.Request) {
	var req storeResultRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.state.StoreResult(chi.URLParam(r, "id"), req.Result)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
