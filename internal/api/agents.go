package api

import (
	"net/http"

	"github.com/quarry/sparc/internal/coord"
)

func (h *Handler) registerAgent(w http.ResponseWriter, r *http.Request) {
	var spec coord.AgentSpec
	if !h.decode(w, r, &spec) {
		return
	}
	a, err := h.state.RegisterAgent(spec)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.ListAgents())
}
