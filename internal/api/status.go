package api

import "net/http"

func (h *Handler) statusView(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if view == "" {
		view = "overview"
	}
	switch view {
	case "overview":
		writeJSON(w, http.StatusOK, h.agg.Overview())
	case "health":
		writeJSON(w, http.StatusOK, h.agg.Health())
	case "metrics":
		writeJSON(w, http.StatusOK, h.agg.Metrics())
	case "performance":
		writeJSON(w, http.StatusOK, h.agg.Performance())
	case "workflows":
		writeJSON(w, http.StatusOK, h.agg.Workflows())
	case "tasks":
		writeJSON(w, http.StatusOK, h.agg.Tasks())
	case "agents":
		writeJSON(w, http.StatusOK, h.agg.Agents())
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown view: " + view})
	}
}
