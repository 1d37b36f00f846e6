package http

import "net/http"

func (h *handlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	page, size := pagination(r)
	notes, total, err := h.deps.Notifications.GetNotifications(r.Context(), userID(r), page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: notes, Total: total, Page: page, PageSize: size})
}

func (h *handlers) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Notifications.MarkAsRead(r.Context(), userID(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
