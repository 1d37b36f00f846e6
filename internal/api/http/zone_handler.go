package http

import (
	"net/http"
	"strings"
)

func (h *handlers) listZones(w http.ResponseWriter, r *http.Request) {
	country := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country")))
	if country == "" {
		writeMessage(w, http.StatusBadRequest, "country is required")
		return
	}
	zones, err := h.deps.Zones.ListActive(r.Context(), country)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, zones)
}

func (h *handlers) zoneAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	availability, err := h.deps.Zones.Availability(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
}
