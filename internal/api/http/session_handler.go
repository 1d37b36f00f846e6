package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/service"
)

type startSessionRequest struct {
	VehicleID     int32                `json:"vehicle_id"`
	ZoneID        int32                `json:"zone_id"`
	DurationHours decimal.Decimal      `json:"duration_hours"`
	SlotID        *int32               `json:"slot_id,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

type extendSessionRequest struct {
	SessionID       int32           `json:"session_id"`
	AdditionalHours decimal.Decimal `json:"additional_hours"`
}

type sessionIDRequest struct {
	SessionID int32 `json:"session_id"`
}

func (h *handlers) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentMethodWallet
	}

	session, err := h.deps.Sessions.Start(r.Context(), service.StartSessionRequest{
		UserID:        userID(r),
		VehicleID:     req.VehicleID,
		ZoneID:        req.ZoneID,
		DurationHours: req.DurationHours,
		SlotID:        req.SlotID,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *handlers) extendSession(w http.ResponseWriter, r *http.Request) {
	var req extendSessionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	session, err := h.deps.Sessions.Extend(r.Context(), userID(r), req.SessionID, req.AdditionalHours)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *handlers) endSession(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	outcome, err := h.deps.Sessions.End(r.Context(), userID(r), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *handlers) cancelSession(w http.ResponseWriter, r *http.Request) {
	var req sessionIDRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	outcome, err := h.deps.Sessions.Cancel(r.Context(), userID(r), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *handlers) listSessions(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("type")
	if filter == "" {
		filter = service.SessionFilterAll
	}
	page, size := pagination(r)
	sessions, total, err := h.deps.Sessions.List(r.Context(), userID(r), filter, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: sessions, Total: total, Page: page, PageSize: size})
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	session, err := h.deps.Sessions.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *handlers) activeSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	session, err := h.deps.Sessions.ActiveForVehicle(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
