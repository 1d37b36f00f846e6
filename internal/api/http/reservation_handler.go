package http

import (
	"net/http"
	"time"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/service"
)

type createReservationRequest struct {
	VehicleID     int32     `json:"vehicle_id"`
	ZoneID        int32     `json:"zone_id"`
	ReservedFrom  time.Time `json:"reserved_from"`
	ReservedUntil time.Time `json:"reserved_until"`
	SlotID        *int32    `json:"slot_id,omitempty"`
}

type confirmReservationRequest struct {
	PaymentMethod    domain.PaymentMethod `json:"payment_method"`
	PaymentReference string               `json:"payment_reference"`
}

func (h *handlers) createReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	reservation, err := h.deps.Reservations.Create(r.Context(), service.CreateReservationRequest{
		UserID:        userID(r),
		VehicleID:     req.VehicleID,
		ZoneID:        req.ZoneID,
		ReservedFrom:  req.ReservedFrom,
		ReservedUntil: req.ReservedUntil,
		SlotID:        req.SlotID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservation)
}

func (h *handlers) confirmReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req confirmReservationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentMethodWallet
	}
	reservation, err := h.deps.Reservations.Confirm(r.Context(), userID(r), id, req.PaymentMethod, req.PaymentReference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (h *handlers) cancelReservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	reservation, err := h.deps.Reservations.Cancel(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (h *handlers) listReservations(w http.ResponseWriter, r *http.Request) {
	page, size := pagination(r)
	reservations, total, err := h.deps.Reservations.List(r.Context(), userID(r), page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: reservations, Total: total, Page: page, PageSize: size})
}
