package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/service"
)

type issueViolationRequest struct {
	VehicleID        int32                `json:"vehicle_id"`
	ZoneID           int32                `json:"zone_id"`
	ParkingSessionID *int32               `json:"parking_session_id,omitempty"`
	Type             domain.ViolationType `json:"violation_type"`
	FineAmount       decimal.Decimal      `json:"fine_amount"`
	Description      string               `json:"description"`
}

func (h *handlers) listViolations(w http.ResponseWriter, r *http.Request) {
	page, size := pagination(r)
	violations, total, err := h.deps.Violations.ListForUser(r.Context(), userID(r), page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: violations, Total: total, Page: page, PageSize: size})
}

func (h *handlers) issueViolation(w http.ResponseWriter, r *http.Request) {
	var req issueViolationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	officerID := userID(r)
	violation, err := h.deps.Violations.IssueByOfficer(r.Context(), officerID, service.IssueViolationRequest{
		VehicleID:        req.VehicleID,
		ZoneID:           req.ZoneID,
		ParkingSessionID: req.ParkingSessionID,
		OfficerID:        &officerID,
		Type:             req.Type,
		FineAmount:       req.FineAmount,
		Description:      req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, violation)
}
