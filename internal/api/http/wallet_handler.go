package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"smartpark-backend/internal/domain"
)

type walletResponse struct {
	Balance      decimal.Decimal            `json:"balance"`
	Transactions []domain.WalletTransaction `json:"transactions"`
	Total        int32                      `json:"total"`
	Page         int32                      `json:"page"`
	PageSize     int32                      `json:"page_size"`
}

type topUpRequest struct {
	UserID            int32           `json:"user_id"`
	Amount            decimal.Decimal `json:"amount"`
	ExternalReference string          `json:"external_reference"`
}

func (h *handlers) getWallet(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	balance, err := h.deps.Wallets.Balance(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	page, size := pagination(r)
	txs, total, err := h.deps.Wallets.Transactions(r.Context(), uid, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{
		Balance:      balance,
		Transactions: txs,
		Total:        total,
		Page:         page,
		PageSize:     size,
	})
}

func (h *handlers) reconcileWallet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deps.Wallets.Reconcile(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) topUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	tx, err := h.deps.Wallets.TopUp(r.Context(), req.UserID, req.Amount, req.ExternalReference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}
