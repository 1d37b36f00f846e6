package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	"smartpark-backend/internal/metrics"
	"smartpark-backend/internal/security"
	"smartpark-backend/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services the REST API is built on.
type Dependencies struct {
	Sessions      service.SessionService
	Reservations  service.ReservationService
	Zones         service.ZoneService
	Wallets       service.WalletLedger
	Violations    service.ViolationIssuer
	Notifications service.NotificationService
	Tokens        security.TokenManager
	Health        Pinger
	Metrics       *metrics.Metrics
	MetricsPath   string
}

// NewRouter builds the HTTP router. Route names key into the endpoint
// security table, so every route must be named.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		NewRequestLogger(deps.Metrics),
		middleware.Recoverer,
		NewAuthMiddleware(deps.Tokens),
	)

	h := &handlers{deps: deps}

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet).Name("healthz")
	metricsPath := deps.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.Handle(metricsPath, deps.Metrics.Handler()).Methods(http.MethodGet).Name("metrics")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/zones", h.listZones).Methods(http.MethodGet).Name("zones.list")
	api.HandleFunc("/zones/{id:[0-9]+}/availability", h.zoneAvailability).Methods(http.MethodGet).Name("zones.availability")

	api.HandleFunc("/sessions/start", h.startSession).Methods(http.MethodPost).Name("sessions.start")
	api.HandleFunc("/sessions/extend", h.extendSession).Methods(http.MethodPost).Name("sessions.extend")
	api.HandleFunc("/sessions/end", h.endSession).Methods(http.MethodPost).Name("sessions.end")
	api.HandleFunc("/sessions/cancel", h.cancelSession).Methods(http.MethodPost).Name("sessions.cancel")
	api.HandleFunc("/sessions", h.listSessions).Methods(http.MethodGet).Name("sessions.list")
	api.HandleFunc("/sessions/{id:[0-9]+}", h.getSession).Methods(http.MethodGet).Name("sessions.get")
	api.HandleFunc("/vehicles/{id:[0-9]+}/active-session", h.activeSession).Methods(http.MethodGet).Name("vehicles.activeSession")

	api.HandleFunc("/reservations", h.createReservation).Methods(http.MethodPost).Name("reservations.create")
	api.HandleFunc("/reservations", h.listReservations).Methods(http.MethodGet).Name("reservations.list")
	api.HandleFunc("/reservations/{id:[0-9]+}/confirm", h.confirmReservation).Methods(http.MethodPost).Name("reservations.confirm")
	api.HandleFunc("/reservations/{id:[0-9]+}/cancel", h.cancelReservation).Methods(http.MethodPost).Name("reservations.cancel")

	api.HandleFunc("/wallet", h.getWallet).Methods(http.MethodGet).Name("wallet.get")
	api.HandleFunc("/wallet/reconciliation", h.reconcileWallet).Methods(http.MethodGet).Name("wallet.reconcile")
	api.HandleFunc("/wallet/topup", h.topUp).Methods(http.MethodPost).Name("wallet.topup")

	api.HandleFunc("/violations", h.listViolations).Methods(http.MethodGet).Name("violations.list")
	api.HandleFunc("/enforcement/violations", h.issueViolation).Methods(http.MethodPost).Name("violations.issue")

	api.HandleFunc("/notifications", h.listNotifications).Methods(http.MethodGet).Name("notifications.list")
	api.HandleFunc("/notifications/{id:[0-9]+}/read", h.markNotificationRead).Methods(http.MethodPost).Name("notifications.read")

	return r
}

type handlers struct {
	deps Dependencies
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
