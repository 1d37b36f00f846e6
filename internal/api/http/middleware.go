package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	"smartpark-backend/internal/config"
	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/logger"
	"smartpark-backend/internal/metrics"
	"smartpark-backend/internal/security"
)

type contextKey string

const claimsKey contextKey = "claims"

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if name := route.GetName(); name != "" {
			return name
		}
	}
	return "unknown"
}

// NewRequestLogger logs each request as slog groups and records the request
// metrics under the route name.
func NewRequestLogger(m *metrics.Metrics) mux.MiddlewareFunc {
	log := logger.WithComponent("http")
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				latency := time.Since(start)
				route := routeName(r)
				m.HTTPRequest(route, r.Method, status, latency)

				requestAttrs := slog.Group("request",
					slog.String("id", middleware.GetReqID(r.Context())),
					slog.String("method", r.Method),
					slog.String("route", route),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				responseAttrs := slog.Group("response",
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.String("latency", latency.String()),
				)

				if status >= 500 {
					log.Error("server error", requestAttrs, responseAttrs)
				} else {
					log.Info("request completed", requestAttrs, responseAttrs)
				}
			}()
			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

// NewAuthMiddleware authenticates bearer tokens and enforces the security
// level configured for the matched route.
func NewAuthMiddleware(tm security.TokenManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			level := config.GetSecurityLevel(routeName(r))
			if level == config.SecurityPublic {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeMessage(w, http.StatusUnauthorized, "authorization token is not provided")
				return
			}
			claims, err := tm.ValidateToken(token)
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, "invalid token: "+err.Error())
				return
			}

			switch level {
			case config.SecurityOfficer:
				if !claims.HasRole(domain.RoleOfficer) {
					writeMessage(w, http.StatusForbidden, "officer role required")
					return
				}
			case config.SecurityAdmin:
				if !claims.HasRole(domain.RoleAdmin) {
					writeMessage(w, http.StatusForbidden, "admin role required")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

func extractToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	return strings.TrimSpace(token)
}

// ClaimsFromContext returns the authenticated caller, if any.
func ClaimsFromContext(ctx context.Context) (*security.UserClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*security.UserClaims)
	return claims, ok
}

func userID(r *http.Request) int32 {
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		return claims.UserID
	}
	return 0
}
