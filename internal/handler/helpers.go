package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
	"github.com/boddenberg/orders-dashboard-go/internal/infra/resilience"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// remoteStatus maps an upstream status to what this surface answers with.
func remoteStatus(upstream int) int {
	switch {
	case upstream == http.StatusUnauthorized:
		return http.StatusUnauthorized
	case upstream >= 400 && upstream < 500:
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var rateLimited *domain.ErrRateLimited
	var authErr *domain.ErrAuth
	var uploadErr *domain.ErrUpload
	var syncErr *domain.ErrSync
	var queryErr *domain.ErrQuery

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, unauthorized.Error())
	case errors.As(err, &rateLimited):
		logger.Info("rate limited", zap.String("action", rateLimited.Action))
		writeError(w, http.StatusTooManyRequests, domain.UserMessage(err, err.Error()))
	case errors.Is(err, resilience.ErrUnavailable):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, domain.UserMessage(err, "Serviço temporariamente indisponível."))
	case errors.As(err, &authErr):
		logger.Warn("login rejected", zap.Int("upstream_status", authErr.Status))
		status := http.StatusUnauthorized
		if authErr.Status == 0 || authErr.Status >= 500 {
			status = http.StatusBadGateway
		}
		writeError(w, status, domain.UserMessage(err, domain.MsgLoginFailed))
	case errors.As(err, &uploadErr):
		logger.Error("upload failed", zap.Int("upstream_status", uploadErr.Status), zap.Error(err))
		writeError(w, remoteStatus(uploadErr.Status), domain.UserMessage(err, domain.MsgUploadFailed))
	case errors.As(err, &syncErr):
		logger.Error("sync failed", zap.Int("upstream_status", syncErr.Status), zap.Error(err))
		writeError(w, remoteStatus(syncErr.Status), domain.UserMessage(err, domain.MsgSyncFailed))
	case errors.As(err, &queryErr):
		logger.Error("query failed", zap.String("operation", queryErr.Operation), zap.Error(err))
		writeError(w, remoteStatus(queryErr.Status), domain.UserMessage(err, domain.MsgQueryFailed))
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
