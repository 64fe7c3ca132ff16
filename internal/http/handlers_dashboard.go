package http

import (
	"context"
	"errors"
	"net/http"

	"bilancio/internal/auth"
	"bilancio/internal/core"
	"bilancio/internal/log"
)

const (
	msgInvalidUser = "Invalid user ID"
	msgServerError = "Server Error"
)

// handleDashboard serves GET /dashboard for the authenticated owner.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	ctx := r.Context()
	logger := log.FromContext(ctx)

	// The verifier guarantees a subject; an absent one is treated as malformed.
	ownerID, _ := auth.SubjectFromContext(ctx)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	summary, err := s.dashboard.Summary(ctx, ownerID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, NewSummaryResponse(summary))
	case errors.Is(err, core.ErrInvalidIdentifier):
		logger.WarnContext(ctx, "Dashboard request with malformed owner id",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeValidation).ToSlice()...)
		writeError(w, http.StatusBadRequest, msgInvalidUser)
	default:
		errType := log.ErrorTypeDatabase
		if errors.Is(err, context.DeadlineExceeded) {
			errType = log.ErrorTypeTimeout
		} else if errors.Is(err, core.ErrUnexpected) {
			errType = log.ErrorTypeInternal
		}
		log.NewStructuredLogger(logger).LogError(ctx, "Dashboard summary failed", err, log.OpSummary,
			log.NewFields().WithOwner(ownerID).WithErrorType(errType))
		writeError(w, http.StatusInternalServerError, msgServerError)
	}
}
