package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/period"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserIDHeader carries the authenticated user id, set by the auth proxy in
// front of the service.
const UserIDHeader = "X-User-ID"

// requireUser rejects requests without a positive numeric user id.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(UserIDHeader)), 10, 64)
		if err != nil || id < 1 {
			UnauthorizedError("missing or invalid user").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, id)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// writeServiceError maps service errors onto status codes. Anything not
// recognised is logged and reported as a 500 without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, period.ErrUnknownPeriod):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrForbidden):
		ErrorResponse(http.StatusForbidden, "forbidden").Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("transaction not found").Write(w)
	case errors.Is(err, core.ErrNotDeleted):
		ErrorResponse(http.StatusConflict, err.Error()).Write(w)
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, op, log.NewFields())
		InternalServerError("internal server error").Write(w)
	}
}

// sanitizeInput removes control characters except tab, newline and
// carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
