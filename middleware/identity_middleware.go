package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/mindscreen/utils"
	"go.uber.org/zap"
)

// UserIDHeader carries the caller's identity. Authentication happens
// upstream; this service only trusts the header it is given.
const UserIDHeader = "X-User-ID"

// IdentityMiddleware attaches the caller's user id to the request context
type IdentityMiddleware struct {
	logger *zap.Logger
}

// NewIdentityMiddleware creates a new IdentityMiddleware
func NewIdentityMiddleware(logger *zap.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{logger: logger}
}

// RequireUser rejects requests without a valid user id header
func (m *IdentityMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if raw == "" {
			m.logger.Warn("missing user id",
				zap.String("request_id", requestID))
			_ = utils.WriteBadRequest(w, "Missing "+UserIDHeader+" header", nil)
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			m.logger.Warn("malformed user id",
				zap.String("request_id", requestID))
			_ = utils.WriteBadRequest(w, UserIDHeader+" must be a valid UUID", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(ctx, &userID)))
	})
}

// OptionalUser attaches the user id when the header is present.
// A malformed header is still rejected.
func (m *IdentityMiddleware) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			_ = utils.WriteBadRequest(w, UserIDHeader+" must be a valid UUID", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), &userID)))
	})
}
