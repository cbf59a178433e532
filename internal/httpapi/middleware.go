package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"finance-ledger-go/internal/models"
	"finance-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerRequestID = "X-Request-ID"
	headerUserID    = "X-User-ID"
)

type contextKey string

const requestIDKey contextKey = "request_id"

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID propagates or assigns a request id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// Logger logs one line per request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		zap.L().Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestID(r.Context())),
			zap.String("remote_addr", r.RemoteAddr))
	})
}

// Recovery turns a panic into a 500.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("Panic recovered",
					zap.Any("error", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", requestID(r.Context())))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ActingUser resolves X-User-ID against the user table and stores the id on
// the request context. Unknown or missing users get a 401.
func ActingUser(st store.LedgerStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userId := strings.TrimSpace(r.Header.Get(headerUserID))
			if userId == "" {
				writeError(w, http.StatusUnauthorized, "missing "+headerUserID+" header")
				return
			}
			if _, err := st.GetUserById(r.Context(), userId); err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					writeLedgerError(w, r, err)
					return
				}
				zap.L().Info("Rejected unknown user", zap.String("user_id", userId))
				writeError(w, http.StatusUnauthorized, "unknown user")
				return
			}
			next.ServeHTTP(w, r.WithContext(models.WithActingUser(r.Context(), userId)))
		})
	}
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
