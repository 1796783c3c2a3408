package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	stackerrors "github.com/matzehuels/stackscan/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch stackerrors.GetCode(err) {
	case stackerrors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case stackerrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case stackerrors.ErrCodeTimeout:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": stackerrors.UserMessage(err)})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		kv := []any{
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		}
		if ww.Status() >= 500 {
			s.logger.Error("http request", kv...)
			return
		}
		s.logger.Debug("http request", kv...)
	})
}
