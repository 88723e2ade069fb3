package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

func (s *Server) auditLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		entry := AuditLogEntry{
			Timestamp: time.Now().UTC(),
			Method:    r.Method,
			Path:      r.URL.Path,
		}
		if route := mux.CurrentRoute(r); route != nil {
			entry.Handler = route.GetName()
		}
		if username, _, ok := r.BasicAuth(); ok {
			entry.User = username
		}
		if trackingID, ok := mux.Vars(r)["trackingId"]; ok {
			entry.TrackingID = trackingID
		}

		skipBody := strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data")
		if !skipBody && r.Body != nil && r.Method != http.MethodGet {
			requestBody, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(requestBody))
			entry.Request = string(requestBody)

			if entry.TrackingID != "" && strings.HasSuffix(r.URL.Path, "/status") {
				var statusRequest struct {
					Status string `json:"status"`
				}
				if err := json.Unmarshal(requestBody, &statusRequest); err == nil {
					entry.NewStatus = statusRequest.Status
					if order, err := s.storage.GetOrderByTrackingID(r.Context(), entry.TrackingID); err == nil {
						entry.OldStatus = string(order.Status)
					}
				}
			}
		}

		wrw := newResponseWriterWrapper(w)
		next.ServeHTTP(wrw, r)
		entry.StatusCode = wrw.StatusCode()

		s.AuditManager.LogEntry(r.Context(), entry)
	})
}
