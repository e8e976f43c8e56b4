package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/hisense/internal/climate"
	"github.com/muurk/hisense/internal/deviceclient"
	"github.com/muurk/hisense/internal/logging"
	"github.com/muurk/hisense/internal/metrics"
	"github.com/muurk/hisense/internal/protocol"
	"github.com/muurk/hisense/internal/version"
)

// maxCommandBody caps command request bodies
const maxCommandBody = 4096

// Error codes returned in JSON error bodies
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeNotFound   = "not_found"
	ErrCodeConflict   = "conflict"
	ErrCodeUpstream   = "upstream_error"
	ErrCodeTimeout    = "upstream_timeout"
	ErrCodeAuth       = "auth_failed"
	ErrCodeInternal   = "internal_error"
)

const (
	headerRequestID     = "X-Request-ID"
	contextKeyRequestID = contextKey("request_id")
)

type contextKey string

// DeviceInfo is the API representation of a served device
type DeviceInfo struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	State       climate.DisplayState `json:"state"`
	LastError   string               `json:"last_error,omitempty"`
	LastOutcome string               `json:"last_outcome,omitempty"`
}

type outcomeReporter interface {
	LastOutcome() (deviceclient.Outcome, bool)
}

// Handler builds the bridge's HTTP router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler(s.registry))
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/devices", s.handleListDevices)
		r.Route("/devices/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetDevice)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/commands", s.handleCommand)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	uptime := time.Duration(0)
	if !s.started.IsZero() {
		uptime = time.Since(s.started).Round(time.Second)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    version.Info(),
		"devices":    len(s.order),
		"ws_clients": s.hub.ClientCount(),
		"mqtt":       s.broker != nil,
		"uptime":     uptime.String(),
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	infos := make([]DeviceInfo, 0, len(s.order))
	for _, id := range s.order {
		infos = append(infos, s.deviceInfo(s.devices[id]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": infos})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.deviceInfo(d))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := s.Execute(r.Context(), d, Command{Action: ActionRefresh}); err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deviceInfo(d))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxCommandBody {
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
		return
	}

	cmd, err := DecodeCommand(body)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	if err := s.Execute(r.Context(), d, cmd); err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deviceInfo(d))
}

// handleWebSocket streams state events, optionally for one device (?device=id).
// Each client first receives the current state of the devices it watches.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("device")
	if filter != "" {
		if _, ok := s.devices[filter]; !ok {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("unknown device %q", filter))
			return
		}
	}

	var initial []Event
	now := time.Now().UTC()
	for _, id := range s.order {
		if filter != "" && id != filter {
			continue
		}
		initial = append(initial, Event{
			Type:      EventState,
			DeviceID:  id,
			Timestamp: now,
			Payload:   s.devices[id].Controller.View(),
		})
	}
	s.hub.Serve(w, r, filter, initial)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Device, bool) {
	id := chi.URLParam(r, "id")
	d, ok := s.devices[id]
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("unknown device %q", id))
	}
	return d, ok
}

func (s *Server) deviceInfo(d *Device) DeviceInfo {
	info := DeviceInfo{
		ID:        d.ID,
		Name:      d.Name,
		State:     d.Controller.View(),
		LastError: s.lastError(d.ID),
	}
	if reporter, ok := d.Controller.Device.(outcomeReporter); ok {
		if outcome, ok := reporter.LastOutcome(); ok {
			info.LastOutcome = outcome.String()
		}
	}
	return info
}

// errorStatus maps a device operation error to an HTTP status and error code
func errorStatus(err error) (int, string) {
	switch {
	case protocol.IsValidationError(err):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, climate.ErrPoweredOff), errors.Is(err, climate.ErrFanOnlyMode):
		return http.StatusConflict, ErrCodeConflict
	case protocol.IsAuthError(err):
		return http.StatusBadGateway, ErrCodeAuth
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	case protocol.IsRejection(err), protocol.IsDecodeError(err),
		protocol.IsMalformed(err), protocol.IsTransportError(err):
		return http.StatusBadGateway, ErrCodeUpstream
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

func writeDeviceError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	writeError(w, status, code, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error("Failed to encode JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// requestIDMiddleware tags each request with an X-Request-ID
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(contextKeyRequestID).(string)
	return id
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		logging.Debug("HTTP request",
			zap.String("request_id", requestID(r)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.Error("Panic in HTTP handler",
					zap.String("request_id", requestID(r)),
					zap.Any("panic", rec),
				)
				writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusWriter records the response status for logging.
// Hijack is forwarded so WebSocket upgrades pass through.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
