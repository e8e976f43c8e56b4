package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/hisense/internal/climate"
	"github.com/muurk/hisense/internal/mqtt"
	"github.com/muurk/hisense/internal/protocol"
)

// fakeDevice serves a mutable snapshot and records calls
type fakeDevice struct {
	mu      sync.Mutex
	status  protocol.Status
	calls   []string
	pollErr error
	polled  chan struct{}
}

func (f *fakeDevice) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeDevice) PowerOn(ctx context.Context) error {
	f.mu.Lock()
	f.status.PowerOn = true
	f.mu.Unlock()
	f.record("power_on")
	return nil
}

func (f *fakeDevice) PowerOff(ctx context.Context) error {
	f.mu.Lock()
	f.status.PowerOn = false
	f.mu.Unlock()
	f.record("power_off")
	return nil
}

func (f *fakeDevice) SendLogicCommand(ctx context.Context, cmdID, param int) error {
	f.record(fmt.Sprintf("cmd %d=%d", cmdID, param))
	return nil
}

func (f *fakeDevice) CheckStatus(ctx context.Context) error {
	f.record("check_status")
	f.mu.Lock()
	err := f.pollErr
	if err == nil {
		f.status.Reported = true
		f.status.DesiredTemperature = 23
		f.status.IndoorTemperature = 25
		f.status.UpdatedAt = time.Now()
	}
	polled := f.polled
	f.mu.Unlock()
	if polled != nil {
		select {
		case polled <- struct{}{}:
		default:
		}
	}
	return err
}

func (f *fakeDevice) Status() protocol.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeDevice) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeBroker records published state
type fakeBroker struct {
	mu        sync.Mutex
	published map[string][]byte
	handler   mqtt.CommandHandler
}

func (b *fakeBroker) PublishState(deviceID string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.published == nil {
		b.published = make(map[string][]byte)
	}
	b.published[deviceID] = payload
	return nil
}

func (b *fakeBroker) SubscribeCommands(handler mqtt.CommandHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
	return nil
}

func (b *fakeBroker) state(deviceID string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published[deviceID]
}

func newTestServer(t *testing.T) (*Server, map[string]*fakeDevice) {
	t.Helper()
	fakes := map[string]*fakeDevice{
		"lounge":  {},
		"bedroom": {},
	}
	devices := []*Device{
		{ID: "lounge", Name: "Lounge", Controller: climate.NewController(fakes["lounge"], nil)},
		{ID: "bedroom", Name: "Bedroom", Controller: climate.NewController(fakes["bedroom"], nil)},
	}
	srv, err := New(&Config{Host: "127.0.0.1", Port: 0}, devices)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, fakes
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v (%s)", err, rec.Body.String())
	}
	return body.Error.Code
}

func TestNew(t *testing.T) {
	ctrl := climate.NewController(&fakeDevice{}, nil)

	tests := []struct {
		name    string
		devices []*Device
		wantErr bool
	}{
		{"no devices", nil, true},
		{"missing id", []*Device{{Controller: ctrl}}, true},
		{"missing controller", []*Device{{ID: "a"}}, true},
		{"duplicate", []*Device{{ID: "a", Controller: ctrl}, {ID: "a", Controller: ctrl}}, true},
		{"ok", []*Device{{ID: "a", Controller: ctrl}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&Config{}, tt.devices)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	cfg := &Config{}
	if _, err := New(cfg, []*Device{{ID: "a", Controller: ctrl}}); err != nil {
		t.Fatal(err)
	}
	if cfg.PollInterval != DefaultPollInterval || cfg.CommandTimeout != DefaultCommandTimeout {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	if _, err := New(&Config{CertPath: "/nonexistent/cert.pem", KeyPath: "/nonexistent/key.pem"}, []*Device{{ID: "a", Controller: ctrl}}); err == nil {
		t.Error("New() with missing certificate should fail")
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["devices"] != float64(2) {
		t.Errorf("devices = %v, want 2", body["devices"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestRequestIDPropagated(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %v, want abc-123", got)
	}
}

func TestListDevices(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/devices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", rec.Code)
	}

	var body struct {
		Devices []DeviceInfo `json:"devices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Devices) != 2 || body.Devices[0].ID != "lounge" || body.Devices[1].ID != "bedroom" {
		t.Fatalf("devices = %+v, want lounge then bedroom", body.Devices)
	}
	if body.Devices[0].State.HVACMode != climate.ModeOff {
		t.Errorf("HVACMode = %v, want OFF", body.Devices[0].State.HVACMode)
	}
}

func TestGetDevice(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodGet, "/api/devices/bedroom", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", rec.Code)
	}
	var info DeviceInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.ID != "bedroom" || info.Name != "Bedroom" {
		t.Errorf("info = %+v", info)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/devices/attic", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %v, want 404", rec.Code)
	}
	if code := decodeError(t, rec); code != ErrCodeNotFound {
		t.Errorf("code = %v, want %v", code, ErrCodeNotFound)
	}
}

func TestCommandEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantCalls  []string
	}{
		{"power on", `{"action":"power","on":true}`, http.StatusOK, "", []string{"power_on"}},
		{"temperature while off", `{"action":"temperature","value":22}`, http.StatusConflict, ErrCodeConflict, nil},
		{"screen while off", `{"action":"screen","on":false}`, http.StatusOK, "", []string{"cmd 41=0"}},
		{"invalid json", `{`, http.StatusBadRequest, ErrCodeBadRequest, nil},
		{"unknown field", `{"action":"power","on":true,"x":1}`, http.StatusBadRequest, ErrCodeBadRequest, nil},
		{"unknown mode", `{"action":"mode","mode":"turbo"}`, http.StatusBadRequest, ErrCodeBadRequest, nil},
		{"too large", `{"action":"power","on":true,"pad":"` + strings.Repeat("x", maxCommandBody) + `"}`, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, fakes := newTestServer(t)
			rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/devices/lounge/commands", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %v, want %v (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if code := decodeError(t, rec); code != tt.wantCode {
					t.Errorf("code = %v, want %v", code, tt.wantCode)
				}
			}
			calls := fakes["lounge"].Calls()
			if len(calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", calls, tt.wantCalls)
			}
			for i := range calls {
				if calls[i] != tt.wantCalls[i] {
					t.Errorf("calls[%d] = %v, want %v", i, calls[i], tt.wantCalls[i])
				}
			}
			if len(fakes["bedroom"].Calls()) != 0 {
				t.Errorf("bedroom calls = %v, want none", fakes["bedroom"].Calls())
			}
		})
	}
}

func TestCommandEndpointReturnsState(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/devices/lounge/commands", `{"action":"power","on":true}`)

	var info DeviceInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if !info.State.PowerOn {
		t.Error("PowerOn = false, want true after power command")
	}
}

func TestRefreshEndpoint(t *testing.T) {
	srv, fakes := newTestServer(t)
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/devices/lounge/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", rec.Code)
	}
	var info DeviceInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if !info.State.Reported || info.State.TargetTemperature == nil || *info.State.TargetTemperature != 23 {
		t.Errorf("state = %+v, want reported target 23", info.State)
	}

	fakes["lounge"].mu.Lock()
	fakes["lounge"].pollErr = protocol.NewTransportError("connection refused", "status", errors.New("dial"))
	fakes["lounge"].mu.Unlock()

	rec = doRequest(t, h, http.MethodPost, "/api/devices/lounge/refresh", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %v, want 502", rec.Code)
	}
	if code := decodeError(t, rec); code != ErrCodeUpstream {
		t.Errorf("code = %v, want %v", code, ErrCodeUpstream)
	}

	rec = doRequest(t, h, http.MethodGet, "/api/devices/lounge", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.LastError == "" {
		t.Error("LastError empty after failed refresh")
	}
	if !info.State.Reported {
		t.Error("failed refresh should keep the last good state")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %v, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing runtime collector")
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", protocol.NewValidationError("bad"), http.StatusBadRequest, ErrCodeBadRequest},
		{"powered off", climate.ErrPoweredOff, http.StatusConflict, ErrCodeConflict},
		{"fan only", fmt.Errorf("set: %w", climate.ErrFanOnlyMode), http.StatusConflict, ErrCodeConflict},
		{"auth", protocol.NewAuthError("expired", nil), http.StatusBadGateway, ErrCodeAuth},
		{"rejected", protocol.NewRejectedError(1, "cmd"), http.StatusBadGateway, ErrCodeUpstream},
		{"decode", protocol.NewDecodeError("empty", nil), http.StatusBadGateway, ErrCodeUpstream},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("errorStatus() = %v, %v, want %v, %v", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestBrokerCommand(t *testing.T) {
	srv, fakes := newTestServer(t)
	broker := &fakeBroker{}
	srv.SetBroker(broker)

	if err := srv.handleBrokerCommand("lounge", []byte(`{"action":"power","on":true}`)); err != nil {
		t.Fatalf("handleBrokerCommand() error = %v", err)
	}
	if calls := fakes["lounge"].Calls(); len(calls) != 1 || calls[0] != "power_on" {
		t.Errorf("calls = %v, want [power_on]", calls)
	}

	var state climate.DisplayState
	if err := json.Unmarshal(broker.state("lounge"), &state); err != nil {
		t.Fatalf("published state is not JSON: %v", err)
	}
	if !state.PowerOn {
		t.Error("published PowerOn = false, want true")
	}

	if err := srv.handleBrokerCommand("attic", []byte(`{"action":"refresh"}`)); err == nil {
		t.Error("unknown device should fail")
	}
	if err := srv.handleBrokerCommand("lounge", []byte(`nope`)); !protocol.IsValidationError(err) {
		t.Errorf("bad payload error = %v, want validation error", err)
	}
}

func TestRunPollsAndShutsDown(t *testing.T) {
	dev := &fakeDevice{polled: make(chan struct{}, 1)}
	srv, err := New(&Config{Host: "127.0.0.1", Port: 0, PollInterval: time.Hour}, []*Device{
		{ID: "lounge", Controller: climate.NewController(dev, nil)},
	})
	if err != nil {
		t.Fatal(err)
	}
	broker := &fakeBroker{}
	srv.SetBroker(broker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case <-dev.polled:
	case <-time.After(5 * time.Second):
		t.Fatal("device was not polled on start")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	broker.mu.Lock()
	subscribed := broker.handler != nil
	broker.mu.Unlock()
	if !subscribed {
		t.Error("Run() did not subscribe to broker commands")
	}
	if broker.state("lounge") == nil {
		t.Error("Run() did not publish the polled state")
	}
}
