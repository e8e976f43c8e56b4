package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/muurk/hisense/internal/climate"
	"github.com/muurk/hisense/internal/logging"
	"github.com/muurk/hisense/internal/metrics"
	"github.com/muurk/hisense/internal/mqtt"
)

// Defaults for Config
const (
	DefaultPollInterval    = 60 * time.Second
	DefaultCommandTimeout  = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the bridge configuration
type Config struct {
	Host           string
	Port           int
	CertPath       string // Enables HTTPS together with KeyPath
	KeyPath        string
	PollInterval   time.Duration
	CommandTimeout time.Duration // Per command, covers the turn-on delay
	Version        string
}

// Addr returns host:port
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Device is one air conditioner served by the bridge
type Device struct {
	ID         string // Alias used in URLs and topics
	Name       string
	Controller *climate.Controller
}

// Broker carries state out and commands in, implemented by *mqtt.Client
type Broker interface {
	PublishState(deviceID string, payload []byte) error
	SubscribeCommands(handler mqtt.CommandHandler) error
}

// Server polls devices and exposes them over HTTP, WebSocket, MQTT and Prometheus
type Server struct {
	config    *Config
	devices   map[string]*Device
	order     []string
	hub       *Hub
	broker    Broker
	registry  *prometheus.Registry
	tlsConfig *tls.Config
	started   time.Time

	mu         sync.Mutex
	httpServer *http.Server
	lastErrors map[string]string

	wg sync.WaitGroup
}

// New creates a bridge for the given devices
func New(config *Config, devices []*Device) (*Server, error) {
	if len(devices) == 0 {
		return nil, errors.New("no devices to serve")
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = DefaultCommandTimeout
	}

	s := &Server{
		config:     config,
		devices:    make(map[string]*Device, len(devices)),
		hub:        NewHub(),
		registry:   metrics.NewRegistry(),
		lastErrors: make(map[string]string),
	}
	for _, d := range devices {
		if d.ID == "" || d.Controller == nil {
			return nil, errors.New("device needs an id and a controller")
		}
		if _, dup := s.devices[d.ID]; dup {
			return nil, fmt.Errorf("duplicate device id %q", d.ID)
		}
		s.devices[d.ID] = d
		s.order = append(s.order, d.ID)
	}

	if config.CertPath != "" || config.KeyPath != "" {
		tlsConfig, err := NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, err
		}
		s.tlsConfig = tlsConfig
	}

	return s, nil
}

// SetBroker attaches an MQTT broker. Call before Start.
func (s *Server) SetBroker(b Broker) {
	s.broker = b
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start runs the bridge until SIGINT or SIGTERM
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.started = time.Now()

	if s.broker != nil {
		if err := s.broker.SubscribeCommands(s.handleBrokerCommand); err != nil {
			return fmt.Errorf("failed to subscribe to commands: %w", err)
		}
	}

	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()

	logging.Info("Starting Hisense bridge",
		zap.String("addr", listener.Addr().String()),
		zap.Strings("devices", s.order),
		zap.Duration("poll_interval", s.config.PollInterval),
		zap.Bool("mqtt", s.broker != nil),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
	)

	pollCtx, cancelPolls := context.WithCancel(ctx)
	defer cancelPolls()
	for _, id := range s.order {
		s.wg.Add(1)
		go func(d *Device) {
			defer s.wg.Done()
			s.pollLoop(pollCtx, d)
		}(s.devices[id])
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping bridge...")
		cancelPolls()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		cancelPolls()
		s.wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the HTTP server, disconnects WebSocket clients and waits for pollers
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge...")

	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()

	var shutdownErr error
	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			logging.Error("Error shutting down HTTP server", zap.Error(err))
			shutdownErr = err
		}
	}
	s.hub.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All pollers stopped")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return shutdownErr
}

// pollLoop polls one device immediately and then every PollInterval
func (s *Server) pollLoop(ctx context.Context, d *Device) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		s.Poll(ctx, d)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll refreshes one device and publishes the result
func (s *Server) Poll(ctx context.Context, d *Device) {
	err := d.Controller.ForceUpdate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.ObservePollError(d.ID)
		logging.Warn("Status poll failed", zap.String("device", d.ID), zap.Error(err))
	}
	s.publish(d, err)
}

// Execute applies a command to a device and publishes the new state
func (s *Server) Execute(ctx context.Context, d *Device, cmd Command) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.CommandTimeout)
	defer cancel()

	err := cmd.Apply(ctx, d.Controller)
	logging.Info("Bridge command",
		zap.String("device", d.ID),
		zap.String("action", cmd.Action),
		zap.Error(err),
	)
	s.publish(d, err)
	return err
}

// publish pushes the current snapshot to WebSocket clients and the broker.
// The snapshot is published even after a failure, it still holds the last good state.
func (s *Server) publish(d *Device, opErr error) {
	view := d.Controller.View()

	s.mu.Lock()
	if opErr != nil {
		s.lastErrors[d.ID] = opErr.Error()
	} else {
		delete(s.lastErrors, d.ID)
	}
	s.mu.Unlock()

	now := time.Now().UTC()
	s.hub.Broadcast(Event{Type: EventState, DeviceID: d.ID, Timestamp: now, Payload: view})
	if opErr != nil {
		s.hub.Broadcast(Event{Type: EventError, DeviceID: d.ID, Timestamp: now, Payload: map[string]string{"error": opErr.Error()}})
	}

	if s.broker == nil {
		return
	}
	payload, err := json.Marshal(view)
	if err != nil {
		logging.Error("Failed to marshal state", zap.String("device", d.ID), zap.Error(err))
		return
	}
	if err := s.broker.PublishState(d.ID, payload); err != nil {
		logging.Warn("Failed to publish state", zap.String("device", d.ID), zap.Error(err))
	}
}

// handleBrokerCommand applies a command received from MQTT
func (s *Server) handleBrokerCommand(deviceID string, payload []byte) error {
	d, ok := s.devices[deviceID]
	if !ok {
		return fmt.Errorf("unknown device %q", deviceID)
	}
	cmd, err := DecodeCommand(payload)
	if err != nil {
		return err
	}
	return s.Execute(context.Background(), d, cmd)
}

func (s *Server) lastError(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErrors[id]
}
