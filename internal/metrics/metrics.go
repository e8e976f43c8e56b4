// Package metrics holds the Prometheus collectors shared by the device client,
// the session and the bridge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muurk/hisense/internal/protocol"
)

var (
	commandTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hisense_command_total",
			Help: "Device operations by final state",
		},
		[]string{"device_id", "command", "outcome"},
	)
	commandRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hisense_command_retries_total",
			Help: "Operations resent after an access token refresh",
		},
		[]string{"device_id", "command"},
	)
	refreshSuccess = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hisense_token_refresh_success_total",
			Help: "Successful access token refreshes",
		},
	)
	refreshFailure = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hisense_token_refresh_failure_total",
			Help: "Failed access token refreshes",
		},
	)
	pollErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hisense_poll_errors_total",
			Help: "Bridge status polls that returned an error",
		},
		[]string{"device_id"},
	)

	powerOn = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hisense_power_on",
		Help: "Power state (1=on, 0=off)",
	}, []string{"device_id"})
	desiredTemp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hisense_desired_temperature_celsius",
		Help: "Target temperature (celsius)",
	}, []string{"device_id"})
	indoorTemp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hisense_indoor_temperature_celsius",
		Help: "Reported indoor temperature (celsius)",
	}, []string{"device_id"})
	hvacMode = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hisense_hvac_mode",
		Help: "Operating mode (1=active)",
	}, []string{"device_id", "mode"})
	lastUpdate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hisense_status_updated_timestamp_seconds",
		Help: "Unix time of the last decoded status",
	}, []string{"device_id"})
)

// Collectors returns every collector of this package for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		commandTotal,
		commandRetries,
		refreshSuccess,
		refreshFailure,
		pollErrors,
		powerOn,
		desiredTemp,
		indoorTemp,
		hvacMode,
		lastUpdate,
	}
}

// NewRegistry builds a registry with the package collectors plus the Go and
// process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	for _, collector := range Collectors() {
		registry.MustRegister(collector)
	}
	return registry
}

// Handler exposes the registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveCommand counts one device operation by its final state
func ObserveCommand(deviceID, command, outcome string, retried bool) {
	commandTotal.WithLabelValues(deviceID, command, outcome).Inc()
	if retried {
		commandRetries.WithLabelValues(deviceID, command).Inc()
	}
}

// ObserveRefresh counts one refresh attempt
func ObserveRefresh(success bool) {
	if success {
		refreshSuccess.Inc()
		return
	}
	refreshFailure.Inc()
}

// ObservePollError counts one failed bridge poll
func ObservePollError(deviceID string) {
	pollErrors.WithLabelValues(deviceID).Inc()
}

// ObserveStatus publishes a snapshot to the gauges.
// Unreported snapshots only update the power gauge.
func ObserveStatus(deviceID string, s protocol.Status) {
	powerOn.WithLabelValues(deviceID).Set(boolFloat(s.PowerOn))
	if !s.Reported {
		return
	}
	desiredTemp.WithLabelValues(deviceID).Set(float64(s.DesiredTemperature))
	indoorTemp.WithLabelValues(deviceID).Set(float64(s.IndoorTemperature))
	for _, m := range protocol.HVACModes() {
		hvacMode.WithLabelValues(deviceID, m.String()).Set(boolFloat(m == s.HVACModeID))
	}
	if !s.UpdatedAt.IsZero() {
		lastUpdate.WithLabelValues(deviceID).Set(float64(s.UpdatedAt.Unix()))
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
