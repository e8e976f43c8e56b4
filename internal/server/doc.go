// Package server implements the Hisense bridge: a long running process that
// polls air conditioners in the vendor cloud and exposes them locally.
//
// The bridge serves:
//   - a JSON HTTP API for listing devices and sending commands
//   - a WebSocket stream of state changes (/ws, optionally ?device=id)
//   - Prometheus metrics (/metrics)
//   - optionally MQTT state and command topics through a Broker
//
// # HTTP API
//
//	GET  /health                      bridge status and version
//	GET  /api/devices                 all devices with their state
//	GET  /api/devices/{id}            one device
//	POST /api/devices/{id}/refresh    poll now
//	POST /api/devices/{id}/commands   apply a Command
//
// Commands share one JSON shape across HTTP and MQTT:
//
//	{"action":"power","on":true}
//	{"action":"mode","mode":"heat"}
//	{"action":"temperature","value":21.5}
//
// Errors are returned as {"error":{"code":...,"message":...}}. Validation
// problems map to 400, commands that need the unit running map to 409, and
// cloud failures map to 502 or 504.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{
//	    Host:         "0.0.0.0",
//	    Port:         8080,
//	    PollInterval: time.Minute,
//	}, devices)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv.SetBroker(mqttClient)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until SIGINT or SIGTERM and then shuts down gracefully. Run
// takes a context instead, which is what tests use.
package server
