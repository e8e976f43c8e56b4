// Package mqtt bridges Hisense devices onto an MQTT broker.
//
// The bridge publishes each device's display state as a retained JSON message
// and listens for commands:
//
//	hisense/state/<device>     retained display state (JSON)
//	hisense/command/<device>   command payload, same schema as the HTTP API
//	hisense/bridge/status      retained online/offline, also the Last Will
//
// The prefix is configurable. Connections reconnect automatically and the
// command subscription is restored after a reconnect.
package mqtt
