package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix roots every topic the bridge uses
const DefaultTopicPrefix = "hisense"

// Topics builds the bridge's topic names under a prefix.
//
//	topics := mqtt.Topics{Prefix: "hisense"}
//	topics.State("lounge")   // hisense/state/lounge
//	topics.Command("lounge") // hisense/command/lounge
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.Trim(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// State returns the retained display-state topic for a device.
func (t Topics) State(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", t.prefix(), deviceID)
}

// Command returns the topic a device accepts commands on.
func (t Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", t.prefix(), deviceID)
}

// AllCommands matches the command topic of every device.
func (t Topics) AllCommands() string {
	return t.prefix() + "/command/+"
}

// BridgeStatus is the retained online/offline topic, also used for the LWT.
func (t Topics) BridgeStatus() string {
	return t.prefix() + "/bridge/status"
}

// ParseCommandTopic extracts the device id from a command topic.
func (t Topics) ParseCommandTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.prefix()+"/command/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
