package deviceclient

import "strings"

// State is one step of a command send
type State int

const (
	StateBuilding State = iota
	StateSent
	StateSucceeded
	StateAuthRejected
	StateRefreshing
	StateRefreshFailed
	StateRetriedSucceeded
	StateRetriedFailed
	StateTransportFailed
	StateDecodeFailed
)

var stateNames = [...]string{
	"building",
	"sent",
	"succeeded",
	"auth_rejected",
	"refreshing",
	"refresh_failed",
	"retried_succeeded",
	"retried_failed",
	"transport_failed",
	"decode_failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateRefreshFailed, StateRetriedSucceeded, StateRetriedFailed,
		StateTransportFailed, StateDecodeFailed:
		return true
	}
	return false
}

// Outcome is the trace of one command send
type Outcome struct {
	Command  string
	States   []State
	Attempts int
}

func (o *Outcome) record(s State) {
	o.States = append(o.States, s)
	if s == StateSent {
		o.Attempts++
	}
}

// Final returns the last state reached
func (o Outcome) Final() State {
	if len(o.States) == 0 {
		return StateBuilding
	}
	return o.States[len(o.States)-1]
}

// Retried reports whether the request was resent after a refresh
func (o Outcome) Retried() bool {
	return o.Attempts > 1
}

// Refreshed reports whether a refresh was attempted
func (o Outcome) Refreshed() bool {
	for _, s := range o.States {
		if s == StateRefreshing {
			return true
		}
	}
	return false
}

// StateNames returns the trace as strings
func (o Outcome) StateNames() []string {
	names := make([]string, len(o.States))
	for i, s := range o.States {
		names[i] = s.String()
	}
	return names
}

func (o Outcome) String() string {
	return o.Command + ": " + strings.Join(o.StateNames(), " -> ")
}
