// Package tui provides the interactive dashboard of hisense-ctl.
//
// The dashboard shows one air conditioner as a live status card and maps single
// keys to controller actions:
//
//	p      power on/off
//	+ / -  target temperature up/down
//	m      cycle HVAC mode (AUTO, COOL, HEAT, DRY, FAN_ONLY)
//	f      cycle fan speed
//	s      cycle swing
//	d      display panel on/off
//	a      auxiliary heat on/off
//	r      poll now
//	t      renew the access token
//	?      show all keys
//	q      quit
//
// One action runs at a time. Every successful change is followed by a status
// poll, and the status is polled on a fixed interval while the dashboard is open.
//
// Usage:
//
//	err := tui.Run(ctx, tui.Options{
//	    Title:      "Lounge",
//	    Controller: ctrl,
//	})
package tui
