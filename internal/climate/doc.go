// Package climate applies the air conditioner rules on top of a device client
// and renders snapshots for people.
//
// The Controller refuses changes the appliance would ignore (temperature,
// fan and swing while powered off, temperature in FAN_ONLY), converts
// Fahrenheit input, and sequences a mode change on a stopped unit as power on,
// TurnOnDelay, mode command. View turns a protocol.Status into a DisplayState
// with labels, applying DefaultHVACMode, DefaultFanMode, DefaultSwingMode and
// DefaultScreenOn where the snapshot has nothing to show. Verify polls until a
// change is visible in the reported status.
package climate
