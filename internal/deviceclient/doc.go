// Package deviceclient controls one Hisense air conditioner through the vendor
// cloud command host.
//
// # Overview
//
// A Client is bound to one device Identity and an Authenticator (normally a
// *session.Session). It exposes four network operations and one local read:
//
//	c := deviceclient.New(deviceclient.Identity{WifiID: w, DeviceID: d}, sess)
//	err := c.PowerOn(ctx)
//	err = c.SendLogicCommand(ctx, protocol.CmdTargetTemperature, 22)
//	err = c.CheckStatus(ctx)
//	status := c.Status() // no I/O
//
// # Re-authentication
//
// Every request carries the current access token. When the command host
// answers with a non-zero resultCode the client refreshes the token once and
// resends the same body once. A failed refresh returns the original rejection
// with the auth error as its cause. Transport failures are never retried.
// The states visited by the last operation are available from LastOutcome.
//
// # Snapshot
//
// The status snapshot is an immutable protocol.Status held behind an atomic
// pointer and replaced whole. Every accepted reply carries a status array that
// becomes the new snapshot; a reply that cannot be decoded leaves the previous
// snapshot in place and the operation returns a decode error. PowerOn and
// PowerOff set the power flag before sending and do not undo it on failure.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Concurrent operations are not
// ordered: the last reply to be decoded wins.
package deviceclient
