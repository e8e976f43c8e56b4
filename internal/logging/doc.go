// Package logging provides structured logging for the Hisense cloud client.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used by the session, device client and bridge. It is silent unless a
// level is passed to Initialize or set through HISENSE_LOG_LEVEL, so the CLI
// prints only its own output by default.
//
// # Log Levels
//
//   - Debug: cloud requests and responses, raw bodies
//   - Info: token refreshes, completed commands, bridge lifecycle
//   - Warn: rejected or failed commands, failed refreshes, poll errors
//   - Error: startup failures
//
// # Specialized Logging
//
//	logging.LogCloudRequest("POST", endpoint, deviceID, 1)
//	logging.LogCloudResponse(endpoint, 200, 0, elapsed)
//	logging.LogTokenRefresh(true, token, nil)
//	logging.LogCommand(deviceID, "power_on", outcome.StateNames(), err)
//
// Access tokens never appear in full: endpoints pass through RedactURL and
// tokens through RedactToken.
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize and SetLogger
// are meant to be called once at startup.
package logging
