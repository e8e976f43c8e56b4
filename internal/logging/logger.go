package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger    *zap.Logger
	nopLogger = zap.NewNop()
)

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "HISENSE_LOG_LEVEL"

// maxRawBody caps how much of a response body LogRawBody prints
const maxRawBody = 512

// Initialize creates a new logger with the specified level.
// If level is empty, it checks HISENSE_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// ParseLevel maps a level name to a zap level.
// Unknown names fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer cores.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Silent until initialized so library callers never print unexpectedly
		return nopLogger
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogCloudRequest logs an outgoing request to the vendor cloud.
// The access token query parameter is redacted.
func LogCloudRequest(method, endpoint, deviceID string, attempt int) {
	Debug("Cloud request",
		zap.String("method", method),
		zap.String("endpoint", RedactURL(endpoint)),
		zap.String("device_id", deviceID),
		zap.Int("attempt", attempt),
	)
}

// LogCloudResponse logs the envelope outcome of a cloud request
func LogCloudResponse(endpoint string, httpStatus, resultCode int, elapsed time.Duration) {
	Debug("Cloud response",
		zap.String("endpoint", RedactURL(endpoint)),
		zap.Int("http_status", httpStatus),
		zap.Int("result_code", resultCode),
		zap.Duration("elapsed", elapsed),
	)
}

// LogTokenRefresh logs the result of an access token refresh
func LogTokenRefresh(success bool, newToken string, err error) {
	if success {
		Info("Access token refreshed", zap.String("token", RedactToken(newToken)))
		return
	}
	Warn("Access token refresh failed", zap.Error(err))
}

// LogCommand logs a device command and the state trace it produced
func LogCommand(deviceID, command string, states []string, err error) {
	fields := []zap.Field{
		zap.String("device_id", deviceID),
		zap.String("command", command),
		zap.Strings("states", states),
	}
	if err != nil {
		Warn("Device command failed", append(fields, zap.Error(err))...)
		return
	}
	Info("Device command completed", fields...)
}

// LogRawBody logs a response body at debug level (useful for protocol issues)
func LogRawBody(label string, body []byte) {
	if !GetLogger().Core().Enabled(zapcore.DebugLevel) {
		return
	}
	text := string(body)
	if len(text) > maxRawBody {
		text = text[:maxRawBody] + "..."
	}
	Debug(label,
		zap.Int("length", len(body)),
		zap.String("body", text),
	)
}

// RedactToken keeps the first and last four characters of a token
func RedactToken(token string) string {
	if token == "" {
		return "<none>"
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}

// RedactURL redacts the accessToken query value of an endpoint URL
func RedactURL(endpoint string) string {
	const key = "accessToken="
	i := strings.Index(endpoint, key)
	if i < 0 {
		return endpoint
	}
	start := i + len(key)
	end := strings.IndexByte(endpoint[start:], '&')
	if end < 0 {
		return endpoint[:start] + RedactToken(endpoint[start:])
	}
	return endpoint[:start] + RedactToken(endpoint[start:start+end]) + endpoint[start+end:]
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
