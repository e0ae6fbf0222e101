package oauth

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewCorrelationID generates a unique ID that links all log entries for one
// authorization flow.
func NewCorrelationID() string {
	return uuid.New().String()
}

// flowLogger returns a logger tagged with the flow's correlation ID and
// server ID so one flow's entries can be grepped out of interleaved output.
func flowLogger(logger *zap.Logger, serverID, correlationID string) *zap.Logger {
	return logger.With(
		zap.String("server", serverID),
		zap.String("correlation_id", correlationID),
	)
}
