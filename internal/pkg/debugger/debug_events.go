package debugger

import (
	"bytes"
	"encoding/json"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEvent logs a raw event payload at debug level, pretty-printed when it is
// JSON. Nothing is formatted unless debug logging is enabled.
func LogEvent(logger *zap.Logger, source string, eventData []byte) {
	if logger == nil || !logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, eventData, "", "  "); err != nil {
		logger.Debug("Debug event data", zap.String("source", source), zap.ByteString("event", eventData))
		return
	}
	logger.Debug("Debug event JSON", zap.String("source", source), zap.String("event", pretty.String()))
}
