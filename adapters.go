package respkv

import (
	"time"

	"github.com/raniellyferreira/respkv/command"
)

// serverLogger adapts our Logger interface to server.Logger
type serverLogger struct {
	logger Logger
}

func (sl *serverLogger) Debug(msg string, fields ...interface{}) {
	sl.logger.Debug(msg, convertFields(fields...)...)
}

func (sl *serverLogger) Info(msg string, fields ...interface{}) {
	sl.logger.Info(msg, convertFields(fields...)...)
}

func (sl *serverLogger) Error(msg string, fields ...interface{}) {
	sl.logger.Error(msg, convertFields(fields...)...)
}

func convertFields(fields ...interface{}) []Field {
	result := make([]Field, 0, len(fields)/2)
	for i := 0; i < len(fields)-1; i += 2 {
		if key, ok := fields[i].(string); ok {
			result = append(result, Field{
				Key:   key,
				Value: fields[i+1],
			})
		}
	}
	return result
}

// metricsAdapter adapts our MetricsCollector to server.Metrics
type metricsAdapter struct {
	metrics MetricsCollector
}

// RecordCommand reports names outside the command table as "unknown" so
// that clients cannot grow the label set
func (ma *metricsAdapter) RecordCommand(name string, duration time.Duration) {
	if !command.Supported(name) {
		name = "unknown"
	}
	ma.metrics.RecordCommandProcessed(name, duration)
}

func (ma *metricsAdapter) RecordConnection() {
	ma.metrics.RecordConnection()
}

func (ma *metricsAdapter) RecordError(errorType string) {
	ma.metrics.RecordError(errorType)
}
