package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fanloremedia/fanlore/pkg/interfaces"
)

// ZapLogger wraps zap logger to implement the Logger interface.
type ZapLogger struct {
	logger *zap.Logger
}

// New creates a new logger based on environment.
func New() interfaces.Logger {
	env := os.Getenv("ENVIRONMENT")
	development := env == "" || env == "development"

	logger, err := NewZapLogger(development)
	if err != nil {
		panic(err)
	}

	return logger
}

// NewZapLogger creates a new zap logger with the specified configuration.
func NewZapLogger(development bool) (*ZapLogger, error) {
	var config zap.Config

	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.MessageKey = "message"
		config.EncoderConfig.LevelKey = "level"
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	}

	// Set log level from environment
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(logLevel)); err == nil {
			config.Level = zap.NewAtomicLevelAt(level)
		}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &ZapLogger{logger: logger}, nil
}

// Debug logs a debug message.
func (l *ZapLogger) Debug(msg string, fields ...interfaces.Field) {
	l.logger.Debug(msg, convertFields(fields)...)
}

// Info logs an info message.
func (l *ZapLogger) Info(msg string, fields ...interfaces.Field) {
	l.logger.Info(msg, convertFields(fields)...)
}

// Warn logs a warning message.
func (l *ZapLogger) Warn(msg string, fields ...interfaces.Field) {
	l.logger.Warn(msg, convertFields(fields)...)
}

// Error logs an error message.
func (l *ZapLogger) Error(msg string, fields ...interfaces.Field) {
	l.logger.Error(msg, convertFields(fields)...)
}

// WithFields returns a logger with additional fields.
func (l *ZapLogger) WithFields(fields ...interfaces.Field) interfaces.Logger {
	return &ZapLogger{logger: l.logger.With(convertFields(fields)...)}
}

// Sync flushes any buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// Zap exposes the underlying zap logger for integrations that want it
// directly.
func (l *ZapLogger) Zap() *zap.Logger {
	return l.logger
}

// convertFields converts our custom fields to zap fields.
func convertFields(fields []interfaces.Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, field := range fields {
		switch v := field.Value.(type) {
		case string:
			zapFields[i] = zap.String(field.Key, v)
		case int:
			zapFields[i] = zap.Int(field.Key, v)
		case int64:
			zapFields[i] = zap.Int64(field.Key, v)
		case bool:
			zapFields[i] = zap.Bool(field.Key, v)
		case error:
			zapFields[i] = zap.Error(v)
		default:
			zapFields[i] = zap.Any(field.Key, v)
		}
	}
	return zapFields
}
