package logging

import (
	"errors"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bivex/fitness-stats/internal/infrastructure/config"
)

const sentryFlushTimeout = 2 * time.Second

var (
	Logger = zap.NewNop()

	sentryEnabled bool
)

// Init initializes the global logger and, when a DSN is configured, Sentry
func Init(cfg *config.SentryConfig) error {
	var zapConfig zap.Config

	// Use development config in dev/staging, production in prod
	environment := "production"
	if cfg != nil && cfg.Environment != "" {
		environment = cfg.Environment
	}

	if environment == "development" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	var opts []zap.Option
	if cfg != nil && cfg.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.DSN,
			Environment: environment,
			Release:     cfg.Release,
		}); err != nil {
			return err
		}
		sentryEnabled = true
		opts = append(opts, zap.Hooks(SentryHook(sentry.CurrentHub())))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		return err
	}
	Logger = logger.With(zap.String("environment", environment))

	return nil
}

// SentryHook forwards error-level entries to the given hub
func SentryHook(hub *sentry.Hub) func(zapcore.Entry) error {
	return func(entry zapcore.Entry) error {
		if entry.Level < zapcore.ErrorLevel || hub == nil {
			return nil
		}
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("logger", entry.LoggerName)
			scope.SetExtra("caller", entry.Caller.TrimmedPath())
			hub.CaptureException(errors.New(entry.Message))
		})
		return nil
	}
}

// Sync flushes any buffered log entries and pending Sentry events
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
	if sentryEnabled {
		sentry.Flush(sentryFlushTimeout)
	}
}

// WithComponent creates a child logger with a component field
func WithComponent(component string) *zap.Logger {
	return Logger.With(zap.String("component", component))
}

// WithRequestID creates a child logger with a request_id field
func WithRequestID(requestID string) *zap.Logger {
	return Logger.With(zap.String("request_id", requestID))
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, fields...)
	os.Exit(1)
}
