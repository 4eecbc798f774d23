// Package utils
package utils

import (
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	modeDev        = "dev"
	modeProduction = "prod"
)

// NewLogger builds the service logger for the given server mode and level.
func NewLogger(serverMode, level string, opts ...zap.Option) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	switch serverMode {
	case modeDev:
		logCfg = zap.NewDevelopmentConfig()
		logCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logCfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	case modeProduction:
		logCfg = zap.NewProductionConfig()
	}

	switch level {
	case "info":
		logCfg.Level.SetLevel(zapcore.InfoLevel)
	case "debug":
		logCfg.Level.SetLevel(zapcore.DebugLevel)
	case "warn":
		logCfg.Level.SetLevel(zapcore.WarnLevel)
	case "error":
		logCfg.Level.SetLevel(zapcore.ErrorLevel)
	default:
		logCfg.Level.SetLevel(zapcore.InfoLevel)
	}

	return logCfg.Build(opts...)
}

// WithSentry forwards warnings and errors to sentry. sentry.Init must run first.
func WithSentry() zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.RegisterHooks(core, func(entry zapcore.Entry) error {
			if entry.Level < zapcore.WarnLevel {
				return nil
			}
			e := sentry.NewEvent()
			e.Message = entry.Message
			switch entry.Level {
			case zapcore.WarnLevel:
				e.Level = sentry.LevelWarning
			case zapcore.ErrorLevel:
				e.Level = sentry.LevelError
			default:
				e.Level = sentry.LevelFatal
			}
			sentry.CaptureEvent(e)
			return nil
		})
	})
}

// SetupSentry initialises the sentry client. An empty DSN leaves reporting disabled.
func SetupSentry(dsn, serverMode string) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: serverMode,
	})
}
