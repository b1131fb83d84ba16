package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log   *zap.Logger
	Sugar *zap.SugaredLogger
)

// Init builds the global loggers. Development mode switches to the
// console encoder with colored levels; format overrides the encoder
// ("json" or "console").
func Init(level, format string, development bool) error {
	var config zap.Config

	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	}

	if format == "console" {
		config.Encoding = "console"
	} else if format == "json" {
		config.Encoding = "json"
		config.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	Log, err = config.Build()
	if err != nil {
		return err
	}
	Sugar = Log.Sugar()

	return nil
}

func Close() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// The helpers fall back to a no-op logger so library code can log
// before Init (or in tests that never call it).
func l() *zap.Logger {
	if Log == nil {
		return zap.NewNop()
	}
	return Log
}

func Fatal(msg string, fields ...zap.Field) {
	l().Fatal(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	l().Error(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	l().Warn(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	l().Info(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	l().Debug(msg, fields...)
}
