package logger

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
}

// L returns the package-level logger. It discards everything until Init.
func L() *zap.Logger { return current.Load() }

// S returns the sugared form of L.
func S() *zap.SugaredLogger { return current.Load().Sugar() }

// ParseLevel maps a configured level name to a zap level, defaulting to warn.
func ParseLevel(name string) zapcore.Level {
	switch name {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// Init installs a JSON logger writing to stderr at level.
func Init(level string) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(zapcore.Lock(os.Stderr)),
		ParseLevel(level),
	)
	return Set(zap.New(core, zap.AddCaller()))
}

// Set replaces the package-level logger; nil restores the nop logger.
func Set(l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
	return l
}

// Sync flushes any buffered log entries.
func Sync() error {
	return current.Load().Sync()
}
