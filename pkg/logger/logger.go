package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the global structured logger. Init must be called before use;
// packages may assume it is non-nil once the server has started.
var Log *zap.Logger

var sugar *zap.SugaredLogger

// Init initializes the global zap logger. level may come from config or
// the FORUMDB_LOG_LEVEL env var; unknown values fall back to info.
func Init(level string) {
	if level == "" {
		level = os.Getenv("FORUMDB_LOG_LEVEL")
	}
	var lvl zapcore.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn", "warning":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		lvl,
	)
	Log = zap.New(core)
	sugar = Log.Sugar()
}

// ensure returns a usable sugared logger even before Init (tests).
func ensure() *zap.SugaredLogger {
	if sugar == nil {
		Init("")
	}
	return sugar
}

// Debug logs msg with alternating key/value pairs.
func Debug(msg string, keyvals ...interface{}) { ensure().Debugw(msg, keyvals...) }

// Info logs msg with alternating key/value pairs.
func Info(msg string, keyvals ...interface{}) { ensure().Infow(msg, keyvals...) }

// Warn logs msg with alternating key/value pairs.
func Warn(msg string, keyvals ...interface{}) { ensure().Warnw(msg, keyvals...) }

// Error logs msg with alternating key/value pairs.
func Error(msg string, keyvals ...interface{}) { ensure().Errorw(msg, keyvals...) }

// Sync flushes buffered log entries; safe to call on shutdown.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
