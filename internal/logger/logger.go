package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	log     = zap.NewNop()
	sugared = log.Sugar()
)

// Init replaces the no-op logger with a JSON logger writing to stdout.
func Init() {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		level,
	)
	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	sugared = log.Sugar()
}

// SetLevel changes the level of the shared logger. Unknown levels are ignored.
func SetLevel(lvl string) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(lvl)))); err != nil {
		Warnf("unknown log level %q, keeping %s", lvl, level.Level())
		return
	}
	level.SetLevel(l)
}

// L returns the underlying zap logger for components that take one.
func L() *zap.Logger {
	return log.WithOptions(zap.AddCallerSkip(-1))
}

func Sync() {
	_ = log.Sync()
}

func Debug(msg string, fields ...zap.Field) {
	log.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	log.Fatal(msg, fields...)
}

func Infof(template string, args ...interface{}) {
	sugared.Infof(template, args...)
}

func Warnf(template string, args ...interface{}) {
	sugared.Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	sugared.Errorf(template, args...)
}
