// Package logging wraps zap with the secret-redaction policy the service
// requires: any field whose key matches a sensitive-looking name has its
// value replaced before it reaches the sink.
package logging

import (
	"regexp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

var redactKeyPattern = regexp.MustCompile(`(?i)apikey|api_key|authorization|token|password|secret`)

// Init builds the process logger. debugEnabled raises the level to debug;
// an empty logFilePath logs to stdout, otherwise to the named file (with a
// sibling .err file for the encoder's own failures). disabled swaps in a
// no-op core so call sites pay no cost when logging is turned off.
func Init(debugEnabled bool, logFilePath string, disabled bool) error {
	if disabled {
		logger = zap.NewNop()
		return nil
	}

	level := zapcore.InfoLevel
	if debugEnabled {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	outputs := []string{"stdout"}
	errOutputs := []string{"stderr"}
	if logFilePath != "" {
		outputs = []string{logFilePath}
		errOutputs = []string{logFilePath + ".err"}
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: errOutputs,
	}

	built, err := cfg.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &redactingCore{Core: core}
	}))
	if err != nil {
		return err
	}
	logger = built
	return nil
}

// Close flushes any buffered log entries.
func Close() {
	if logger != nil {
		_ = logger.Sync()
	}
}

func Debug(msg string, fields ...zap.Field) { log(zapcore.DebugLevel, msg, fields) }
func Info(msg string, fields ...zap.Field)  { log(zapcore.InfoLevel, msg, fields) }
func Warn(msg string, fields ...zap.Field)  { log(zapcore.WarnLevel, msg, fields) }
func Error(msg string, fields ...zap.Field) { log(zapcore.ErrorLevel, msg, fields) }

func log(level zapcore.Level, msg string, fields []zap.Field) {
	if logger == nil {
		return
	}
	switch level {
	case zapcore.DebugLevel:
		logger.Debug(msg, fields...)
	case zapcore.WarnLevel:
		logger.Warn(msg, fields...)
	case zapcore.ErrorLevel:
		logger.Error(msg, fields...)
	default:
		logger.Info(msg, fields...)
	}
}

// Err creates an error field.
func Err(err error) zap.Field { return zap.Error(err) }

// String creates a string field. The value is redacted if key looks
// sensitive; prefer this over zap.String for any field derived from
// request headers or config.
func String(key, value string) zap.Field {
	if redactKeyPattern.MatchString(key) {
		return zap.String(key, "[redacted]")
	}
	return zap.String(key, value)
}

// Int creates an int field.
func Int(key string, value int) zap.Field { return zap.Int(key, value) }

// Bool creates a bool field.
func Bool(key string, value bool) zap.Field { return zap.Bool(key, value) }

// redactingCore wraps a zapcore.Core and strips values from any field
// whose key matches redactKeyPattern, as a second line of defense for
// fields added with zap.* constructors directly rather than logging.String.
type redactingCore struct {
	zapcore.Core
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(redactFields(fields))}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, redactFields(fields))
}

func redactFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if f.Type == zapcore.StringType && redactKeyPattern.MatchString(f.Key) {
			f.String = "[redacted]"
		}
		out[i] = f
	}
	return out
}
