// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gnmi

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// MaxLogValueLength caps the length of a single logged value.
const MaxLogValueLength = 1024

// Logger is the structured logging contract used by Client and Transport.
//
// Every method receives the request context first so adapters can pull
// request-scoped fields (trace ids, request ids) out of it.
//
// Example adapter:
//
//	type SlogAdapter struct{ l *slog.Logger }
//
//	func (s *SlogAdapter) Debug(ctx context.Context, msg string, kv ...any) {
//	    s.l.DebugContext(ctx, msg, kv...)
//	}
//	// Info, Warn, Error likewise
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

// LogLevel is the severity threshold of a DefaultLogger.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelNone
)

// String returns the upper-case level name.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelNone:
		return "NONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// ParseLogLevel maps a level name (case-insensitive) to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "none", "off":
		return LogLevelNone, nil
	}
	return LogLevelNone, fmt.Errorf("invalid log level: %q", s)
}

// DefaultLogger writes through a logrus logger. Key/value pairs become
// logrus fields after sanitization.
//
// Example:
//
//	logger := gnmi.NewDefaultLogger(gnmi.LogLevelDebug)
//	client, _ := gnmi.NewClient("192.168.1.1:57400",
//	    gnmi.Username("admin"),
//	    gnmi.Password("secret"),
//	    gnmi.WithLogger(logger))
type DefaultLogger struct {
	level  LogLevel
	logger *logrus.Logger
}

// NewDefaultLogger returns a DefaultLogger on a dedicated logrus logger
// writing to stderr.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return &DefaultLogger{level: level, logger: l}
}

// NewLogrusLogger wraps an existing logrus logger. The logrus logger's own
// level still applies on top of level.
func NewLogrusLogger(l *logrus.Logger, level LogLevel) *DefaultLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &DefaultLogger{level: level, logger: l}
}

// SetOutput redirects the underlying logrus logger.
func (l *DefaultLogger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// Debug logs a debug message with structured key-value pairs.
func (l *DefaultLogger) Debug(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, LogLevelDebug, msg, keysAndValues...)
}

// Info logs an info message with structured key-value pairs.
func (l *DefaultLogger) Info(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, LogLevelInfo, msg, keysAndValues...)
}

// Warn logs a warning message with structured key-value pairs.
func (l *DefaultLogger) Warn(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, LogLevelWarn, msg, keysAndValues...)
}

// Error logs an error message with structured key-value pairs.
func (l *DefaultLogger) Error(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, LogLevelError, msg, keysAndValues...)
}

func (l *DefaultLogger) log(ctx context.Context, level LogLevel, msg string, keysAndValues ...any) {
	if level < l.level || l.level == LogLevelNone {
		return
	}

	entry := l.logger.WithContext(ctx).WithFields(toFields(keysAndValues))
	switch level {
	case LogLevelDebug:
		entry.Debug(msg)
	case LogLevelInfo:
		entry.Info(msg)
	case LogLevelWarn:
		entry.Warn(msg)
	default:
		entry.Error(msg)
	}
}

// toFields converts alternating key/value pairs into logrus fields. A
// trailing key without a value is recorded as "<MISSING>".
func toFields(keysAndValues []any) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := sanitizeLogValue(keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields[key] = sanitizeLogValue(keysAndValues[i+1])
		} else {
			fields[key] = "<MISSING>"
		}
	}
	return fields
}

// sanitizeLogValue renders val as a single safe line: control characters
// and ANSI escapes are neutralised, zero-width and RTL override runes are
// dropped, and the result is truncated to MaxLogValueLength.
func sanitizeLogValue(val any) string {
	str := fmt.Sprintf("%v", val)
	if len(str) > MaxLogValueLength {
		str = str[:MaxLogValueLength] + "...[TRUNCATED]"
	}

	var b strings.Builder
	b.Grow(len(str))
	for i := 0; i < len(str); {
		c := str[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(str[i:])
			switch {
			case r == utf8.RuneError:
				b.WriteByte('.')
			case r == 0x200B, r == 0x200C, r == 0x200D, r == 0xFEFF:
				// zero-width: drop
			case r == 0x202E:
				b.WriteByte(' ')
			default:
				b.WriteString(str[i : i+size])
			}
			if size == 0 {
				size = 1
			}
			i += size
			continue
		}
		switch {
		case c == '\n', c == '\r', c == '\t', c == 0x0C:
			b.WriteByte(' ')
		case c < 32 || c == 127:
			b.WriteByte('.')
		default:
			b.WriteByte(c)
		}
		i++
	}
	return b.String()
}

// NoOpLogger discards everything. It is the Client default.
type NoOpLogger struct{}

// Debug discards the log message.
func (n *NoOpLogger) Debug(_ context.Context, _ string, _ ...any) {}

// Info discards the log message.
func (n *NoOpLogger) Info(_ context.Context, _ string, _ ...any) {}

// Warn discards the log message.
func (n *NoOpLogger) Warn(_ context.Context, _ string, _ ...any) {}

// Error discards the log message.
func (n *NoOpLogger) Error(_ context.Context, _ string, _ ...any) {}
