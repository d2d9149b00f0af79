// Package logging fornece o glog.Logger usado pelo relay, implementado sobre log/slog.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// LevelTrace fica abaixo de Debug; slog não tem trace nativo.
const LevelTrace = slog.LevelDebug - 4

type Options struct {
	Level  string // trace|debug|info|warn|error
	Format string // json|text
	Output io.Writer
	Name   string
}

// Logger adapta *slog.Logger ao contrato glog.Logger.
type Logger struct {
	sl  *slog.Logger
	ctx context.Context
}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "text") {
		h = slog.NewTextHandler(out, hopts)
	} else {
		h = slog.NewJSONHandler(out, hopts)
	}

	sl := slog.New(h)
	if opts.Name != "" {
		sl = sl.With("logger", opts.Name)
	}
	return &Logger{sl: sl}
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Trace(msg string, args ...any) { l.log(LevelTrace, msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *Logger) Fatal(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
	os.Exit(1)
}

func (l *Logger) WithContext(ctx context.Context) glog.Logger {
	return &Logger{sl: l.sl, ctx: ctx}
}

// With retorna um logger com atributos fixos (ex: "component", "checker").
func (l *Logger) With(args ...any) *Logger {
	return &Logger{sl: l.sl.With(args...), ctx: l.ctx}
}

func (l *Logger) WithFields(fields map[string]any) glog.Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.With(args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	ctx := l.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	l.sl.Log(ctx, level, msg, args...)
}

var _ glog.Logger = (*Logger)(nil)
