package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/NWeiss87/auricle/internal/config"
)

// ── Logger ────────────────────────────────────────────────────────────────────

// newLogger builds the run logger: a text handler on stderr, plus a
// size-rotated JSON file when log.file is set.
func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level.Level()}
	stderr := slog.NewTextHandler(os.Stderr, opts)
	if cfg.File == "" {
		return slog.New(stderr)
	}
	file := slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}, opts)
	return slog.New(teeHandler{stderr, file})
}

// teeHandler delivers each record to two handlers, keeping each handler's
// own format and level gate.
type teeHandler struct {
	a, b slog.Handler
}

var _ slog.Handler = teeHandler{}

func (t teeHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return t.a.Enabled(ctx, lvl) || t.b.Enabled(ctx, lvl)
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errA, errB error
	if t.a.Enabled(ctx, r.Level) {
		errA = t.a.Handle(ctx, r.Clone())
	}
	if t.b.Enabled(ctx, r.Level) {
		errB = t.b.Handle(ctx, r.Clone())
	}
	return errors.Join(errA, errB)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{t.a.WithAttrs(attrs), t.b.WithAttrs(attrs)}
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{t.a.WithGroup(name), t.b.WithGroup(name)}
}
