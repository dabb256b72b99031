package logging

import (
	"context"
	"log/slog"
	"strings"
)

// levelOverrideHandler enforces a per-component minimum level while delegating
// output to the wrapped handler.
type levelOverrideHandler struct {
	next  slog.Handler
	level slog.Level
}

func (h *levelOverrideHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.level {
		return false
	}
	return h.next.Enabled(ctx, level)
}

func (h *levelOverrideHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *levelOverrideHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelOverrideHandler{next: h.next.WithAttrs(attrs), level: h.level}
}

func (h *levelOverrideHandler) WithGroup(name string) slog.Handler {
	return &levelOverrideHandler{next: h.next.WithGroup(name), level: h.level}
}

// WithLevelOverride returns a logger that drops records below level. The
// override can only raise the threshold of the underlying handler.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return slog.New(&levelOverrideHandler{next: logger.Handler(), level: level})
}

// ComponentLevel applies the configured level override for component, if
// any. Components tag their own records, so logger is not retagged here.
func ComponentLevel(logger *slog.Logger, component string, overrides map[string]string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	if level, ok := overrides[strings.ToLower(component)]; ok && strings.TrimSpace(level) != "" {
		return WithLevelOverride(logger, parseLevel(level))
	}
	return logger
}
