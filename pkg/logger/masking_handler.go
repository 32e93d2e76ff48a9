package logger

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

const masked = "***"

// Keys are matched case-insensitively, either exactly or as a "_key" suffix,
// so "bot_token" and "webhook_secret" are caught as well.
var sensitiveKeys = []string{"password", "token", "secret", "api_key", "authorization", "dsn"}

var (
	botTokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
	urlUserRe  = regexp.MustCompile(`([a-z][a-z0-9+.-]*://[^:/@\s]*):[^@\s]+@`)
)

// Redact scrubs Telegram bot tokens and URL passwords out of s. Error texts
// from the Bot API embed the token in the request URL.
func Redact(s string) string {
	s = botTokenRe.ReplaceAllString(s, "bot<redacted>")
	return urlUserRe.ReplaceAllString(s, "$1:<redacted>@")
}

// MaskingHandler hides sensitive attributes and redacts credentials found in
// string values before passing records on.
type MaskingHandler struct {
	next slog.Handler
}

func NewMaskingHandler(next slog.Handler) *MaskingHandler {
	return &MaskingHandler{next: next}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &MaskingHandler{next: h.next.WithAttrs(maskAll(attrs))}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, Redact(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(mask(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func maskAll(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = mask(a)
	}
	return out
}

func mask(a slog.Attr) slog.Attr {
	if sensitive(a.Key) {
		return slog.String(a.Key, masked)
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskAll(v.Group())...)}
	case slog.KindString:
		return slog.String(a.Key, Redact(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok && err != nil {
			return slog.String(a.Key, Redact(err.Error()))
		}
	}
	return a
}

func sensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if key == s || strings.HasSuffix(key, "_"+s) {
			return true
		}
	}
	return false
}
