package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiCyan   = "\x1b[36m"
)

type consoleHandler struct {
	mu     sync.Mutex
	writer io.Writer
	level  *slog.LevelVar
	attrs  []slog.Attr
	groups []string
	colors bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, forceColors bool) slog.Handler {
	colors := forceColors
	if !colors {
		if f, ok := w.(*os.File); ok {
			colors = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	return &consoleHandler{writer: w, level: lvl, colors: colors}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	attrs := make([]slog.Attr, 0, record.NumAttrs()+len(h.attrs))
	attrs = append(attrs, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, h.qualify(attr))
		return true
	})

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(128 + len(attrs)*24)

	h.paint(&buf, ansiDim, timestamp.Format("15:04:05"))
	buf.WriteByte(' ')
	h.paint(&buf, levelColor(record.Level), levelLabel(record.Level))
	buf.WriteByte(' ')
	buf.WriteString(message)
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		buf.WriteByte(' ')
		h.paint(&buf, ansiDim, attr.Key+"="+formatValue(attr.Value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, clone.qualify(attr))
	}
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if strings.TrimSpace(name) == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	return &consoleHandler{
		writer: h.writer,
		level:  h.level,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
		colors: h.colors,
	}
}

func (h *consoleHandler) qualify(attr slog.Attr) slog.Attr {
	if len(h.groups) == 0 {
		return attr
	}
	attr.Key = strings.Join(h.groups, ".") + "." + attr.Key
	return attr
}

func (h *consoleHandler) paint(buf *bytes.Buffer, color, text string) {
	if h.colors && color != "" {
		buf.WriteString(color)
		buf.WriteString(text)
		buf.WriteString(ansiReset)
		return
	}
	buf.WriteString(text)
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return " WARN"
	case level >= slog.LevelInfo:
		return " INFO"
	default:
		return "DEBUG"
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ""
	default:
		return ansiCyan
	}
}

func formatValue(value slog.Value) string {
	value = value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		text := value.String()
		if strings.ContainsAny(text, " \t") {
			return fmt.Sprintf("%q", text)
		}
		return text
	case slog.KindDuration:
		return value.Duration().String()
	case slog.KindTime:
		return value.Time().Format(time.RFC3339)
	default:
		return value.String()
	}
}
