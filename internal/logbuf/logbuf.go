// Package logbuf captures the log stream of a discovery run as plain
// text so it can be returned to the caller, shown to the user or
// attached to a bug report.
package logbuf

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Buffer accumulates rendered log lines. Safe for concurrent use.
type Buffer struct {
	mu sync.Mutex
	sb strings.Builder
}

// New creates an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

func (b *Buffer) append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sb.WriteString(line)
	b.sb.WriteByte('\n')
}

// String returns everything logged so far, one line per record.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

// Handler is a slog.Handler that renders every record into a Buffer,
// regardless of level: the captured trace keeps debug detail even when
// the rest of the program logs at info. Records are additionally
// forwarded to next (when non-nil) at its own level gate.
type Handler struct {
	buf   *Buffer
	next  slog.Handler
	attrs string
	group string
}

// NewHandler creates a Handler writing into buf and forwarding to next.
// next may be nil.
func NewHandler(buf *Buffer, next slog.Handler) *Handler {
	return &Handler{buf: buf, next: next}
}

// Enabled implements slog.Handler. The capture is always on.
func (h *Handler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	var sb strings.Builder
	sb.WriteString(record.Level.String())
	sb.WriteByte(' ')
	sb.WriteString(record.Message)
	sb.WriteString(h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		appendAttr(&sb, h.group, attr)
		return true
	})
	h.buf.append(sb.String())
	if h.next != nil && h.next.Enabled(ctx, record.Level) {
		return h.next.Handle(ctx, record)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	var sb strings.Builder
	sb.WriteString(h.attrs)
	for _, attr := range attrs {
		appendAttr(&sb, h.group, attr)
	}
	next.attrs = sb.String()
	if h.next != nil {
		next.next = h.next.WithAttrs(attrs)
	}
	return &next
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = h.group + name + "."
	if h.next != nil {
		next.next = h.next.WithGroup(name)
	}
	return &next
}

func appendAttr(sb *strings.Builder, group string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		prefix := group
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, member := range value.Group() {
			appendAttr(sb, prefix, member)
		}
		return
	}
	fmt.Fprintf(sb, " %s%s=%v", group, attr.Key, value)
}
