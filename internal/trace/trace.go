// Package trace carries W3C-style trace and span IDs through contexts, logs,
// HTTP requests and gRPC calls.
package trace

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Propagation keys for HTTP headers and gRPC metadata.
const (
	TraceIDKey      = "x-trace-id"
	SpanIDKey       = "x-span-id"
	ParentSpanIDKey = "x-parent-span-id"
)

type ctxKey struct{}

// Context holds trace identifiers for a single span.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
}

// New creates a root context with fresh IDs.
func New() Context {
	return Context{TraceID: newTraceID(), SpanID: newSpanID()}
}

// NewChild creates a child of parent.
func NewChild(parent Context) Context {
	return Context{TraceID: parent.TraceID, SpanID: newSpanID(), ParentSpanID: parent.SpanID}
}

// FromContext extracts the trace context.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// WithContext stores tc in ctx.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// EnsureContext returns the existing trace context or starts a new trace.
func EnsureContext(ctx context.Context) (context.Context, Context) {
	if tc, ok := FromContext(ctx); ok {
		return ctx, tc
	}
	tc := New()
	return WithContext(ctx, tc), tc
}

// continueFrom starts a new span under a remote caller's IDs.
func continueFrom(traceID, parentSpanID string) Context {
	if traceID == "" {
		traceID = newTraceID()
	}
	return Context{TraceID: traceID, SpanID: newSpanID(), ParentSpanID: parentSpanID}
}

// 128-bit trace ID as 32 hex chars.
func newTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// 64-bit span ID as 16 hex chars.
func newSpanID() string {
	return newTraceID()[:16]
}

// Span is a timed operation within a trace.
type Span struct {
	Name  string
	Ctx   Context
	Start time.Time
	End   time.Time
	attrs []slog.Attr
}

// StartSpan begins a span, as a child of the span in ctx when there is one.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	tc := New()
	if parent, ok := FromContext(ctx); ok && parent.TraceID != "" {
		tc = NewChild(parent)
	}
	s := &Span{Name: name, Ctx: tc, Start: time.Now()}
	return WithContext(ctx, tc), s
}

// SetAttr records a span attribute.
func (s *Span) SetAttr(key string, val any) {
	s.attrs = append(s.attrs, slog.Any(key, val))
}

// Finish stamps the end time and logs the span at debug level.
func (s *Span) Finish(ctx context.Context) {
	s.End = time.Now()
	Logger(ctx).LogAttrs(ctx, slog.LevelDebug, "span finished", slog.Any("span", s))
}

// Duration returns the span duration, zero while running.
func (s *Span) Duration() time.Duration {
	if s.End.IsZero() {
		return 0
	}
	return s.End.Sub(s.Start)
}

// LogValue implements slog.LogValuer.
func (s *Span) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(s.attrs)+2)
	attrs = append(attrs, slog.String("name", s.Name), slog.Duration("duration", s.Duration()))
	attrs = append(attrs, s.attrs...)
	return slog.GroupValue(attrs...)
}

// Logger returns the default logger annotated with ctx's trace IDs.
func Logger(ctx context.Context) *slog.Logger {
	tc, ok := FromContext(ctx)
	if !ok {
		return slog.Default()
	}
	args := []any{"trace_id", tc.TraceID, "span_id", tc.SpanID}
	if tc.ParentSpanID != "" {
		args = append(args, "parent_span_id", tc.ParentSpanID)
	}
	return slog.Default().With(args...)
}
