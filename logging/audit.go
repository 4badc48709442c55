package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultAuditDepth is the number of entries kept per task.
const DefaultAuditDepth = 50

// AuditEntry is one captured log record.
type AuditEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes"`
}

// AuditLog keeps the most recent log records per task so operators can see
// what happened to a task from the dashboard. It is safe for concurrent use.
type AuditLog struct {
	mu      sync.RWMutex
	depth   int
	entries map[string][]AuditEntry
}

// NewAuditLog creates an AuditLog keeping at most depth entries per task.
// A non-positive depth uses DefaultAuditDepth.
func NewAuditLog(depth int) *AuditLog {
	if depth <= 0 {
		depth = DefaultAuditDepth
	}
	return &AuditLog{
		depth:   depth,
		entries: make(map[string][]AuditEntry),
	}
}

// Add appends an entry for taskID, dropping the oldest entry when full.
func (a *AuditLog) Add(taskID string, entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries := append(a.entries[taskID], entry)
	if len(entries) > a.depth {
		entries = entries[len(entries)-a.depth:]
	}
	a.entries[taskID] = entries
}

// Entries returns a copy of the entries for taskID, oldest first.
func (a *AuditLog) Entries(taskID string) []AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entries, ok := a.entries[taskID]
	if !ok {
		return nil
	}
	out := make([]AuditEntry, len(entries))
	copy(out, entries)
	return out
}

// Forget removes the entries of taskID. It is a no-op on a nil AuditLog.
func (a *AuditLog) Forget(taskID string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entries, taskID)
}

// Logger returns base wrapped so that every record is also captured under
// taskID. A nil AuditLog returns base unchanged.
func (a *AuditLog) Logger(base *slog.Logger, taskID string) *slog.Logger {
	if a == nil {
		return base
	}
	return slog.New(&auditHandler{
		underlying: base.Handler(),
		audit:      a,
		taskID:     taskID,
	})
}

// auditHandler passes records through to underlying and captures them.
type auditHandler struct {
	underlying slog.Handler
	audit      *AuditLog
	taskID     string
	attrs      []slog.Attr
}

// Enabled captures every level; the underlying handler still filters output.
func (h *auditHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *auditHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := AuditEntry{
		Time:       r.Time,
		Level:      r.Level.String(),
		Message:    r.Message,
		Attributes: make(map[string]any, r.NumAttrs()+len(h.attrs)),
	}
	for _, attr := range h.attrs {
		entry.Attributes[attr.Key] = resolveValue(attr.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.Attributes[a.Key] = resolveValue(a.Value)
		return true
	})
	h.audit.Add(h.taskID, entry)

	if !h.underlying.Enabled(ctx, r.Level) {
		return nil
	}
	return h.underlying.Handle(ctx, r)
}

// WithAttrs must return an auditHandler so that capturing survives With chains.
func (h *auditHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &auditHandler{
		underlying: h.underlying.WithAttrs(attrs),
		audit:      h.audit,
		taskID:     h.taskID,
		attrs:      merged,
	}
}

func (h *auditHandler) WithGroup(name string) slog.Handler {
	return &auditHandler{
		underlying: h.underlying.WithGroup(name),
		audit:      h.audit,
		taskID:     h.taskID,
		attrs:      h.attrs,
	}
}

// resolveValue converts a slog.Value into something encoding/json can write.
func resolveValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time()
	case slog.KindGroup:
		attrs := v.Group()
		group := make(map[string]any, len(attrs))
		for _, attr := range attrs {
			group[attr.Key] = resolveValue(attr.Value)
		}
		return group
	default:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	}
}
