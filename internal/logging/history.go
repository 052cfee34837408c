package logging

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// DefaultHistory is the number of entries History keeps when no limit is
// configured.
const DefaultHistory = 70

// Entry is one remembered log record.
type Entry struct {
	Time    time.Time
	Level   zapcore.Level
	Module  string
	Message string
	Fields  map[string]any
}

// History keeps the most recent log entries in memory.
type History struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
}

// NewHistory returns a history holding at most limit entries.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &History{limit: limit, entries: make([]Entry, 0, limit)}
}

func (h *History) add(entry Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) >= h.limit {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, entry)
}

// Entries returns a copy of the remembered entries, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}

// Len returns the number of remembered entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Limit returns the capacity of the history.
func (h *History) Limit() int {
	return h.limit
}

// historyCore is a zapcore.Core that records entries into a History.
type historyCore struct {
	zapcore.LevelEnabler
	history *History
	fields  []zapcore.Field
}

func newHistoryCore(enab zapcore.LevelEnabler, history *History) *historyCore {
	return &historyCore{LevelEnabler: enab, history: history}
}

func (c *historyCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *historyCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *historyCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	c.history.add(Entry{
		Time:    ent.Time,
		Level:   ent.Level,
		Module:  ent.LoggerName,
		Message: ent.Message,
		Fields:  enc.Fields,
	})
	return nil
}

func (c *historyCore) Sync() error {
	return nil
}
