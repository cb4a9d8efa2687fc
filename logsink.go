package boardlink

import (
	"sync"
	"time"
)

// LogKind classifies a user-facing log entry
type LogKind int

const (
	LogInfo LogKind = iota
	LogSuccess
	LogWarning
	LogError
	LogCommand
	LogData
)

func (k LogKind) String() string {
	switch k {
	case LogSuccess:
		return "success"
	case LogWarning:
		return "warning"
	case LogError:
		return "error"
	case LogCommand:
		return "command"
	case LogData:
		return "data"
	default:
		return "info"
	}
}

// MarshalText lets log kinds appear by name in JSON output
func (k LogKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// LogEntry is one timestamped line of the connection log
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Kind    LogKind   `json:"kind"`
}

// LogRing keeps the most recent entries, evicting the oldest first.
// Appends come from the controller; any goroutine may read.
type LogRing struct {
	mu      sync.RWMutex
	entries []LogEntry
	start   int
	count   int
	now     func() time.Time
}

// NewLogRing returns a ring holding up to capacity entries
func NewLogRing(capacity int) *LogRing {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &LogRing{
		entries: make([]LogEntry, capacity),
		now:     time.Now,
	}
}

// Append stamps and stores an entry, returning it
func (r *LogRing) Append(kind LogKind, message string) LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := LogEntry{Time: r.now(), Message: message, Kind: kind}
	capacity := len(r.entries)
	if r.count < capacity {
		r.entries[(r.start+r.count)%capacity] = entry
		r.count++
	} else {
		r.entries[r.start] = entry
		r.start = (r.start + 1) % capacity
	}
	return entry
}

// Entries returns a copy of the retained entries, oldest first
func (r *LogRing) Entries() []LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]LogEntry, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}

// Len returns the number of retained entries
func (r *LogRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the ring capacity
func (r *LogRing) Cap() int {
	return len(r.entries)
}
