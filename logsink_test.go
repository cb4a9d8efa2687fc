package boardlink

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLogRingEvictsOldest(t *testing.T) {
	ring := NewLogRing(3)
	for i := 0; i < 5; i++ {
		ring.Append(LogInfo, fmt.Sprintf("entry %d", i))
	}

	entries := ring.Entries()
	if len(entries) != 3 || ring.Len() != 3 || ring.Cap() != 3 {
		t.Fatalf("len = %d/%d cap %d, want 3/3 cap 3", len(entries), ring.Len(), ring.Cap())
	}
	for i, want := range []string{"entry 2", "entry 3", "entry 4"} {
		if entries[i].Message != want {
			t.Errorf("entries[%d] = %q, want %q", i, entries[i].Message, want)
		}
	}
}

func TestLogRingDefaultCapacity(t *testing.T) {
	ring := NewLogRing(0)
	if ring.Cap() != DefaultLogCapacity {
		t.Errorf("Cap() = %d, want %d", ring.Cap(), DefaultLogCapacity)
	}
	for i := 0; i < 150; i++ {
		ring.Append(LogData, "x")
	}
	if ring.Len() != 100 {
		t.Errorf("Len() = %d, want 100", ring.Len())
	}
}

func TestLogRingStampsEntries(t *testing.T) {
	ring := NewLogRing(2)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ring.now = func() time.Time { return at }

	entry := ring.Append(LogCommand, "ping")
	if !entry.Time.Equal(at) || entry.Kind != LogCommand || entry.Message != "ping" {
		t.Errorf("Append() = %+v, want command ping at %v", entry, at)
	}

	// Entries returns a copy
	got := ring.Entries()
	got[0].Message = "mutated"
	if ring.Entries()[0].Message != "ping" {
		t.Error("Entries() exposed internal storage")
	}
}

func TestLogRingConcurrentReaders(t *testing.T) {
	ring := NewLogRing(10)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = ring.Entries()
			}
		}()
	}
	for j := 0; j < 100; j++ {
		ring.Append(LogData, "x")
	}
	wg.Wait()
	if ring.Len() != 10 {
		t.Errorf("Len() = %d, want 10", ring.Len())
	}
}

func TestLogKindString(t *testing.T) {
	kinds := map[LogKind]string{
		LogInfo:    "info",
		LogSuccess: "success",
		LogWarning: "warning",
		LogError:   "error",
		LogCommand: "command",
		LogData:    "data",
	}
	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("LogKind(%d).String() = %q, want %q", kind, got, want)
		}
	}

	data, err := json.Marshal(LogEntry{Kind: LogWarning, Message: "w"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"kind":"warning"`) {
		t.Errorf("Marshal() = %s, want kind by name", data)
	}
}
