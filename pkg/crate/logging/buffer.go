package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultBufferSize is the number of records a Buffer keeps when none is given.
const DefaultBufferSize = 100

// Entry is one captured log record.
type Entry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
	Fields    []interface{}
}

// String renders the entry as "component: message key=value ...".
func (e Entry) String() string {
	var sb strings.Builder
	if e.Component != "" {
		sb.WriteString(e.Component)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	for i := 0; i+1 < len(e.Fields); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", e.Fields[i], e.Fields[i+1])
	}
	return sb.String()
}

// Buffer is a ring of the most recent captured records. When full the
// oldest record is overwritten.
type Buffer struct {
	mu       sync.RWMutex
	entries  []Entry
	start    int
	count    int
	minLevel Level
}

// NewBuffer returns a buffer holding up to size records at or above minLevel.
func NewBuffer(minLevel Level, size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{entries: make([]Entry, size), minLevel: minLevel}
}

// Add stores e if it meets the buffer's level.
func (b *Buffer) Add(e Entry) {
	if e.Level < b.minLevel {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := (b.start + b.count) % len(b.entries)
	b.entries[idx] = e
	if b.count < len(b.entries) {
		b.count++
	} else {
		b.start = (b.start + 1) % len(b.entries)
	}
}

// Entries returns a copy of the buffered records, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Entry, b.count)
	for i := range out {
		out[i] = b.entries[(b.start+i)%len(b.entries)]
	}
	return out
}

// Messages returns the buffered records rendered with Entry.String.
func (b *Buffer) Messages() []string {
	entries := b.Entries()
	if len(entries) == 0 {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.String()
	}
	return out
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Capture attaches a new buffer that receives records at or above minLevel
// from every logger, whether or not Init has run. Call Release when done.
func Capture(minLevel Level, size int) *Buffer {
	b := NewBuffer(minLevel, size)
	globalState.mu.Lock()
	globalState.buffers = append(globalState.buffers, b)
	globalState.mu.Unlock()
	return b
}

// Release detaches a buffer returned by Capture. Its records stay readable.
func Release(b *Buffer) {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()
	// emit iterates a snapshot of the slice, so build a new one.
	kept := make([]*Buffer, 0, len(globalState.buffers))
	for _, cur := range globalState.buffers {
		if cur != b {
			kept = append(kept, cur)
		}
	}
	globalState.buffers = kept
}
