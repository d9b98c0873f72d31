package session

import (
	"fmt"
	"time"
)

const logTimeLayout = "15:04:05"

// eventLog is the human readable match log. It keeps the newest capacity
// entries and silently evicts the oldest.
type eventLog struct {
	entries []string
	start   int
	size    int
	clock   func() time.Time
}

func newEventLog(capacity int, clock func() time.Time) *eventLog {
	if clock == nil {
		clock = time.Now
	}
	return &eventLog{
		entries: make([]string, capacity),
		clock:   clock,
	}
}

// add stamps text and appends it, returning the stored entry.
func (l *eventLog) add(text string) string {
	entry := fmt.Sprintf("[%s] %s", l.clock().Format(logTimeLayout), text)
	l.push(entry)
	return entry
}

func (l *eventLog) push(entry string) {
	capacity := len(l.entries)
	if capacity == 0 {
		return
	}
	if l.size < capacity {
		l.entries[(l.start+l.size)%capacity] = entry
		l.size++
		return
	}
	l.entries[l.start] = entry
	l.start = (l.start + 1) % capacity
}

// replace drops the current entries and keeps the newest of entries.
func (l *eventLog) replace(entries []string) {
	l.clear()
	for _, entry := range entries {
		l.push(entry)
	}
}

func (l *eventLog) clear() {
	for i := range l.entries {
		l.entries[i] = ""
	}
	l.start, l.size = 0, 0
}

func (l *eventLog) len() int {
	return l.size
}

// list returns the entries oldest first.
func (l *eventLog) list() []string {
	out := make([]string, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.entries[(l.start+i)%len(l.entries)]
	}
	return out
}
