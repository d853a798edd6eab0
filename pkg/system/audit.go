package system

import (
	"time"

	"github.com/cairnfs/cairn/pkg/users"
)

// Level classifies audit entries.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

// String returns the level label.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogEntry is one append-only audit record. UID is nil for entries not
// attributable to an authenticated user (login attempts). Entries are
// never mutated or deleted; they only leave the system by being excluded
// from a fresh log after pack extracts them into an image.
type LogEntry struct {
	Level   Level     `cbor:"1,keyasint"`
	UID     *users.ID `cbor:"2,keyasint,omitempty"`
	Message string    `cbor:"3,keyasint"`
	Time    time.Time `cbor:"4,keyasint"`
}

// AuditLog is the in-memory audit sink owned by the system instance. It is
// deliberately not a process-wide singleton so independent systems (tests
// in particular) never share state. Synchronization comes from the owning
// system's lock.
type AuditLog struct {
	entries []LogEntry
}

// NewAuditLog returns an empty log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Append adds one entry.
func (log *AuditLog) Append(entry LogEntry) {
	log.entries = append(log.entries, entry)
}

// Entries returns a copy of the accumulated entries.
func (log *AuditLog) Entries() []LogEntry {
	out := make([]LogEntry, len(log.entries))
	copy(out, log.entries)
	return out
}

// take removes and returns all entries, leaving the log empty. Used by
// pack to move the live log into an image.
func (log *AuditLog) take() []LogEntry {
	entries := log.entries
	log.entries = nil
	return entries
}
