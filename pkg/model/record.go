package model

import "time"

// RecordKind identifies the kind of an install-log record.
type RecordKind string

const (
	// RecordRelease marks the registration of an artifact into the repository.
	// These records carry the repository's consistency invariant: every wheel
	// file must have exactly one release record and vice versa.
	RecordRelease RecordKind = "release"
	// RecordInstall marks a completed install of an artifact on a target.
	RecordInstall RecordKind = "install"
)

// LogRecord is a single line of the append-only install log (JSONL).
type LogRecord struct {
	Kind      RecordKind `json:"kind"`
	Name      string     `json:"name"`
	Version   Version    `json:"version"`
	CompatTag string     `json:"compat_tag"`
	File      string     `json:"file"`
	Target    string     `json:"target,omitempty"` // install records only
	Timestamp time.Time  `json:"timestamp"`
}
