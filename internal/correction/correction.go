// Package correction defines the domain model of the correction engine:
// entity types, correction lifecycle states, diff structures and the
// error taxonomy shared by the service and storage layers.
package correction

import (
	"errors"
	"fmt"
	"time"
)

// EntityType is the closed set of entity kinds a correction can target.
type EntityType string

const (
	EntityArtist     EntityType = "artist"
	EntityLabel      EntityType = "label"
	EntityRelease    EntityType = "release"
	EntitySong       EntityType = "song"
	EntityTag        EntityType = "tag"
	EntityEvent      EntityType = "event"
	EntitySongLyrics EntityType = "song_lyrics"
	EntityCreditRole EntityType = "credit_role"
)

// EntityTypes lists every entity type. Dispatch switches are checked
// against this list in tests so a new type cannot silently fall through.
var EntityTypes = []EntityType{
	EntityArtist,
	EntityLabel,
	EntityRelease,
	EntitySong,
	EntityTag,
	EntityEvent,
	EntitySongLyrics,
	EntityCreditRole,
}

// ParseEntityType accepts the canonical form and the kebab-case form used
// in URL paths ("song-lyrics", "credit-role").
func ParseEntityType(value string) (EntityType, error) {
	switch value {
	case "artist", "label", "release", "song", "tag", "event":
		return EntityType(value), nil
	case "song_lyrics", "song-lyrics":
		return EntitySongLyrics, nil
	case "credit_role", "credit-role":
		return EntityCreditRole, nil
	}
	return "", fmt.Errorf("unknown entity type %q", value)
}

// Status is the lifecycle state of a correction. Approved and Rejected
// are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Type records the author's intent; informational only.
type Type string

const (
	TypeCreate Type = "create"
	TypeEdit   Type = "edit"
)

// Correction is the mutable state record governing one entity's proposed
// change. The immutable side (revisions, history rows) never changes once
// written.
type Correction struct {
	ID          int64      `json:"id"`
	EntityID    int64      `json:"entity_id"`
	EntityType  EntityType `json:"entity_type"`
	Type        Type       `json:"type"`
	Status      Status     `json:"status"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	HandledAt   *time.Time `json:"handled_at,omitempty"`
}

// Revision is one authored submission within a correction. The revision
// with the highest EntityHistoryID is authoritative for what the
// correction currently proposes.
type Revision struct {
	ID              int64     `json:"id"`
	CorrectionID    int64     `json:"correction_id"`
	EntityHistoryID int64     `json:"entity_history_id"`
	AuthorID        int64     `json:"author_id"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"created_at"`
}

// Snapshot is the normalized tree form of a history row plus its
// children: map values are scalars, nested maps, or []any of those.
type Snapshot = map[string]any

// DiffEntry is one field-level change between two snapshots. A nil
// Before or After signals the field was introduced or removed.
type DiffEntry struct {
	Path   string  `json:"path"`
	Before *string `json:"before"`
	After  *string `json:"after"`
}

// Diff is the read model returned by the diff and compare operations.
type Diff struct {
	EntityID         int64       `json:"entity_id"`
	EntityType       EntityType  `json:"entity_type"`
	BaseCorrectionID *int64      `json:"base_correction_id"`
	BaseHistoryID    *int64      `json:"base_history_id"`
	TargetCorrection int64       `json:"target_correction_id"`
	TargetHistoryID  int64       `json:"target_history_id"`
	Changes          []DiffEntry `json:"changes"`
}

// SubmissionResult is returned by submit-create and submit-edit.
type SubmissionResult struct {
	CorrectionID int64 `json:"correction_id"`
	EntityID     int64 `json:"entity_id"`
}

// Error taxonomy. Infra failures are plain wrapped errors; everything a
// caller must distinguish is one of these sentinels or a ValidationError.
var (
	ErrNotFound        = errors.New("correction not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAlreadyApproved = errors.New("correction already approved")
	ErrNotImplemented  = errors.New("not implemented")
)

// ValidationError reports a domain-level rule violation in a proposed
// entity payload. It is surfaced before any write occurs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}
