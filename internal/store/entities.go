package store

import (
	"context"
	"fmt"

	"discograph/api/internal/correction"
)

// InsertEntity creates the live scalar row for a newly proposed entity
// and returns its id. Children are not written here; they materialize
// when the creating correction's history is applied.
func (t *Tx) InsertEntity(ctx context.Context, payload correction.Payload) (int64, error) {
	switch p := payload.(type) {
	case *correction.NewArtist:
		return t.insertArtist(ctx, p)
	case *correction.NewLabel:
		return t.insertLabel(ctx, p)
	case *correction.NewRelease:
		return t.insertRelease(ctx, p)
	case *correction.NewSong:
		return t.insertSong(ctx, p)
	case *correction.NewTag:
		return t.insertTag(ctx, p)
	case *correction.NewEvent:
		return t.insertEvent(ctx, p)
	case *correction.NewSongLyrics:
		return t.insertSongLyrics(ctx, p)
	case *correction.NewCreditRole:
		return t.insertCreditRole(ctx, p)
	default:
		return 0, fmt.Errorf("insert entity: unhandled payload %T", payload)
	}
}

// InsertHistory writes the immutable history row (plus history children)
// for one revision of the entity and returns the history id.
func (t *Tx) InsertHistory(ctx context.Context, entityID int64, payload correction.Payload) (int64, error) {
	switch p := payload.(type) {
	case *correction.NewArtist:
		return t.insertArtistHistory(ctx, entityID, p)
	case *correction.NewLabel:
		return t.insertLabelHistory(ctx, entityID, p)
	case *correction.NewRelease:
		return t.insertReleaseHistory(ctx, entityID, p)
	case *correction.NewSong:
		return t.insertSongHistory(ctx, entityID, p)
	case *correction.NewTag:
		return t.insertTagHistory(ctx, entityID, p)
	case *correction.NewEvent:
		return t.insertEventHistory(ctx, entityID, p)
	case *correction.NewSongLyrics:
		return t.insertSongLyricsHistory(ctx, entityID, p)
	case *correction.NewCreditRole:
		return t.insertCreditRoleHistory(ctx, entityID, p)
	default:
		return 0, fmt.Errorf("insert history: unhandled payload %T", payload)
	}
}

// ApplyHistory makes the live entity match one history row: scalars are
// updated in place, children are deleted and reinserted from the history
// children. Runs inside the approving transaction.
func (t *Tx) ApplyHistory(ctx context.Context, entityType correction.EntityType, entityID, historyID int64) error {
	switch entityType {
	case correction.EntityArtist:
		return t.applyArtistHistory(ctx, entityID, historyID)
	case correction.EntityLabel:
		return t.applyLabelHistory(ctx, entityID, historyID)
	case correction.EntityRelease:
		return t.applyReleaseHistory(ctx, entityID, historyID)
	case correction.EntitySong:
		return t.applySongHistory(ctx, entityID, historyID)
	case correction.EntityTag:
		return t.applyTagHistory(ctx, entityID, historyID)
	case correction.EntityEvent:
		return t.applyEventHistory(ctx, entityID, historyID)
	case correction.EntitySongLyrics:
		return t.applySongLyricsHistory(ctx, entityID, historyID)
	case correction.EntityCreditRole:
		return t.applyCreditRoleHistory(ctx, entityID, historyID)
	default:
		return fmt.Errorf("apply history: unhandled entity type %q", entityType)
	}
}

// SnapshotForHistory reconstructs the normalized tree of one history row.
func (s *PostgresStore) SnapshotForHistory(ctx context.Context, entityType correction.EntityType, historyID int64) (correction.Snapshot, error) {
	switch entityType {
	case correction.EntityArtist:
		return snapshotArtist(ctx, s.db, historyID)
	case correction.EntityLabel:
		return snapshotLabel(ctx, s.db, historyID)
	case correction.EntityRelease:
		return snapshotRelease(ctx, s.db, historyID)
	case correction.EntitySong:
		return snapshotSong(ctx, s.db, historyID)
	case correction.EntityTag:
		return snapshotTag(ctx, s.db, historyID)
	case correction.EntityEvent:
		return snapshotEvent(ctx, s.db, historyID)
	case correction.EntitySongLyrics:
		return snapshotSongLyrics(ctx, s.db, historyID)
	case correction.EntityCreditRole:
		return snapshotCreditRole(ctx, s.db, historyID)
	default:
		return nil, fmt.Errorf("snapshot: unhandled entity type %q", entityType)
	}
}
