package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discograph/api/internal/correction"
)

const correctionColumns = `id, entity_id, entity_type, correction_type, status, description, created_at, handled_at`

// Tx wraps one transaction of the correction engine. Every logical
// operation that writes correction state runs through exactly one Tx.
type Tx struct {
	tx *sql.Tx
}

func (s *PostgresStore) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func scanCorrection(row *sql.Row) (correction.Correction, error) {
	var c correction.Correction
	err := row.Scan(&c.ID, &c.EntityID, &c.EntityType, &c.Type, &c.Status, &c.Description, &c.CreatedAt, &c.HandledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return correction.Correction{}, correction.ErrNotFound
	}
	if err != nil {
		return correction.Correction{}, fmt.Errorf("scan correction: %w", err)
	}
	return c, nil
}

// LockCorrection reads a correction row under FOR UPDATE so concurrent
// approvals and revisions of the same correction serialize.
func (t *Tx) LockCorrection(ctx context.Context, id int64) (correction.Correction, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+correctionColumns+`
		FROM corrections WHERE id = $1 FOR UPDATE
	`, id)
	return scanCorrection(row)
}

// LockLatestCorrection locks the most recent correction targeting the
// entity. Every entity has at least one correction from its creation, so
// no rows means the entity does not exist.
func (t *Tx) LockLatestCorrection(ctx context.Context, entityType correction.EntityType, entityID int64) (correction.Correction, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+correctionColumns+`
		FROM corrections
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY id DESC LIMIT 1
		FOR UPDATE
	`, entityType, entityID)
	return scanCorrection(row)
}

func (t *Tx) InsertCorrection(ctx context.Context, entityType correction.EntityType, entityID int64, ctype correction.Type, status correction.Status, description string) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO corrections (entity_id, entity_type, correction_type, status, description, handled_at)
		VALUES ($1, $2, $3, $4, $5, CASE WHEN $4 = 'approved' THEN NOW() ELSE NULL END)
		RETURNING id
	`, entityID, entityType, ctype, status, description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert correction: %w", err)
	}
	return id, nil
}

func (t *Tx) AppendRevision(ctx context.Context, correctionID, historyID, authorID int64, description string) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO correction_revisions (correction_id, entity_history_id, author_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, correctionID, historyID, authorID, description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append revision: %w", err)
	}
	return id, nil
}

// IsCorrectionAuthor reports whether the user authored any revision of
// the correction.
func (t *Tx) IsCorrectionAuthor(ctx context.Context, correctionID, userID int64) (bool, error) {
	var isAuthor bool
	err := t.tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM correction_revisions
			WHERE correction_id = $1 AND author_id = $2
		)
	`, correctionID, userID).Scan(&isAuthor)
	if err != nil {
		return false, fmt.Errorf("check correction author: %w", err)
	}
	return isAuthor, nil
}

// ReopenCorrection puts a rejected correction back into review.
func (t *Tx) ReopenCorrection(ctx context.Context, correctionID int64) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE corrections SET status = 'pending', handled_at = NULL WHERE id = $1
	`, correctionID)
	if err != nil {
		return fmt.Errorf("reopen correction: %w", err)
	}
	return nil
}

func (t *Tx) MarkApproved(ctx context.Context, correctionID int64) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE corrections SET status = 'approved', handled_at = NOW() WHERE id = $1
	`, correctionID)
	if err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	return nil
}

func (t *Tx) RecordApprover(ctx context.Context, correctionID, userID int64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO correction_approvers (correction_id, user_id)
		VALUES ($1, $2)
	`, correctionID, userID)
	if err != nil {
		return fmt.Errorf("record approver: %w", err)
	}
	return nil
}

// LatestRevision returns the revision carrying the highest history id;
// that revision is what the correction currently proposes.
func (t *Tx) LatestRevision(ctx context.Context, correctionID int64) (correction.Revision, error) {
	return latestRevision(ctx, t.tx, correctionID)
}

func (s *PostgresStore) LatestRevision(ctx context.Context, correctionID int64) (correction.Revision, error) {
	return latestRevision(ctx, s.db, correctionID)
}

func latestRevision(ctx context.Context, q querier, correctionID int64) (correction.Revision, error) {
	var rev correction.Revision
	err := q.QueryRowContext(ctx, `
		SELECT id, correction_id, entity_history_id, author_id, description, created_at
		FROM correction_revisions
		WHERE correction_id = $1
		ORDER BY entity_history_id DESC LIMIT 1
	`, correctionID).Scan(&rev.ID, &rev.CorrectionID, &rev.EntityHistoryID, &rev.AuthorID, &rev.Description, &rev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return correction.Revision{}, correction.ErrNotFound
	}
	if err != nil {
		return correction.Revision{}, fmt.Errorf("latest revision: %w", err)
	}
	return rev, nil
}

func (s *PostgresStore) GetCorrection(ctx context.Context, id int64) (correction.Correction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+correctionColumns+`
		FROM corrections WHERE id = $1
	`, id)
	return scanCorrection(row)
}

func (s *PostgresStore) ListRevisions(ctx context.Context, correctionID int64) ([]correction.Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, correction_id, entity_history_id, author_id, description, created_at
		FROM correction_revisions
		WHERE correction_id = $1
		ORDER BY entity_history_id
	`, correctionID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var revisions []correction.Revision
	for rows.Next() {
		var rev correction.Revision
		if err := rows.Scan(&rev.ID, &rev.CorrectionID, &rev.EntityHistoryID, &rev.AuthorID, &rev.Description, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revisions = append(revisions, rev)
	}
	return revisions, rows.Err()
}

// FindPendingCorrection returns the pending correction targeting the
// entity, or ErrNotFound when none is open.
func (s *PostgresStore) FindPendingCorrection(ctx context.Context, entityType correction.EntityType, entityID int64) (correction.Correction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+correctionColumns+`
		FROM corrections
		WHERE entity_type = $1 AND entity_id = $2 AND status = 'pending'
		ORDER BY id DESC LIMIT 1
	`, entityType, entityID)
	return scanCorrection(row)
}

// BaselineApproved finds the approved correction the target should be
// diffed against: the most recent one handled strictly before the target
// was handled, or the most recent approved one when the target is still
// open. ErrNotFound means the target has no predecessor.
func (s *PostgresStore) BaselineApproved(ctx context.Context, target correction.Correction) (correction.Correction, error) {
	var row *sql.Row
	if target.HandledAt != nil {
		row = s.db.QueryRowContext(ctx, `
			SELECT `+correctionColumns+`
			FROM corrections
			WHERE entity_type = $1 AND entity_id = $2 AND status = 'approved'
				AND id <> $3 AND handled_at < $4
			ORDER BY handled_at DESC, created_at DESC, id DESC
			LIMIT 1
		`, target.EntityType, target.EntityID, target.ID, target.HandledAt)
	} else {
		row = s.db.QueryRowContext(ctx, `
			SELECT `+correctionColumns+`
			FROM corrections
			WHERE entity_type = $1 AND entity_id = $2 AND status = 'approved' AND id <> $3
			ORDER BY handled_at DESC, created_at DESC, id DESC
			LIMIT 1
		`, target.EntityType, target.EntityID, target.ID)
	}
	return scanCorrection(row)
}
