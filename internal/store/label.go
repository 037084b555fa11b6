package store

import (
	"context"
	"database/sql"
	"fmt"

	"discograph/api/internal/correction"
)

func (t *Tx) insertLabel(ctx context.Context, p *correction.NewLabel) (int64, error) {
	foundedValue, foundedPrecision := dateParams(p.FoundedDate)
	dissolvedValue, dissolvedPrecision := dateParams(p.DissolvedDate)

	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO labels (name, founded_date, founded_date_precision, dissolved_date, dissolved_date_precision)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, p.Name, foundedValue, foundedPrecision, dissolvedValue, dissolvedPrecision).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert label: %w", err)
	}
	return id, nil
}

func (t *Tx) insertLabelHistory(ctx context.Context, labelID int64, p *correction.NewLabel) (int64, error) {
	foundedValue, foundedPrecision := dateParams(p.FoundedDate)
	dissolvedValue, dissolvedPrecision := dateParams(p.DissolvedDate)

	var historyID int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO label_history (label_id, name, founded_date, founded_date_precision, dissolved_date, dissolved_date_precision)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, labelID, p.Name, foundedValue, foundedPrecision, dissolvedValue, dissolvedPrecision).Scan(&historyID)
	if err != nil {
		return 0, fmt.Errorf("insert label history: %w", err)
	}

	if err := insertInt64List(ctx, t.tx, `
		INSERT INTO label_history_founders (history_id, position, artist_id) VALUES ($1, $2, $3)
	`, historyID, p.Founders); err != nil {
		return 0, err
	}
	for position, name := range p.LocalizedNames {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO label_history_localized_names (history_id, position, language_id, name)
			VALUES ($1, $2, $3, $4)
		`, historyID, position, name.LanguageID, name.Name); err != nil {
			return 0, fmt.Errorf("insert label history localized name: %w", err)
		}
	}
	return historyID, nil
}

func (t *Tx) applyLabelHistory(ctx context.Context, labelID, historyID int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE labels l SET
			name = h.name,
			founded_date = h.founded_date, founded_date_precision = h.founded_date_precision,
			dissolved_date = h.dissolved_date, dissolved_date_precision = h.dissolved_date_precision
		FROM label_history h
		WHERE h.id = $2 AND h.label_id = $1 AND l.id = $1
	`, labelID, historyID)
	if err != nil {
		return fmt.Errorf("apply label scalars: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("apply label history %d: no matching live row", historyID)
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM label_founders WHERE label_id = $1`, labelID); err != nil {
		return fmt.Errorf("clear label founders: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO label_founders (label_id, position, artist_id)
		SELECT $1, position, artist_id FROM label_history_founders WHERE history_id = $2
	`, labelID, historyID); err != nil {
		return fmt.Errorf("fill label founders: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM label_localized_names WHERE label_id = $1`, labelID); err != nil {
		return fmt.Errorf("clear label localized names: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO label_localized_names (label_id, position, language_id, name)
		SELECT $1, position, language_id, name FROM label_history_localized_names WHERE history_id = $2
	`, labelID, historyID); err != nil {
		return fmt.Errorf("fill label localized names: %w", err)
	}
	return nil
}

func snapshotLabel(ctx context.Context, q querier, historyID int64) (correction.Snapshot, error) {
	var (
		name                                                             string
		foundedDate, foundedPrecision, dissolvedDate, dissolvedPrecision sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT name, founded_date, founded_date_precision, dissolved_date, dissolved_date_precision
		FROM label_history WHERE id = $1
	`, historyID).Scan(&name, &foundedDate, &foundedPrecision, &dissolvedDate, &dissolvedPrecision)
	if err != nil {
		return nil, fmt.Errorf("read label history %d: %w", historyID, err)
	}

	founders, err := readInt64List(ctx, q, `
		SELECT artist_id FROM label_history_founders WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, err
	}

	localizedNames := []any{}
	rows, err := q.QueryContext(ctx, `
		SELECT language_id, name FROM label_history_localized_names
		WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, fmt.Errorf("read label localized names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var languageID int64
		var localized string
		if err := rows.Scan(&languageID, &localized); err != nil {
			return nil, fmt.Errorf("scan label localized name: %w", err)
		}
		localizedNames = append(localizedNames, map[string]any{
			"language_id": languageID,
			"name":        localized,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return correction.Snapshot{
		"name":            name,
		"founded_date":    dateValue(foundedDate, foundedPrecision),
		"dissolved_date":  dateValue(dissolvedDate, dissolvedPrecision),
		"founders":        founders,
		"localized_names": localizedNames,
	}, nil
}
