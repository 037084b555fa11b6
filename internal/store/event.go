package store

import (
	"context"
	"database/sql"
	"fmt"

	"discograph/api/internal/correction"
)

func (t *Tx) insertEvent(ctx context.Context, p *correction.NewEvent) (int64, error) {
	startValue, startPrecision := dateParams(p.StartDate)
	endValue, endPrecision := dateParams(p.EndDate)
	country, province, city := locationParams(p.Location)

	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO events (
			name, short_description, description,
			country, province, city,
			start_date, start_date_precision, end_date, end_date_precision
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, p.Name, p.ShortDescription, p.Description,
		country, province, city,
		startValue, startPrecision, endValue, endPrecision).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

func (t *Tx) insertEventHistory(ctx context.Context, eventID int64, p *correction.NewEvent) (int64, error) {
	startValue, startPrecision := dateParams(p.StartDate)
	endValue, endPrecision := dateParams(p.EndDate)
	country, province, city := locationParams(p.Location)

	var historyID int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO event_history (
			event_id, name, short_description, description,
			country, province, city,
			start_date, start_date_precision, end_date, end_date_precision
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, eventID, p.Name, p.ShortDescription, p.Description,
		country, province, city,
		startValue, startPrecision, endValue, endPrecision).Scan(&historyID)
	if err != nil {
		return 0, fmt.Errorf("insert event history: %w", err)
	}

	if err := insertStringList(ctx, t.tx, `
		INSERT INTO event_history_alternative_names (history_id, position, name) VALUES ($1, $2, $3)
	`, historyID, p.AlternativeNames); err != nil {
		return 0, err
	}
	return historyID, nil
}

func (t *Tx) applyEventHistory(ctx context.Context, eventID, historyID int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE events e SET
			name = h.name, short_description = h.short_description, description = h.description,
			country = h.country, province = h.province, city = h.city,
			start_date = h.start_date, start_date_precision = h.start_date_precision,
			end_date = h.end_date, end_date_precision = h.end_date_precision
		FROM event_history h
		WHERE h.id = $2 AND h.event_id = $1 AND e.id = $1
	`, eventID, historyID)
	if err != nil {
		return fmt.Errorf("apply event scalars: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("apply event history %d: no matching live row", historyID)
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM event_alternative_names WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("clear event alternative names: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO event_alternative_names (event_id, position, name)
		SELECT $1, position, name FROM event_history_alternative_names WHERE history_id = $2
	`, eventID, historyID); err != nil {
		return fmt.Errorf("fill event alternative names: %w", err)
	}
	return nil
}

func snapshotEvent(ctx context.Context, q querier, historyID int64) (correction.Snapshot, error) {
	var (
		name                                             string
		shortDescription, description                    sql.NullString
		country, province, city                          sql.NullString
		startDate, startPrecision, endDate, endPrecision sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT name, short_description, description,
			country, province, city,
			start_date, start_date_precision, end_date, end_date_precision
		FROM event_history WHERE id = $1
	`, historyID).Scan(&name, &shortDescription, &description,
		&country, &province, &city,
		&startDate, &startPrecision, &endDate, &endPrecision)
	if err != nil {
		return nil, fmt.Errorf("read event history %d: %w", historyID, err)
	}

	alternativeNames, err := readStringList(ctx, q, `
		SELECT name FROM event_history_alternative_names WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, err
	}

	return correction.Snapshot{
		"name":              name,
		"short_description": textValue(shortDescription),
		"description":       textValue(description),
		"location":          locationValue(country, province, city),
		"start_date":        dateValue(startDate, startPrecision),
		"end_date":          dateValue(endDate, endPrecision),
		"alternative_names": alternativeNames,
	}, nil
}
