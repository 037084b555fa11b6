package store

import (
	"context"
	"database/sql"
	"fmt"

	"discograph/api/internal/correction"
)

func (t *Tx) insertRelease(ctx context.Context, p *correction.NewRelease) (int64, error) {
	releaseValue, releasePrecision := dateParams(p.ReleaseDate)
	recStartValue, recStartPrecision := dateParams(p.RecordingDateStart)
	recEndValue, recEndPrecision := dateParams(p.RecordingDateEnd)

	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO releases (
			title, release_type,
			release_date, release_date_precision,
			recording_date_start, recording_date_start_precision,
			recording_date_end, recording_date_end_precision
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, p.Title, p.ReleaseType,
		releaseValue, releasePrecision,
		recStartValue, recStartPrecision,
		recEndValue, recEndPrecision).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert release: %w", err)
	}
	return id, nil
}

func (t *Tx) insertReleaseHistory(ctx context.Context, releaseID int64, p *correction.NewRelease) (int64, error) {
	releaseValue, releasePrecision := dateParams(p.ReleaseDate)
	recStartValue, recStartPrecision := dateParams(p.RecordingDateStart)
	recEndValue, recEndPrecision := dateParams(p.RecordingDateEnd)

	var historyID int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO release_history (
			release_id, title, release_type,
			release_date, release_date_precision,
			recording_date_start, recording_date_start_precision,
			recording_date_end, recording_date_end_precision
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, releaseID, p.Title, p.ReleaseType,
		releaseValue, releasePrecision,
		recStartValue, recStartPrecision,
		recEndValue, recEndPrecision).Scan(&historyID)
	if err != nil {
		return 0, fmt.Errorf("insert release history: %w", err)
	}

	if err := insertInt64List(ctx, t.tx, `
		INSERT INTO release_history_artists (history_id, position, artist_id) VALUES ($1, $2, $3)
	`, historyID, p.Artists); err != nil {
		return 0, err
	}
	for position, credit := range p.Credits {
		on, err := jsonb(credit.On)
		if err != nil {
			return 0, err
		}
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO release_history_credits (history_id, position, artist_id, role_id, credited_on)
			VALUES ($1, $2, $3, $4, $5)
		`, historyID, position, credit.ArtistID, credit.RoleID, on); err != nil {
			return 0, fmt.Errorf("insert release history credit: %w", err)
		}
	}
	for position, title := range p.LocalizedTitles {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO release_history_localized_titles (history_id, position, language_id, title)
			VALUES ($1, $2, $3, $4)
		`, historyID, position, title.LanguageID, title.Title); err != nil {
			return 0, fmt.Errorf("insert release history localized title: %w", err)
		}
	}
	if err := insertStringList(ctx, t.tx, `
		INSERT INTO release_history_catalog_numbers (history_id, position, catalog_number) VALUES ($1, $2, $3)
	`, historyID, p.CatalogNumbers); err != nil {
		return 0, err
	}
	if err := insertInt64List(ctx, t.tx, `
		INSERT INTO release_history_events (history_id, position, event_id) VALUES ($1, $2, $3)
	`, historyID, p.Events); err != nil {
		return 0, err
	}
	for position, disc := range p.Discs {
		tracks, err := jsonb(disc.Tracks)
		if err != nil {
			return 0, err
		}
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO release_history_discs (history_id, position, name, tracks)
			VALUES ($1, $2, $3, $4)
		`, historyID, position, disc.Name, tracks); err != nil {
			return 0, fmt.Errorf("insert release history disc: %w", err)
		}
	}
	return historyID, nil
}

func (t *Tx) applyReleaseHistory(ctx context.Context, releaseID, historyID int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE releases r SET
			title = h.title, release_type = h.release_type,
			release_date = h.release_date, release_date_precision = h.release_date_precision,
			recording_date_start = h.recording_date_start,
			recording_date_start_precision = h.recording_date_start_precision,
			recording_date_end = h.recording_date_end,
			recording_date_end_precision = h.recording_date_end_precision
		FROM release_history h
		WHERE h.id = $2 AND h.release_id = $1 AND r.id = $1
	`, releaseID, historyID)
	if err != nil {
		return fmt.Errorf("apply release scalars: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("apply release history %d: no matching live row", historyID)
	}

	steps := []struct{ clear, fill string }{
		{
			clear: `DELETE FROM release_artists WHERE release_id = $1`,
			fill: `INSERT INTO release_artists (release_id, position, artist_id)
				SELECT $1, position, artist_id FROM release_history_artists WHERE history_id = $2`,
		},
		{
			clear: `DELETE FROM release_credits WHERE release_id = $1`,
			fill: `INSERT INTO release_credits (release_id, position, artist_id, role_id, credited_on)
				SELECT $1, position, artist_id, role_id, credited_on FROM release_history_credits WHERE history_id = $2`,
		},
		{
			clear: `DELETE FROM release_localized_titles WHERE release_id = $1`,
			fill: `INSERT INTO release_localized_titles (release_id, position, language_id, title)
				SELECT $1, position, language_id, title FROM release_history_localized_titles WHERE history_id = $2`,
		},
		{
			clear: `DELETE FROM release_catalog_numbers WHERE release_id = $1`,
			fill: `INSERT INTO release_catalog_numbers (release_id, position, catalog_number)
				SELECT $1, position, catalog_number FROM release_history_catalog_numbers WHERE history_id = $2`,
		},
		{
			clear: `DELETE FROM release_events WHERE release_id = $1`,
			fill: `INSERT INTO release_events (release_id, position, event_id)
				SELECT $1, position, event_id FROM release_history_events WHERE history_id = $2`,
		},
		{
			clear: `DELETE FROM release_discs WHERE release_id = $1`,
			fill: `INSERT INTO release_discs (release_id, position, name, tracks)
				SELECT $1, position, name, tracks FROM release_history_discs WHERE history_id = $2`,
		},
	}
	for _, step := range steps {
		if _, err := t.tx.ExecContext(ctx, step.clear, releaseID); err != nil {
			return fmt.Errorf("clear release children: %w", err)
		}
		if _, err := t.tx.ExecContext(ctx, step.fill, releaseID, historyID); err != nil {
			return fmt.Errorf("fill release children: %w", err)
		}
	}
	return nil
}

func snapshotRelease(ctx context.Context, q querier, historyID int64) (correction.Snapshot, error) {
	var (
		title, releaseType                                   string
		releaseDate, releasePrecision                        sql.NullString
		recStart, recStartPrecision, recEnd, recEndPrecision sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT title, release_type,
			release_date, release_date_precision,
			recording_date_start, recording_date_start_precision,
			recording_date_end, recording_date_end_precision
		FROM release_history WHERE id = $1
	`, historyID).Scan(&title, &releaseType,
		&releaseDate, &releasePrecision,
		&recStart, &recStartPrecision,
		&recEnd, &recEndPrecision)
	if err != nil {
		return nil, fmt.Errorf("read release history %d: %w", historyID, err)
	}

	artists, err := readInt64List(ctx, q, `
		SELECT artist_id FROM release_history_artists WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, err
	}

	credits := []any{}
	creditRows, err := q.QueryContext(ctx, `
		SELECT artist_id, role_id, credited_on FROM release_history_credits
		WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, fmt.Errorf("read release credits: %w", err)
	}
	defer creditRows.Close()
	for creditRows.Next() {
		var artistID, roleID int64
		var rawOn []byte
		if err := creditRows.Scan(&artistID, &roleID, &rawOn); err != nil {
			return nil, fmt.Errorf("scan release credit: %w", err)
		}
		on, err := jsonList(rawOn)
		if err != nil {
			return nil, err
		}
		credits = append(credits, map[string]any{
			"artist_id": artistID,
			"role_id":   roleID,
			"on":        on,
		})
	}
	if err := creditRows.Err(); err != nil {
		return nil, err
	}

	localizedTitles := []any{}
	titleRows, err := q.QueryContext(ctx, `
		SELECT language_id, title FROM release_history_localized_titles
		WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, fmt.Errorf("read release localized titles: %w", err)
	}
	defer titleRows.Close()
	for titleRows.Next() {
		var languageID int64
		var localized string
		if err := titleRows.Scan(&languageID, &localized); err != nil {
			return nil, fmt.Errorf("scan release localized title: %w", err)
		}
		localizedTitles = append(localizedTitles, map[string]any{
			"language_id": languageID,
			"title":       localized,
		})
	}
	if err := titleRows.Err(); err != nil {
		return nil, err
	}

	catalogNumbers, err := readStringList(ctx, q, `
		SELECT catalog_number FROM release_history_catalog_numbers WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, err
	}
	events, err := readInt64List(ctx, q, `
		SELECT event_id FROM release_history_events WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, err
	}

	discs := []any{}
	discRows, err := q.QueryContext(ctx, `
		SELECT name, tracks FROM release_history_discs
		WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, fmt.Errorf("read release discs: %w", err)
	}
	defer discRows.Close()
	for discRows.Next() {
		var name sql.NullString
		var rawTracks []byte
		if err := discRows.Scan(&name, &rawTracks); err != nil {
			return nil, fmt.Errorf("scan release disc: %w", err)
		}
		tracks, err := jsonList(rawTracks)
		if err != nil {
			return nil, err
		}
		discs = append(discs, map[string]any{
			"name":   textValue(name),
			"tracks": tracks,
		})
	}
	if err := discRows.Err(); err != nil {
		return nil, err
	}

	return correction.Snapshot{
		"title":                title,
		"release_type":         releaseType,
		"release_date":         dateValue(releaseDate, releasePrecision),
		"recording_date_start": dateValue(recStart, recStartPrecision),
		"recording_date_end":   dateValue(recEnd, recEndPrecision),
		"artists":              artists,
		"credits":              credits,
		"localized_titles":     localizedTitles,
		"catalog_numbers":      catalogNumbers,
		"events":               events,
		"discs":                discs,
	}, nil
}
