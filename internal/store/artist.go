package store

import (
	"context"
	"database/sql"
	"fmt"

	"discograph/api/internal/correction"
)

func (t *Tx) insertArtist(ctx context.Context, p *correction.NewArtist) (int64, error) {
	startValue, startPrecision := dateParams(p.StartDate)
	endValue, endPrecision := dateParams(p.EndDate)
	startCountry, startProvince, startCity := locationParams(p.StartLocation)
	currentCountry, currentProvince, currentCity := locationParams(p.CurrentLocation)

	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO artists (
			name, artist_type,
			start_date, start_date_precision, end_date, end_date_precision,
			start_country, start_province, start_city,
			current_country, current_province, current_city
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, p.Name, p.ArtistType,
		startValue, startPrecision, endValue, endPrecision,
		startCountry, startProvince, startCity,
		currentCountry, currentProvince, currentCity).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert artist: %w", err)
	}
	return id, nil
}

func (t *Tx) insertArtistHistory(ctx context.Context, artistID int64, p *correction.NewArtist) (int64, error) {
	startValue, startPrecision := dateParams(p.StartDate)
	endValue, endPrecision := dateParams(p.EndDate)
	startCountry, startProvince, startCity := locationParams(p.StartLocation)
	currentCountry, currentProvince, currentCity := locationParams(p.CurrentLocation)

	var historyID int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO artist_history (
			artist_id, name, artist_type,
			start_date, start_date_precision, end_date, end_date_precision,
			start_country, start_province, start_city,
			current_country, current_province, current_city
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, artistID, p.Name, p.ArtistType,
		startValue, startPrecision, endValue, endPrecision,
		startCountry, startProvince, startCity,
		currentCountry, currentProvince, currentCity).Scan(&historyID)
	if err != nil {
		return 0, fmt.Errorf("insert artist history: %w", err)
	}

	if err := insertStringList(ctx, t.tx, `
		INSERT INTO artist_history_text_aliases (history_id, position, alias) VALUES ($1, $2, $3)
	`, historyID, p.TextAlias); err != nil {
		return 0, err
	}
	if err := insertStringList(ctx, t.tx, `
		INSERT INTO artist_history_links (history_id, position, url) VALUES ($1, $2, $3)
	`, historyID, p.Links); err != nil {
		return 0, err
	}
	if err := insertInt64List(ctx, t.tx, `
		INSERT INTO artist_history_aliases (history_id, position, alias_artist_id) VALUES ($1, $2, $3)
	`, historyID, p.Aliases); err != nil {
		return 0, err
	}
	for position, name := range p.LocalizedNames {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO artist_history_localized_names (history_id, position, language_id, name)
			VALUES ($1, $2, $3, $4)
		`, historyID, position, name.LanguageID, name.Name); err != nil {
			return 0, fmt.Errorf("insert artist history localized name: %w", err)
		}
	}
	for position, membership := range p.Memberships {
		roles, err := jsonb(membership.Roles)
		if err != nil {
			return 0, err
		}
		tenures, err := jsonb(membership.Tenures)
		if err != nil {
			return 0, err
		}
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO artist_history_memberships (history_id, position, member_artist_id, roles, tenures)
			VALUES ($1, $2, $3, $4, $5)
		`, historyID, position, membership.ArtistID, roles, tenures); err != nil {
			return 0, fmt.Errorf("insert artist history membership: %w", err)
		}
	}
	return historyID, nil
}

func (t *Tx) applyArtistHistory(ctx context.Context, artistID, historyID int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE artists a SET
			name = h.name, artist_type = h.artist_type,
			start_date = h.start_date, start_date_precision = h.start_date_precision,
			end_date = h.end_date, end_date_precision = h.end_date_precision,
			start_country = h.start_country, start_province = h.start_province, start_city = h.start_city,
			current_country = h.current_country, current_province = h.current_province, current_city = h.current_city
		FROM artist_history h
		WHERE h.id = $2 AND h.artist_id = $1 AND a.id = $1
	`, artistID, historyID)
	if err != nil {
		return fmt.Errorf("apply artist scalars: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("apply artist history %d: no matching live row", historyID)
	}

	steps := []struct{ clear, fill string }{
		{
			clear: `DELETE FROM artist_text_aliases WHERE artist_id = $1`,
			fill: `INSERT INTO artist_text_aliases (artist_id, position, alias)
				SELECT $1, position, alias FROM artist_history_text_aliases WHERE history_id = $2`,
		},
		{
			clear: `DELETE FROM artist_links WHERE artist_id = $1`,
			fill: `INSERT INTO artist_links (artist_id, position, url)
				SELECT $1, position, url FROM artist_history_links WHERE history_id = $2`,
		},
		{
			clear: `DELETE FROM artist_aliases WHERE artist_id = $1`,
			fill: `INSERT INTO artist_aliases (artist_id, position, alias_artist_id)
				SELECT $1, position, alias_artist_id FROM artist_history_aliases WHERE history_id = $2`,
		},
		{
			clear: `DELETE FROM artist_localized_names WHERE artist_id = $1`,
			fill: `INSERT INTO artist_localized_names (artist_id, position, language_id, name)
				SELECT $1, position, language_id, name FROM artist_history_localized_names WHERE history_id = $2`,
		},
		{
			clear: `DELETE FROM artist_memberships WHERE artist_id = $1`,
			fill: `INSERT INTO artist_memberships (artist_id, position, member_artist_id, roles, tenures)
				SELECT $1, position, member_artist_id, roles, tenures FROM artist_history_memberships WHERE history_id = $2`,
		},
	}
	for _, step := range steps {
		if _, err := t.tx.ExecContext(ctx, step.clear, artistID); err != nil {
			return fmt.Errorf("clear artist children: %w", err)
		}
		if _, err := t.tx.ExecContext(ctx, step.fill, artistID, historyID); err != nil {
			return fmt.Errorf("fill artist children: %w", err)
		}
	}
	return nil
}

func snapshotArtist(ctx context.Context, q querier, historyID int64) (correction.Snapshot, error) {
	var (
		name, artistType                                 string
		startDate, startPrecision, endDate, endPrecision sql.NullString
		startCountry, startProvince, startCity           sql.NullString
		currentCountry, currentProvince, currentCity     sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT name, artist_type,
			start_date, start_date_precision, end_date, end_date_precision,
			start_country, start_province, start_city,
			current_country, current_province, current_city
		FROM artist_history WHERE id = $1
	`, historyID).Scan(&name, &artistType,
		&startDate, &startPrecision, &endDate, &endPrecision,
		&startCountry, &startProvince, &startCity,
		&currentCountry, &currentProvince, &currentCity)
	if err != nil {
		return nil, fmt.Errorf("read artist history %d: %w", historyID, err)
	}

	textAliases, err := readStringList(ctx, q, `
		SELECT alias FROM artist_history_text_aliases WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, err
	}
	links, err := readStringList(ctx, q, `
		SELECT url FROM artist_history_links WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, err
	}
	aliases, err := readInt64List(ctx, q, `
		SELECT alias_artist_id FROM artist_history_aliases WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, err
	}

	localizedNames := []any{}
	rows, err := q.QueryContext(ctx, `
		SELECT language_id, name FROM artist_history_localized_names
		WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, fmt.Errorf("read artist localized names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var languageID int64
		var localized string
		if err := rows.Scan(&languageID, &localized); err != nil {
			return nil, fmt.Errorf("scan artist localized name: %w", err)
		}
		localizedNames = append(localizedNames, map[string]any{
			"language_id": languageID,
			"name":        localized,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	memberships := []any{}
	memberRows, err := q.QueryContext(ctx, `
		SELECT member_artist_id, roles, tenures FROM artist_history_memberships
		WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, fmt.Errorf("read artist memberships: %w", err)
	}
	defer memberRows.Close()
	for memberRows.Next() {
		var memberID int64
		var rawRoles, rawTenures []byte
		if err := memberRows.Scan(&memberID, &rawRoles, &rawTenures); err != nil {
			return nil, fmt.Errorf("scan artist membership: %w", err)
		}
		roles, err := jsonList(rawRoles)
		if err != nil {
			return nil, err
		}
		tenures, err := jsonList(rawTenures)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, map[string]any{
			"artist_id": memberID,
			"roles":     roles,
			"tenures":   tenures,
		})
	}
	if err := memberRows.Err(); err != nil {
		return nil, err
	}

	return correction.Snapshot{
		"name":             name,
		"artist_type":      artistType,
		"text_alias":       textAliases,
		"start_date":       dateValue(startDate, startPrecision),
		"end_date":         dateValue(endDate, endPrecision),
		"start_location":   locationValue(startCountry, startProvince, startCity),
		"current_location": locationValue(currentCountry, currentProvince, currentCity),
		"links":            links,
		"aliases":          aliases,
		"localized_names":  localizedNames,
		"memberships":      memberships,
	}, nil
}
