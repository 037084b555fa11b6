package store

import (
	"context"
	"fmt"

	"discograph/api/internal/correction"
)

func (t *Tx) insertSong(ctx context.Context, p *correction.NewSong) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO songs (title) VALUES ($1) RETURNING id
	`, p.Title).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert song: %w", err)
	}
	return id, nil
}

func (t *Tx) insertSongHistory(ctx context.Context, songID int64, p *correction.NewSong) (int64, error) {
	var historyID int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO song_history (song_id, title) VALUES ($1, $2) RETURNING id
	`, songID, p.Title).Scan(&historyID)
	if err != nil {
		return 0, fmt.Errorf("insert song history: %w", err)
	}

	if err := insertInt64List(ctx, t.tx, `
		INSERT INTO song_history_artists (history_id, position, artist_id) VALUES ($1, $2, $3)
	`, historyID, p.Artists); err != nil {
		return 0, err
	}
	for position, credit := range p.Credits {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO song_history_credits (history_id, position, artist_id, role_id)
			VALUES ($1, $2, $3, $4)
		`, historyID, position, credit.ArtistID, credit.RoleID); err != nil {
			return 0, fmt.Errorf("insert song history credit: %w", err)
		}
	}
	for position, title := range p.LocalizedTitles {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO song_history_localized_titles (history_id, position, language_id, title)
			VALUES ($1, $2, $3, $4)
		`, historyID, position, title.LanguageID, title.Title); err != nil {
			return 0, fmt.Errorf("insert song history localized title: %w", err)
		}
	}
	if err := insertInt64List(ctx, t.tx, `
		INSERT INTO song_history_languages (history_id, position, language_id) VALUES ($1, $2, $3)
	`, historyID, p.Languages); err != nil {
		return 0, err
	}
	return historyID, nil
}

func (t *Tx) applySongHistory(ctx context.Context, songID, historyID int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE songs s SET title = h.title
		FROM song_history h
		WHERE h.id = $2 AND h.song_id = $1 AND s.id = $1
	`, songID, historyID)
	if err != nil {
		return fmt.Errorf("apply song scalars: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("apply song history %d: no matching live row", historyID)
	}

	steps := []struct{ clear, fill string }{
		{
			clear: `DELETE FROM song_artists WHERE song_id = $1`,
			fill: `INSERT INTO song_artists (song_id, position, artist_id)
				SELECT $1, position, artist_id FROM song_history_artists WHERE history_id = $2`,
		},
		{
			clear: `DELETE FROM song_credits WHERE song_id = $1`,
			fill: `INSERT INTO song_credits (song_id, position, artist_id, role_id)
				SELECT $1, position, artist_id, role_id FROM song_history_credits WHERE history_id = $2`,
		},
		{
			clear: `DELETE FROM song_localized_titles WHERE song_id = $1`,
			fill: `INSERT INTO song_localized_titles (song_id, position, language_id, title)
				SELECT $1, position, language_id, title FROM song_history_localized_titles WHERE history_id = $2`,
		},
		{
			clear: `DELETE FROM song_languages WHERE song_id = $1`,
			fill: `INSERT INTO song_languages (song_id, position, language_id)
				SELECT $1, position, language_id FROM song_history_languages WHERE history_id = $2`,
		},
	}
	for _, step := range steps {
		if _, err := t.tx.ExecContext(ctx, step.clear, songID); err != nil {
			return fmt.Errorf("clear song children: %w", err)
		}
		if _, err := t.tx.ExecContext(ctx, step.fill, songID, historyID); err != nil {
			return fmt.Errorf("fill song children: %w", err)
		}
	}
	return nil
}

func snapshotSong(ctx context.Context, q querier, historyID int64) (correction.Snapshot, error) {
	var title string
	err := q.QueryRowContext(ctx, `
		SELECT title FROM song_history WHERE id = $1
	`, historyID).Scan(&title)
	if err != nil {
		return nil, fmt.Errorf("read song history %d: %w", historyID, err)
	}

	artists, err := readInt64List(ctx, q, `
		SELECT artist_id FROM song_history_artists WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, err
	}

	credits := []any{}
	creditRows, err := q.QueryContext(ctx, `
		SELECT artist_id, role_id FROM song_history_credits
		WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, fmt.Errorf("read song credits: %w", err)
	}
	defer creditRows.Close()
	for creditRows.Next() {
		var artistID, roleID int64
		if err := creditRows.Scan(&artistID, &roleID); err != nil {
			return nil, fmt.Errorf("scan song credit: %w", err)
		}
		credits = append(credits, map[string]any{
			"artist_id": artistID,
			"role_id":   roleID,
		})
	}
	if err := creditRows.Err(); err != nil {
		return nil, err
	}

	localizedTitles := []any{}
	titleRows, err := q.QueryContext(ctx, `
		SELECT language_id, title FROM song_history_localized_titles
		WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, fmt.Errorf("read song localized titles: %w", err)
	}
	defer titleRows.Close()
	for titleRows.Next() {
		var languageID int64
		var localized string
		if err := titleRows.Scan(&languageID, &localized); err != nil {
			return nil, fmt.Errorf("scan song localized title: %w", err)
		}
		localizedTitles = append(localizedTitles, map[string]any{
			"language_id": languageID,
			"title":       localized,
		})
	}
	if err := titleRows.Err(); err != nil {
		return nil, err
	}

	languages, err := readInt64List(ctx, q, `
		SELECT language_id FROM song_history_languages WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, err
	}

	return correction.Snapshot{
		"title":            title,
		"artists":          artists,
		"credits":          credits,
		"localized_titles": localizedTitles,
		"languages":        languages,
	}, nil
}
