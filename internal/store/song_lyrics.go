package store

import (
	"context"
	"fmt"

	"discograph/api/internal/correction"
)

// Lyrics are identified by id like every other entity, but at most one
// lyrics row per (song, language) may be flagged as main. Applying a
// history row that sets is_main unsets the flag on the song's other
// lyrics in the same statement batch.

func (t *Tx) insertSongLyrics(ctx context.Context, p *correction.NewSongLyrics) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO song_lyrics (song_id, language_id, content, is_main)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, p.SongID, p.LanguageID, p.Content, p.IsMain).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert song lyrics: %w", err)
	}
	return id, nil
}

func (t *Tx) insertSongLyricsHistory(ctx context.Context, lyricsID int64, p *correction.NewSongLyrics) (int64, error) {
	var historyID int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO song_lyrics_history (lyrics_id, song_id, language_id, content, is_main)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, lyricsID, p.SongID, p.LanguageID, p.Content, p.IsMain).Scan(&historyID)
	if err != nil {
		return 0, fmt.Errorf("insert song lyrics history: %w", err)
	}
	return historyID, nil
}

func (t *Tx) applySongLyricsHistory(ctx context.Context, lyricsID, historyID int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE song_lyrics l SET
			song_id = h.song_id, language_id = h.language_id,
			content = h.content, is_main = h.is_main
		FROM song_lyrics_history h
		WHERE h.id = $2 AND h.lyrics_id = $1 AND l.id = $1
	`, lyricsID, historyID)
	if err != nil {
		return fmt.Errorf("apply song lyrics: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("apply song lyrics history %d: no matching live row", historyID)
	}

	_, err = t.tx.ExecContext(ctx, `
		UPDATE song_lyrics SET is_main = FALSE
		WHERE id <> $1 AND is_main
			AND song_id = (SELECT song_id FROM song_lyrics WHERE id = $1)
			AND (SELECT is_main FROM song_lyrics WHERE id = $1)
	`, lyricsID)
	if err != nil {
		return fmt.Errorf("unset other main lyrics: %w", err)
	}
	return nil
}

func snapshotSongLyrics(ctx context.Context, q querier, historyID int64) (correction.Snapshot, error) {
	var (
		songID, languageID int64
		content            string
		isMain             bool
	)
	err := q.QueryRowContext(ctx, `
		SELECT song_id, language_id, content, is_main
		FROM song_lyrics_history WHERE id = $1
	`, historyID).Scan(&songID, &languageID, &content, &isMain)
	if err != nil {
		return nil, fmt.Errorf("read song lyrics history %d: %w", historyID, err)
	}

	return correction.Snapshot{
		"song_id":     songID,
		"language_id": languageID,
		"content":     content,
		"is_main":     isMain,
	}, nil
}
