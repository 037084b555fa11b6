package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PgFTS implements Searcher with trigram-style ILIKE matching over the
// live tables as a fallback when Meilisearch is not available.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true: if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs a UNION ALL over artists, releases and songs, ranking
// exact-prefix matches above substring matches.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var subQueries []string
	if q.FilterType == "" || q.FilterType == ResultArtist {
		subQueries = append(subQueries, `
			SELECT 'artist'::text AS type, a.id, a.name AS title, a.artist_type AS snippet,
				(a.name ILIKE $1 || '%') AS prefix_match
			FROM artists a
			WHERE a.name ILIKE '%' || $1 || '%'`)
	}
	if q.FilterType == "" || q.FilterType == ResultRelease {
		subQueries = append(subQueries, `
			SELECT 'release'::text AS type, r.id, r.title, r.release_type AS snippet,
				(r.title ILIKE $1 || '%') AS prefix_match
			FROM releases r
			WHERE r.title ILIKE '%' || $1 || '%'`)
	}
	if q.FilterType == "" || q.FilterType == ResultSong {
		subQueries = append(subQueries, `
			SELECT 'song'::text AS type, s.id, s.title, ''::text AS snippet,
				(s.title ILIKE $1 || '%') AS prefix_match
			FROM songs s
			WHERE s.title ILIKE '%' || $1 || '%'`)
	}
	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	union := strings.Join(subQueries, " UNION ALL ")
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub", union)
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet
		FROM (%s) sub
		ORDER BY prefix_match DESC, title
		LIMIT %d OFFSET %d`, union, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, q.Text).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, q.Text)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ArtistRecord, []ReleaseRecord, []SongRecord, error) {
	artistRows, err := p.db.QueryContext(ctx, `
		SELECT a.id, a.name, a.artist_type,
			COALESCE(jsonb_agg(ta.alias) FILTER (WHERE ta.alias IS NOT NULL), '[]')
		FROM artists a
		LEFT JOIN artist_text_aliases ta ON ta.artist_id = a.id
		GROUP BY a.id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load artists: %w", err)
	}
	defer artistRows.Close()

	artists := make([]ArtistRecord, 0)
	for artistRows.Next() {
		var a ArtistRecord
		var rawAliases []byte
		if err := artistRows.Scan(&a.ID, &a.Name, &a.ArtistType, &rawAliases); err != nil {
			return nil, nil, nil, fmt.Errorf("scan artist: %w", err)
		}
		if err := json.Unmarshal(rawAliases, &a.Aliases); err != nil {
			return nil, nil, nil, fmt.Errorf("decode artist aliases: %w", err)
		}
		artists = append(artists, a)
	}
	if err := artistRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate artists: %w", err)
	}

	releaseRows, err := p.db.QueryContext(ctx, `SELECT id, title, release_type FROM releases`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load releases: %w", err)
	}
	defer releaseRows.Close()

	releases := make([]ReleaseRecord, 0)
	for releaseRows.Next() {
		var r ReleaseRecord
		if err := releaseRows.Scan(&r.ID, &r.Title, &r.ReleaseType); err != nil {
			return nil, nil, nil, fmt.Errorf("scan release: %w", err)
		}
		releases = append(releases, r)
	}
	if err := releaseRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate releases: %w", err)
	}

	songRows, err := p.db.QueryContext(ctx, `SELECT id, title FROM songs`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load songs: %w", err)
	}
	defer songRows.Close()

	songs := make([]SongRecord, 0)
	for songRows.Next() {
		var s SongRecord
		if err := songRows.Scan(&s.ID, &s.Title); err != nil {
			return nil, nil, nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, s)
	}
	if err := songRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate songs: %w", err)
	}

	return artists, releases, songs, nil
}
