package store

import (
	"context"
	"fmt"

	"discograph/api/internal/correction"
)

// SortField selects the correction-metadata ordering for browse listings.
// The zero value sorts by primary key.
type SortField string

const (
	SortByID        SortField = ""
	SortByCreatedAt SortField = "created_at"
	SortByHandledAt SortField = "handled_at"
)

// ListParams is a keyset-pagination request. Cursor is the last entity id
// of the previous page; zero starts from the beginning.
type ListParams struct {
	Cursor int64
	Limit  int
	Sort   SortField
	Desc   bool
}

// correctionSortedEntityIDs returns entity ids ordered by their
// corrections' metadata. An entity with several corrections appears once
// per correction; callers dedup with dedupEntityIDs.
func (s *PostgresStore) correctionSortedEntityIDs(ctx context.Context, entityType correction.EntityType, sort SortField, desc bool) ([]int64, error) {
	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	var column string
	switch sort {
	case SortByCreatedAt:
		column = "created_at"
	case SortByHandledAt:
		column = "handled_at"
	default:
		return nil, fmt.Errorf("unsupported sort field %q", sort)
	}
	query := fmt.Sprintf(`
		SELECT entity_id FROM corrections
		WHERE entity_type = $1 AND %s IS NOT NULL
		ORDER BY %s %s, id %s
	`, column, column, direction, direction)

	rows, err := s.db.QueryContext(ctx, query, entityType)
	if err != nil {
		return nil, fmt.Errorf("sorted entity ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entity id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// dedupEntityIDs collapses repeated entity ids. Descending order keeps
// the first occurrence (the most recent correction); ascending keeps the
// last, so an entity sorts by its newest correction either way.
func dedupEntityIDs(ids []int64, desc bool) []int64 {
	if !desc {
		reversed := make([]int64, len(ids))
		for i, id := range ids {
			reversed[len(ids)-1-i] = id
		}
		front := dedupEntityIDs(reversed, true)
		for i, j := 0, len(front)-1; i < j; i, j = i+1, j-1 {
			front[i], front[j] = front[j], front[i]
		}
		return front
	}
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// paginateIDs takes the page of ids after the cursor and returns the
// next cursor, nil when the listing is exhausted. A cursor that no
// longer appears in the listing ends it rather than restarting from
// the top.
func paginateIDs(ids []int64, cursor int64, limit int) ([]int64, *int64) {
	start := 0
	if cursor != 0 {
		start = len(ids)
		for i, id := range ids {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	page := ids[start:end]
	if end >= len(ids) || len(page) == 0 {
		return page, nil
	}
	next := page[len(page)-1]
	return page, &next
}

func (s *PostgresStore) ListArtists(ctx context.Context, params ListParams) ([]ArtistRow, *int64, error) {
	if params.Sort == SortByID {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, name, artist_type FROM artists
			WHERE id > $1 ORDER BY id LIMIT $2
		`, params.Cursor, params.Limit+1)
		if err != nil {
			return nil, nil, fmt.Errorf("list artists: %w", err)
		}
		defer rows.Close()

		var artists []ArtistRow
		for rows.Next() {
			var a ArtistRow
			if err := rows.Scan(&a.ID, &a.Name, &a.ArtistType); err != nil {
				return nil, nil, fmt.Errorf("scan artist: %w", err)
			}
			artists = append(artists, a)
		}
		if err := rows.Err(); err != nil {
			return nil, nil, err
		}
		if len(artists) > params.Limit {
			artists = artists[:params.Limit]
			next := artists[len(artists)-1].ID
			return artists, &next, nil
		}
		return artists, nil, nil
	}

	sorted, err := s.correctionSortedEntityIDs(ctx, correction.EntityArtist, params.Sort, params.Desc)
	if err != nil {
		return nil, nil, err
	}
	page, next := paginateIDs(dedupEntityIDs(sorted, params.Desc), params.Cursor, params.Limit)
	if len(page) == 0 {
		return nil, nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, artist_type FROM artists WHERE id = ANY($1)
	`, page)
	if err != nil {
		return nil, nil, fmt.Errorf("list artists by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]ArtistRow, len(page))
	for rows.Next() {
		var a ArtistRow
		if err := rows.Scan(&a.ID, &a.Name, &a.ArtistType); err != nil {
			return nil, nil, fmt.Errorf("scan artist: %w", err)
		}
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	artists := make([]ArtistRow, 0, len(page))
	for _, id := range page {
		if a, ok := byID[id]; ok {
			artists = append(artists, a)
		}
	}
	return artists, next, nil
}

func (s *PostgresStore) ListTags(ctx context.Context, params ListParams) ([]TagRow, *int64, error) {
	if params.Sort == SortByID {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, name, tag_type FROM tags
			WHERE id > $1 ORDER BY id LIMIT $2
		`, params.Cursor, params.Limit+1)
		if err != nil {
			return nil, nil, fmt.Errorf("list tags: %w", err)
		}
		defer rows.Close()

		var tags []TagRow
		for rows.Next() {
			var t TagRow
			if err := rows.Scan(&t.ID, &t.Name, &t.Type); err != nil {
				return nil, nil, fmt.Errorf("scan tag: %w", err)
			}
			tags = append(tags, t)
		}
		if err := rows.Err(); err != nil {
			return nil, nil, err
		}
		if len(tags) > params.Limit {
			tags = tags[:params.Limit]
			next := tags[len(tags)-1].ID
			return tags, &next, nil
		}
		return tags, nil, nil
	}

	sorted, err := s.correctionSortedEntityIDs(ctx, correction.EntityTag, params.Sort, params.Desc)
	if err != nil {
		return nil, nil, err
	}
	page, next := paginateIDs(dedupEntityIDs(sorted, params.Desc), params.Cursor, params.Limit)
	if len(page) == 0 {
		return nil, nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, tag_type FROM tags WHERE id = ANY($1)
	`, page)
	if err != nil {
		return nil, nil, fmt.Errorf("list tags by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]TagRow, len(page))
	for rows.Next() {
		var t TagRow
		if err := rows.Scan(&t.ID, &t.Name, &t.Type); err != nil {
			return nil, nil, fmt.Errorf("scan tag: %w", err)
		}
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	tags := make([]TagRow, 0, len(page))
	for _, id := range page {
		if t, ok := byID[id]; ok {
			tags = append(tags, t)
		}
	}
	return tags, next, nil
}
