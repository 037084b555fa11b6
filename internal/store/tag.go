package store

import (
	"context"
	"database/sql"
	"fmt"

	"discograph/api/internal/correction"
)

func (t *Tx) insertTag(ctx context.Context, p *correction.NewTag) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO tags (name, tag_type, short_description, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, p.Name, p.Type, p.ShortDescription, p.Description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert tag: %w", err)
	}
	return id, nil
}

func (t *Tx) insertTagHistory(ctx context.Context, tagID int64, p *correction.NewTag) (int64, error) {
	var historyID int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO tag_history (tag_id, name, tag_type, short_description, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, tagID, p.Name, p.Type, p.ShortDescription, p.Description).Scan(&historyID)
	if err != nil {
		return 0, fmt.Errorf("insert tag history: %w", err)
	}

	if err := insertStringList(ctx, t.tx, `
		INSERT INTO tag_history_alternative_names (history_id, position, name) VALUES ($1, $2, $3)
	`, historyID, p.AlternativeNames); err != nil {
		return 0, err
	}
	for position, relation := range p.Relations {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO tag_history_relations (history_id, position, related_tag_id, relation_type)
			VALUES ($1, $2, $3, $4)
		`, historyID, position, relation.RelatedTagID, relation.Type); err != nil {
			return 0, fmt.Errorf("insert tag history relation: %w", err)
		}
	}
	return historyID, nil
}

func (t *Tx) applyTagHistory(ctx context.Context, tagID, historyID int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE tags t SET
			name = h.name, tag_type = h.tag_type,
			short_description = h.short_description, description = h.description
		FROM tag_history h
		WHERE h.id = $2 AND h.tag_id = $1 AND t.id = $1
	`, tagID, historyID)
	if err != nil {
		return fmt.Errorf("apply tag scalars: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("apply tag history %d: no matching live row", historyID)
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM tag_alternative_names WHERE tag_id = $1`, tagID); err != nil {
		return fmt.Errorf("clear tag alternative names: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO tag_alternative_names (tag_id, position, name)
		SELECT $1, position, name FROM tag_history_alternative_names WHERE history_id = $2
	`, tagID, historyID); err != nil {
		return fmt.Errorf("fill tag alternative names: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM tag_relations WHERE tag_id = $1`, tagID); err != nil {
		return fmt.Errorf("clear tag relations: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO tag_relations (tag_id, position, related_tag_id, relation_type)
		SELECT $1, position, related_tag_id, relation_type FROM tag_history_relations WHERE history_id = $2
	`, tagID, historyID); err != nil {
		return fmt.Errorf("fill tag relations: %w", err)
	}
	return nil
}

func snapshotTag(ctx context.Context, q querier, historyID int64) (correction.Snapshot, error) {
	var (
		name, tagType                 string
		shortDescription, description sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT name, tag_type, short_description, description
		FROM tag_history WHERE id = $1
	`, historyID).Scan(&name, &tagType, &shortDescription, &description)
	if err != nil {
		return nil, fmt.Errorf("read tag history %d: %w", historyID, err)
	}

	alternativeNames, err := readStringList(ctx, q, `
		SELECT name FROM tag_history_alternative_names WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, err
	}

	relations := []any{}
	rows, err := q.QueryContext(ctx, `
		SELECT related_tag_id, relation_type FROM tag_history_relations
		WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, fmt.Errorf("read tag relations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var relatedTagID int64
		var relationType string
		if err := rows.Scan(&relatedTagID, &relationType); err != nil {
			return nil, fmt.Errorf("scan tag relation: %w", err)
		}
		relations = append(relations, map[string]any{
			"related_tag_id": relatedTagID,
			"type":           relationType,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return correction.Snapshot{
		"name":              name,
		"type":              tagType,
		"short_description": textValue(shortDescription),
		"description":       textValue(description),
		"alternative_names": alternativeNames,
		"relations":         relations,
	}, nil
}
