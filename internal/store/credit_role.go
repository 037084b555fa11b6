package store

import (
	"context"
	"database/sql"
	"fmt"

	"discograph/api/internal/correction"
)

func (t *Tx) insertCreditRole(ctx context.Context, p *correction.NewCreditRole) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO credit_roles (name, description) VALUES ($1, $2) RETURNING id
	`, p.Name, p.Description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert credit role: %w", err)
	}
	return id, nil
}

func (t *Tx) insertCreditRoleHistory(ctx context.Context, roleID int64, p *correction.NewCreditRole) (int64, error) {
	var historyID int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO credit_role_history (role_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id
	`, roleID, p.Name, p.Description).Scan(&historyID)
	if err != nil {
		return 0, fmt.Errorf("insert credit role history: %w", err)
	}

	if err := insertInt64List(ctx, t.tx, `
		INSERT INTO credit_role_history_inherits (history_id, position, inherited_role_id) VALUES ($1, $2, $3)
	`, historyID, p.Inherits); err != nil {
		return 0, err
	}
	return historyID, nil
}

func (t *Tx) applyCreditRoleHistory(ctx context.Context, roleID, historyID int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE credit_roles r SET name = h.name, description = h.description
		FROM credit_role_history h
		WHERE h.id = $2 AND h.role_id = $1 AND r.id = $1
	`, roleID, historyID)
	if err != nil {
		return fmt.Errorf("apply credit role scalars: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("apply credit role history %d: no matching live row", historyID)
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM credit_role_inherits WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("clear credit role inherits: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO credit_role_inherits (role_id, position, inherited_role_id)
		SELECT $1, position, inherited_role_id FROM credit_role_history_inherits WHERE history_id = $2
	`, roleID, historyID); err != nil {
		return fmt.Errorf("fill credit role inherits: %w", err)
	}
	return nil
}

func snapshotCreditRole(ctx context.Context, q querier, historyID int64) (correction.Snapshot, error) {
	var (
		name        string
		description sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT name, description FROM credit_role_history WHERE id = $1
	`, historyID).Scan(&name, &description)
	if err != nil {
		return nil, fmt.Errorf("read credit role history %d: %w", historyID, err)
	}

	inherits, err := readInt64List(ctx, q, `
		SELECT inherited_role_id FROM credit_role_history_inherits WHERE history_id = $1 ORDER BY position
	`, historyID)
	if err != nil {
		return nil, err
	}

	return correction.Snapshot{
		"name":        name,
		"description": textValue(description),
		"inherits":    inherits,
	}, nil
}
