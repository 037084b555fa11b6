package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"discograph/api/internal/correction"
)

// Snapshot helpers. A snapshot is the normalized tree of one history row
// plus its children, with deterministic child ordering (position order).
// Diffing only ever compares snapshots produced by this codec, so the
// codec defines the canonical shape: dates as {value, precision} objects,
// locations null when fully absent, absent scalars as null.

func dateValue(value, precision sql.NullString) any {
	if !value.Valid {
		return nil
	}
	return map[string]any{"value": value.String, "precision": precision.String}
}

func locationValue(country, province, city sql.NullString) any {
	if !country.Valid && !province.Valid && !city.Valid {
		return nil
	}
	return map[string]any{
		"country":  textValue(country),
		"province": textValue(province),
		"city":     textValue(city),
	}
}

func textValue(ns sql.NullString) any {
	if !ns.Valid {
		return nil
	}
	return ns.String
}

func dateParams(d *correction.DateWithPrecision) (any, any) {
	if d == nil {
		return nil, nil
	}
	return d.Value, d.Precision
}

func locationParams(l *correction.Location) (any, any, any) {
	if l.Empty() {
		return nil, nil, nil
	}
	return l.Country, l.Province, l.City
}

// jsonb serializes a nested child list for storage in a JSONB column.
func jsonb(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb: %w", err)
	}
	return raw, nil
}

func jsonList(raw []byte) ([]any, error) {
	if len(raw) == 0 {
		return []any{}, nil
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode jsonb: %w", err)
	}
	if list == nil {
		list = []any{}
	}
	return list, nil
}

// readStringList reads a single-text-column child table in position order.
func readStringList(ctx context.Context, q querier, query string, id int64) ([]any, error) {
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("read child list: %w", err)
	}
	defer rows.Close()

	list := []any{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan child list: %w", err)
		}
		list = append(list, value)
	}
	return list, rows.Err()
}

// readInt64List reads a single-bigint-column child table in position order.
func readInt64List(ctx context.Context, q querier, query string, id int64) ([]any, error) {
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("read child list: %w", err)
	}
	defer rows.Close()

	list := []any{}
	for rows.Next() {
		var value int64
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan child list: %w", err)
		}
		list = append(list, value)
	}
	return list, rows.Err()
}

func insertStringList(ctx context.Context, tx *sql.Tx, query string, id int64, values []string) error {
	for position, value := range values {
		if _, err := tx.ExecContext(ctx, query, id, position, value); err != nil {
			return fmt.Errorf("insert child row: %w", err)
		}
	}
	return nil
}

func insertInt64List(ctx context.Context, tx *sql.Tx, query string, id int64, values []int64) error {
	for position, value := range values {
		if _, err := tx.ExecContext(ctx, query, id, position, value); err != nil {
			return fmt.Errorf("insert child row: %w", err)
		}
	}
	return nil
}
