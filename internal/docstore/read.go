package docstore

import (
	"context"
	"database/sql"
	"fmt"
)

// QueryWhere returns every document in the collection whose top-level
// field equals the given value. Results are ordered by id for
// deterministic output; callers needing a different order filter
// client-side.
func (s *Store) QueryWhere(ctx context.Context, collection, field string, equals any) (Snapshot, error) {
	if err := s.requireIdentity("query"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data FROM documents
		WHERE collection = ? AND json_extract(data, ?) = ?
		ORDER BY id ASC
	`, collection, "$."+field, equals)
	if err != nil {
		return nil, transportErr(CodeUnavailable, "query", err)
	}
	defer rows.Close()

	return scanSnapshot(rows)
}

// snapshot reads the full collection ordered by the given top-level field.
// The direction is validated at Subscribe time; it is interpolated here
// because ORDER BY direction cannot be a bind parameter.
func (s *Store) snapshot(ctx context.Context, collection, sortField string, dir Direction) (Snapshot, error) {
	// Tie-break on id so equal sort keys still produce a stable order.
	query := fmt.Sprintf(`
		SELECT id, data FROM documents
		WHERE collection = ?
		ORDER BY json_extract(data, ?) %s, id ASC
	`, dir)

	rows, err := s.db.QueryContext(ctx, query, collection, "$."+sortField)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer rows.Close()

	return scanSnapshot(rows)
}

func scanSnapshot(rows *sql.Rows) (Snapshot, error) {
	snap := Snapshot{}
	for rows.Next() {
		var (
			id   string
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		snap = append(snap, Document{ID: id, Data: []byte(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	return snap, nil
}
