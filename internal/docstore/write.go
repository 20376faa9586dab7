package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Create stores a new document and returns its assigned id. Ids are
// UUIDv7, so creation order is recoverable from the id itself.
//
// Every subscriber of the collection receives a fresh snapshot after the
// write commits.
func (s *Store) Create(ctx context.Context, collection string, doc []byte) (string, error) {
	if err := s.requireIdentity("create"); err != nil {
		return "", err
	}
	if !json.Valid(doc) {
		return "", fmt.Errorf("create: document is not valid JSON")
	}

	id := uuid.Must(uuid.NewV7()).String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES (?, ?, ?)
	`, collection, id, string(doc))
	if err != nil {
		return "", transportErr(CodeUnavailable, "create", err)
	}

	s.notify(ctx, collection)
	return id, nil
}

// MergePatch applies the patch's top-level fields to an existing document
// inside a transaction, leaving every other field untouched. A JSON null
// value removes the field. There is no full-overwrite path.
func (s *Store) MergePatch(ctx context.Context, collection, id string, patch []byte) error {
	if err := s.requireIdentity("merge patch"); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return fmt.Errorf("merge patch: patch is not a JSON object: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return transportErr(CodeUnavailable, "merge patch", err)
	}
	defer tx.Rollback() // No-op if committed

	var data string
	err = tx.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transportErr(CodeNotFound, "merge patch", nil)
		}
		return transportErr(CodeUnavailable, "merge patch", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return fmt.Errorf("merge patch: stored document corrupt: %w", err)
	}
	for k, v := range fields {
		if string(v) == "null" {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("merge patch: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET data = ? WHERE collection = ? AND id = ?
	`, string(merged), collection, id)
	if err != nil {
		return transportErr(CodeUnavailable, "merge patch", err)
	}
	if err := tx.Commit(); err != nil {
		return transportErr(CodeUnavailable, "merge patch", err)
	}

	s.notify(ctx, collection)
	return nil
}

// Delete removes a document. Deleting an absent document is a no-op, not
// an error; subscribers are only notified when a row was actually removed.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.requireIdentity("delete"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = ? AND id = ?
	`, collection, id)
	if err != nil {
		return transportErr(CodeUnavailable, "delete", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.notify(ctx, collection)
	}
	return nil
}
