// Package persist implements the best-effort persistence sidecar: the whole
// account state serializes as one JSON document keyed by user id. Saves are
// debounced and asynchronous; a failed save never rolls back the in-memory
// state, it is logged and retried on the next change.
package persist

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/serviceflow/schedcore/internal/store"
)

// ErrNoDocument is returned by Load when a backend has nothing stored for
// the user id.
var ErrNoDocument = errors.New("no document stored")

// DocumentStore is one storage backend for account documents. The service
// writes every configured backend and reads from the first that answers.
type DocumentStore interface {
	Name() string
	Save(ctx context.Context, userID string, doc []byte) error
	Load(ctx context.Context, userID string) ([]byte, error)
}

// Load tries each backend in order and returns the first document found.
// Postgres is listed before Redis by the caller, so the cache only answers
// when the primary store is down or empty.
func Load(ctx context.Context, backends []DocumentStore, userID string) (store.Document, error) {
	var lastErr error = ErrNoDocument
	for _, b := range backends {
		raw, err := b.Load(ctx, userID)
		if err != nil {
			lastErr = err
			continue
		}
		var doc store.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			lastErr = err
			continue
		}
		return doc, nil
	}
	return store.Document{}, lastErr
}
