package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
)

// Collection names owned by the backend services.
const (
	CollectionArt      = "art"
	CollectionRequests = "requests"
)

// ErrVersionConflict is returned by VersionedStore implementations when a
// conditional write observes a version other than the one the caller read.
var ErrVersionConflict = errors.New("store: version conflict")

// Store persists whole-document JSON collections. A collection is a single
// JSON array replaced wholesale on every Save; Load decodes absent or
// malformed content as an empty collection rather than failing.
//
// Save is atomic with respect to concurrent Loads, but no cross-call
// transactionality is provided: concurrent read-modify-write cycles on the
// same collection race and the later Save wins.
type Store interface {
	Load(ctx context.Context, collection string, out any) error
	Save(ctx context.Context, collection string, records any) error
}

// VersionedStore is an optional extension for backends that can guard
// against lost updates. Callers that require stronger guarantees than the
// base contract may type-assert for it and retry on ErrVersionConflict.
type VersionedStore interface {
	Store
	LoadVersioned(ctx context.Context, collection string, out any) (int64, error)
	SaveVersioned(ctx context.Context, collection string, records any, expectedVersion int64) error
}

// decodeCollection fills out from a stored document. Empty or malformed
// content reads as an empty collection.
func decodeCollection(data []byte, out any) {
	if len(bytes.TrimSpace(data)) == 0 {
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		resetCollection(out)
	}
}

// resetCollection zeroes the destination so a failed partial decode never
// leaks into the caller.
func resetCollection(out any) {
	value := reflect.ValueOf(out)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		return
	}
	element := value.Elem()
	element.Set(reflect.Zero(element.Type()))
}

func encodeCollection(records any) ([]byte, error) {
	return json.MarshalIndent(records, "", "  ")
}

func documentName(collection string) string {
	return collection + ".json"
}
