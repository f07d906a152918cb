package snapshot

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by an Origin when the snapshot object
// does not exist in the blob store.
var ErrObjectNotFound = errors.New("snapshot object not found")

// Origin is the durable source of truth for the published snapshot,
// queried only on cache miss.
type Origin interface {
	FetchObject(ctx context.Context) ([]byte, error)
}
