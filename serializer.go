package rewind

import (
	"context"
	"errors"
)

type (
	// Serializer is the persistence boundary a Stack may bind to. The
	// engine has no knowledge of the storage medium; implementations
	// range from in-memory test doubles to Redis, SQL, and etcd
	Serializer interface {
		// Save writes a restorable encoding of the history keyed by the
		// identifier
		Save(ctx context.Context, id StackID, h History) error

		// Load reads the history back. It returns ErrHistoryNotFound if
		// no prior data exists for the identifier
		Load(ctx context.Context, id StackID) (History, error)
	}
)

// ErrHistoryNotFound indicates no persisted history exists for an
// identifier
var ErrHistoryNotFound = errors.New("persisted history not found")
