package blobstore

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrUnavailable is returned when the underlying storage engine cannot be
// opened. Callers degrade to passing image data through untouched rather
// than failing the operation that needed the store.
var ErrUnavailable = errors.New("blob store unavailable")

// IDPrefix tags every identifier issued by a Store so that callers can tell
// a blob id apart from a remote URL or raw inline data without a schema lookup.
const IDPrefix = "img_"

// Store is a device-local key to binary-image mapping. Images live only on
// the device that stored them; the remote document store carries the id.
type Store interface {
	// Put stores raw image data and returns a freshly generated opaque id.
	// Safe for concurrent use.
	Put(ctx context.Context, data []byte) (string, error)
	// Get resolves an id back to image data. A missing id yields ok=false,
	// never an error.
	Get(ctx context.Context, id string) (data []byte, ok bool, err error)
	// Delete removes an id. Absence of the key is not an error.
	Delete(ctx context.Context, id string) error
}

// IsID reports whether s looks like an identifier issued by a Store.
func IsID(s string) bool {
	return strings.HasPrefix(s, IDPrefix)
}

func newID() string {
	return IDPrefix + uuid.New().String()
}
