package imageref

import (
	"context"
	"errors"
	"log/slog"

	"github.com/trykaro/wardrobe-service/internal/blobstore"
)

// DefaultMaxStoredLen bounds the stored representation of an image field.
// Remote documents have a hard size limit; anything longer than this is
// dropped rather than risked.
const DefaultMaxStoredLen = 2000

// Codec rewrites image values at the remote-store boundary: raw inline data
// becomes a local blob id on the way out and is resolved back on the way in.
// Every persistence path for every image-bearing field funnels through it.
type Codec struct {
	store        blobstore.Store
	maxStoredLen int
	logger       *slog.Logger
}

// NewCodec builds a codec over the given blob store. maxStoredLen <= 0
// selects DefaultMaxStoredLen.
func NewCodec(store blobstore.Store, maxStoredLen int, logger *slog.Logger) *Codec {
	if maxStoredLen <= 0 {
		maxStoredLen = DefaultMaxStoredLen
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{store: store, maxStoredLen: maxStoredLen, logger: logger}
}

// EncodeForRemote converts ref into a form safe to write to a remote
// document. References (remote URLs, blob ids) pass through unchanged, so
// re-encoding an already-synced value is idempotent. Inline data is stored
// locally and replaced by its id; when the blob store is unavailable the data
// passes through, and any result still longer than the configured threshold
// degrades to None. Never fails.
func (c *Codec) EncodeForRemote(ctx context.Context, ref Ref) Ref {
	switch ref.Kind() {
	case KindNone, KindRemote, KindLocalBlob:
		return c.capped(ref)
	}

	id, err := c.store.Put(ctx, []byte(ref.Value()))
	if err != nil {
		if errors.Is(err, blobstore.ErrUnavailable) {
			c.logger.Warn("blob store unavailable, passing image through", "error", err)
			return c.capped(ref)
		}
		c.logger.Warn("blob store write failed, dropping image", "error", err)
		return None()
	}
	return c.capped(LocalBlob(id))
}

// DecodeFromRemote resolves a value read back from a remote document. Blob
// ids are looked up locally; a blob missing on this device (profile synced
// from elsewhere) yields the id unchanged so the UI can show a placeholder.
// Never fails.
func (c *Codec) DecodeFromRemote(ctx context.Context, ref Ref) Ref {
	if ref.Kind() != KindLocalBlob {
		return ref
	}

	data, ok, err := c.store.Get(ctx, ref.Value())
	if err != nil {
		c.logger.Warn("blob store read failed", "id", ref.Value(), "error", err)
		return ref
	}
	if !ok {
		return ref
	}
	return Inline(string(data))
}

// capped enforces the remote-document-safe size threshold. Oversized values
// are dropped, not truncated.
func (c *Codec) capped(ref Ref) Ref {
	if len(ref.Value()) > c.maxStoredLen {
		c.logger.Warn("image representation exceeds remote size threshold, dropping",
			"kind", ref.Kind(), "length", len(ref.Value()))
		return None()
	}
	return ref
}
