package wardrobe

import "errors"

var (
	// ErrNotFound marks a missing document. Reads treat it as data, not failure.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateWishlistLink rejects a wishlist item whose purchase link is
	// already saved for the owner. Checked before any write is issued.
	ErrDuplicateWishlistLink = errors.New("wishlist link already saved")

	// ErrCriticalSave marks a failed profile/subscription batch. Callers must
	// surface it; no partial success is implied.
	ErrCriticalSave = errors.New("critical persistence failure")

	// ErrDeletionFailed marks a failed analysis cascade. Callers must not
	// assume the analysis was removed.
	ErrDeletionFailed = errors.New("wardrobe analysis deletion failed")
)
