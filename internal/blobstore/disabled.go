package blobstore

import "context"

type disabledStore struct{}

// NewDisabledStore returns a store whose engine is permanently unavailable.
// Used when the configured engine cannot be opened: the reference codec then
// passes image data through untouched instead of deduplicating it locally.
func NewDisabledStore() Store {
	return disabledStore{}
}

func (disabledStore) Put(context.Context, []byte) (string, error) {
	return "", ErrUnavailable
}

func (disabledStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (disabledStore) Delete(context.Context, string) error {
	return nil
}
