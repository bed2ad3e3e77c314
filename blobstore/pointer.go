package blobstore

import (
	"context"
	"errors"
	"sync"
)

// Pointer stores small named references, such as the CURRENT checkpoint of a run.
type Pointer interface {
	// Load returns the value of key, or ErrNotFound.
	Load(ctx context.Context, key string) (string, error)

	// CompareAndSwap sets key to value if it currently holds old. An empty old
	// means key must not exist yet. ErrConflict is returned otherwise.
	CompareAndSwap(ctx context.Context, key, old, value string) error
}

// BlobPointer implements Pointer on top of a BlobStore.
//
// The compare and the write are serialised within the process only; use a
// store with conditional writes (s3.DDBCommitStore) when several processes
// may advance the same key.
type BlobPointer struct {
	store BlobStore
	mu    sync.Mutex
}

// NewBlobPointer returns a Pointer keeping each key as a blob of the same name.
func NewBlobPointer(store BlobStore) *BlobPointer {
	return &BlobPointer{store: store}
}

// Load implements Pointer.
func (p *BlobPointer) Load(ctx context.Context, key string) (string, error) {
	data, err := ReadAll(ctx, p.store, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CompareAndSwap implements Pointer.
func (p *BlobPointer) CompareAndSwap(ctx context.Context, key, old, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur, err := p.Load(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if cur != old {
		return ErrConflict
	}
	return p.store.Put(ctx, key, []byte(value))
}
