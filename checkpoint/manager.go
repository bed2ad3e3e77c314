package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/cash/blobstore"
	"github.com/hupe1980/cash/codec"
	"github.com/hupe1980/cash/internal/compress"
	"github.com/hupe1980/cash/resource"
)

// ErrNotFound is returned when a run has no checkpoint.
var ErrNotFound = errors.New("checkpoint: not found")

const currentName = "CURRENT"

// Options configures a Manager.
type Options struct {
	// Prefix is the root of all checkpoint blobs. Default: "checkpoints".
	Prefix string

	// Codec encodes new checkpoints. Default: codec.Default.
	Codec codec.Codec

	// Compression of new checkpoints. Default: compress.LZ4.
	Compression compress.Type

	// Pointer stores the CURRENT references. Default: the blob store itself
	// when it implements blobstore.Pointer, otherwise a blobstore.BlobPointer.
	Pointer blobstore.Pointer

	// Resources limits checkpoint IO throughput. May be nil.
	Resources *resource.Controller
}

// Manager writes and reads checkpoints in a blob store.
type Manager struct {
	store   blobstore.BlobStore
	pointer blobstore.Pointer
	opts    Options

	mu   sync.Mutex
	head map[string]string // run -> CURRENT value written by this manager
}

// NewManager creates a Manager on top of store.
func NewManager(store blobstore.BlobStore, optFns ...func(*Options)) *Manager {
	opts := Options{
		Prefix:      "checkpoints",
		Codec:       codec.Default,
		Compression: compress.LZ4,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	pointer := opts.Pointer
	if pointer == nil {
		if p, ok := store.(blobstore.Pointer); ok {
			pointer = p
		} else {
			pointer = blobstore.NewBlobPointer(store)
		}
	}

	return &Manager{
		store:   store,
		pointer: pointer,
		opts:    opts,
		head:    make(map[string]string),
	}
}

func (m *Manager) runDir(runID string) string {
	return path.Join(m.opts.Prefix, runID)
}

func (m *Manager) currentKey(runID string) string {
	return path.Join(m.runDir(runID), currentName)
}

// Name returns the blob name of the checkpoint of runID after iteration.
func (m *Manager) Name(runID string, iteration int) string {
	return path.Join(m.runDir(runID), fmt.Sprintf("%010d.ckpt", iteration))
}

// Save writes cp and moves the CURRENT pointer of its run to it.
// It returns the blob name. blobstore.ErrConflict means another writer
// advanced the run since this manager last did.
func (m *Manager) Save(ctx context.Context, cp *Checkpoint) (string, error) {
	if cp.RunID == "" || strings.Contains(cp.RunID, "/") {
		return "", fmt.Errorf("checkpoint: invalid run id %q", cp.RunID)
	}

	var buf bytes.Buffer
	w := resource.NewRateLimitedWriter(ctx, &buf, m.opts.Resources)
	if err := Encode(w, cp, m.opts.Codec, m.opts.Compression); err != nil {
		return "", err
	}

	name := m.Name(cp.RunID, cp.Iteration)
	if err := m.store.Put(ctx, name, buf.Bytes()); err != nil {
		return "", fmt.Errorf("checkpoint: put %s: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.head[cp.RunID]
	if !ok {
		cur, err := m.pointer.Load(ctx, m.currentKey(cp.RunID))
		if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			return "", err
		}
		old = cur
	}
	if err := m.pointer.CompareAndSwap(ctx, m.currentKey(cp.RunID), old, name); err != nil {
		return "", fmt.Errorf("checkpoint: advance %s: %w", m.currentKey(cp.RunID), err)
	}
	m.head[cp.RunID] = name
	return name, nil
}

// Load returns the checkpoint CURRENT points to.
func (m *Manager) Load(ctx context.Context, runID string) (*Checkpoint, error) {
	name, err := m.pointer.Load(ctx, m.currentKey(runID))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return m.LoadName(ctx, name)
}

// LoadName reads the checkpoint stored under name.
func (m *Manager) LoadName(ctx context.Context, name string) (*Checkpoint, error) {
	data, err := blobstore.ReadAll(ctx, m.store, name)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return Decode(resource.NewRateLimitedReader(ctx, bytes.NewReader(data), m.opts.Resources))
}

// List returns the checkpoint names of runID, oldest first.
func (m *Manager) List(ctx context.Context, runID string) ([]string, error) {
	names, err := m.store.List(ctx, m.runDir(runID)+"/")
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		if strings.HasSuffix(n, ".ckpt") {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Runs returns the ids of all runs with at least one blob.
func (m *Manager) Runs(ctx context.Context) ([]string, error) {
	prefix := m.opts.Prefix + "/"
	names, err := m.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var runs []string
	for _, n := range names {
		run, _, ok := strings.Cut(strings.TrimPrefix(n, prefix), "/")
		if !ok || run == "" {
			continue
		}
		if len(runs) == 0 || runs[len(runs)-1] != run {
			runs = append(runs, run)
		}
	}
	slices.Sort(runs)
	return slices.Compact(runs), nil
}

// Prune deletes all checkpoints of runID except the keep most recent ones.
// The checkpoint CURRENT points to is never deleted.
func (m *Manager) Prune(ctx context.Context, runID string, keep int) (int, error) {
	names, err := m.List(ctx, runID)
	if err != nil {
		return 0, err
	}
	current, err := m.pointer.Load(ctx, m.currentKey(runID))
	if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return 0, err
	}

	deleted := 0
	for i := 0; i < len(names)-max(keep, 0); i++ {
		if names[i] == current {
			continue
		}
		if err := m.store.Delete(ctx, names[i]); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
