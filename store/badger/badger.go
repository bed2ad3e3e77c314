package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/internal/bitmap"
	"github.com/hupe1980/cash/internal/delta"
	"github.com/hupe1980/cash/internal/engine"
	"github.com/hupe1980/cash/model"
	"github.com/hupe1980/cash/permutation"
	"github.com/hupe1980/cash/store"
)

var (
	// ErrNotEmpty is returned when importing into a store that already holds points.
	ErrNotEmpty = errors.New("badger: store already holds points")

	// ErrNoPoints is returned by operations on a store without imported points.
	// It wraps store.ErrEmpty.
	ErrNoPoints = fmt.Errorf("badger: no points imported: %w", store.ErrEmpty)
)

var (
	_ store.Store       = (*Store)(nil)
	_ store.SizeHinter  = (*Store)(nil)
	_ store.Snapshotter = (*Store)(nil)
)

var (
	prefixPoint   = []byte("p/")
	prefixCluster = []byte("c/")
	keyDim        = []byte("m/dim")
	keyActive     = []byte("m/active")
	keyEnum       = []byte("m/enum")
	keyNext       = []byte("m/next")
)

// Options configures the BadgerDB store.
type Options struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger receives badger warnings and errors. nil means slog.Default().
	Logger *slog.Logger
}

// Store is a store.Store backed by BadgerDB.
type Store struct {
	db        *badgerdb.DB
	storeOpts []store.Option

	mu      sync.Mutex
	dim     int
	active  *bitmap.ActiveSet
	enum    permutation.Enumerator
	engine  *engine.Engine
	opts    store.Options
	minSize int
	closed  bool
}

// Open opens the database. An empty database must be filled with Import
// before the store is used.
func Open(bopts Options, opts ...store.Option) (*Store, error) {
	if !bopts.InMemory && bopts.Dir == "" {
		return nil, errors.New("badger: Options.Dir is required for on-disk mode")
	}
	dbOpts := badgerdb.DefaultOptions(bopts.Dir)
	if bopts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	logger := bopts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(slogAdapter{logger})

	db, err := badgerdb.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, storeOpts: opts}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New opens the database and imports points when it is empty.
func New(bopts Options, points []model.Point, opts ...store.Option) (*Store, error) {
	s, err := Open(bopts, opts...)
	if err != nil {
		return nil, err
	}
	if s.dim == 0 {
		if err := s.Import(context.Background(), points); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	return s.db.View(func(txn *badgerdb.Txn) error {
		var dim int
		if err := getMsgpack(txn, keyDim, &dim); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		var next model.ClusterID
		if err := getMsgpack(txn, keyNext, &next); err != nil {
			return err
		}
		raw, err := getValue(txn, keyActive)
		if err != nil {
			return err
		}
		active := bitmap.NewActiveSet()
		if err := active.UnmarshalBinary(raw); err != nil {
			return err
		}

		if err := s.init(dim, next, active); err != nil {
			return err
		}

		var state permutation.State
		if err := getMsgpack(txn, keyEnum, &state); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return s.enum.Restore(state)
	})
}

func (s *Store) init(dim int, next model.ClusterID, active *bitmap.ActiveSet) error {
	o, err := store.ApplyOptions(dim, s.storeOpts...)
	if err != nil {
		return err
	}
	s.dim = dim
	s.opts = o
	s.enum = o.Enumerator
	s.active = active
	s.engine = engine.New(engine.Options{Workers: o.Workers, Resources: o.Resources, NextClusterID: next})
	s.engine.SetMinSize(s.minSize)
	return nil
}

// Import writes points into an empty store.
func (s *Store) Import(_ context.Context, points []model.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}
	if s.dim != 0 {
		return ErrNotEmpty
	}
	dim, err := store.ValidatePoints(points)
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	active := bitmap.NewActiveSet()
	for _, p := range points {
		val, err := msgpack.Marshal(p.Coords)
		if err != nil {
			return err
		}
		if err := wb.Set(pointKey(p.ID), val); err != nil {
			return wrapErr(err)
		}
		active.Add(p.ID)
	}
	rawActive, err := active.MarshalBinary()
	if err != nil {
		return err
	}
	if err := wb.Set(keyActive, rawActive); err != nil {
		return wrapErr(err)
	}
	if err := setMsgpack(wb, keyNext, model.ClusterID(1)); err != nil {
		return err
	}
	// m/dim is written last; load treats a store without it as empty.
	if err := setMsgpack(wb, keyDim, dim); err != nil {
		return err
	}
	if err := wb.Flush(); err != nil {
		return wrapErr(err)
	}

	return s.init(dim, 1, active)
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) ready() error {
	if s.closed {
		return store.ErrClosed
	}
	if s.dim == 0 {
		return ErrNoPoints
	}
	return nil
}

// Dimension implements store.Store.
func (s *Store) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dim
}

// HintMinSize implements store.SizeHinter.
func (s *Store) HintMinSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minSize = n
	if s.engine != nil {
		s.engine.SetMinSize(n)
	}
}

// ActiveCount implements store.Store.
func (s *Store) ActiveCount(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.active.Len(), nil
}

// NextClusterID implements store.Store.
func (s *Store) NextClusterID(context.Context) (model.ClusterID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.engine.NextClusterID(), nil
}

// PermutationLeft implements store.Store.
func (s *Store) PermutationLeft(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enum.HasNext(), nil
}

// NextPermutation implements store.Store.
func (s *Store) NextPermutation(context.Context) (hough.Alpha, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.enum.Peek()
}

// AdvancePermutation implements store.Store. The new cursor is persisted
// before the call returns.
func (s *Store) AdvancePermutation(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	if !s.enum.HasNext() {
		return permutation.ErrExhausted
	}

	prev := s.enum.State()
	s.enum.Advance()
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return setMsgpack(txn, keyEnum, s.enum.State())
	})
	if err != nil {
		_ = s.enum.Restore(prev)
		return wrapErr(err)
	}
	return nil
}

// InsertDeltas implements store.Store.
func (s *Store) InsertDeltas(ctx context.Context, alpha hough.Alpha) (store.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return store.Report{}, err
	}
	if len(alpha) != s.dim-1 {
		return store.Report{}, fmt.Errorf("%w: alpha has %d angles, want %d", hough.ErrDimensionMismatch, len(alpha), s.dim-1)
	}

	points, err := s.activePoints()
	if err != nil {
		return store.Report{}, err
	}
	rep, err := s.engine.InsertDeltas(ctx, points, alpha)
	if errors.Is(err, delta.ErrNotEmpty) {
		return store.Report{}, fmt.Errorf("%w: %w", store.ErrDeltasPending, err)
	}
	if err != nil {
		return store.Report{}, err
	}
	return toReport(rep), nil
}

func (s *Store) activePoints() ([]model.Point, error) {
	points := make([]model.Point, 0, s.active.Len())
	err := s.db.View(func(txn *badgerdb.Txn) error {
		iterOpts := badgerdb.DefaultIteratorOptions
		iterOpts.Prefix = prefixPoint
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefixPoint); it.ValidForPrefix(prefixPoint); it.Next() {
			item := it.Item()
			id := model.PointID(binary.BigEndian.Uint32(item.Key()[len(prefixPoint):]))
			if !s.active.Contains(id) {
				continue
			}
			var coords []float64
			if err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &coords)
			}); err != nil {
				return err
			}
			points = append(points, model.Point{ID: id, Coords: coords})
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return points, nil
}

// ExtractClusters implements store.Store.
func (s *Store) ExtractClusters(ctx context.Context, eps float64, alpha hough.Alpha) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	return s.engine.ExtractClusters(ctx, eps, alpha)
}

// FilterClusters implements store.Store.
func (s *Store) FilterClusters(_ context.Context, minPts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	return s.engine.FilterClusters(minPts, func(id model.PointID) bool {
		return !s.active.Contains(id)
	})
}

// DeleteClusteredObjects implements store.Store.
func (s *Store) DeleteClusteredObjects(_ context.Context, pointer model.ClusterID) ([]model.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	accepted := s.engine.Pending(pointer)
	active := s.active.Clone()
	for _, c := range accepted {
		active.RemoveAll(c.Points)
	}
	rawActive, err := active.MarshalBinary()
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		for _, c := range accepted {
			if err := setMsgpack(txn, clusterKey(c.ID), c); err != nil {
				return err
			}
		}
		if err := txn.Set(keyActive, rawActive); err != nil {
			return err
		}
		return setMsgpack(txn, keyNext, s.engine.NextClusterID())
	})
	if err != nil {
		return nil, wrapErr(err)
	}

	s.active = active
	s.engine.Commit(pointer)
	return accepted, nil
}

// CleanDeltasTable implements store.Store.
func (s *Store) CleanDeltasTable(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	s.engine.Reset()
	return nil
}

// Clusters implements store.Store.
func (s *Store) Clusters(context.Context) ([]model.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.clusters()
}

func (s *Store) clusters() ([]model.Cluster, error) {
	var out []model.Cluster
	err := s.db.View(func(txn *badgerdb.Txn) error {
		iterOpts := badgerdb.DefaultIteratorOptions
		iterOpts.Prefix = prefixCluster
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefixCluster); it.ValidForPrefix(prefixCluster); it.Next() {
			var c model.Cluster
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &c)
			}); err != nil {
				return err
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return out, nil
}

// Active implements store.Store.
func (s *Store) Active(context.Context) ([]model.PointID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.active.IDs(), nil
}

// Snapshot implements store.Snapshotter.
func (s *Store) Snapshot(context.Context) (*store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	clusters, err := s.clusters()
	if err != nil {
		return nil, err
	}
	active, err := s.active.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &store.Snapshot{
		Dimension:     s.dim,
		Clusters:      clusters,
		Active:        active,
		Enumerator:    s.enum.State(),
		NextClusterID: s.engine.NextClusterID(),
	}, nil
}

// Restore implements store.Snapshotter. Committed clusters are replaced by
// those of the snapshot.
func (s *Store) Restore(_ context.Context, snap *store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	if snap.Dimension != s.dim {
		return fmt.Errorf("%w: snapshot dimension %d, store dimension %d", store.ErrDimension, snap.Dimension, s.dim)
	}

	active := bitmap.NewActiveSet()
	if err := active.UnmarshalBinary(snap.Active); err != nil {
		return err
	}
	prev := s.enum.State()
	if err := s.enum.Restore(snap.Enumerator); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		iterOpts := badgerdb.DefaultIteratorOptions
		iterOpts.Prefix = prefixCluster
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		var stale [][]byte
		for it.Seek(prefixCluster); it.ValidForPrefix(prefixCluster); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}

		for _, c := range snap.Clusters {
			if err := setMsgpack(txn, clusterKey(c.ID), c); err != nil {
				return err
			}
		}
		if err := txn.Set(keyActive, snap.Active); err != nil {
			return err
		}
		if err := setMsgpack(txn, keyEnum, snap.Enumerator); err != nil {
			return err
		}
		return setMsgpack(txn, keyNext, snap.NextClusterID)
	})
	if err != nil {
		_ = s.enum.Restore(prev)
		return wrapErr(err)
	}

	s.active = active
	s.engine = engine.New(engine.Options{
		Workers:       s.opts.Workers,
		Resources:     s.opts.Resources,
		NextClusterID: snap.NextClusterID,
	})
	s.engine.SetMinSize(s.minSize)
	return nil
}

func pointKey(id model.PointID) []byte {
	return binary.BigEndian.AppendUint32(append([]byte(nil), prefixPoint...), uint32(id))
}

func clusterKey(id model.ClusterID) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), prefixCluster...), uint64(id))
}

type setter interface {
	Set(key, val []byte) error
}

func setMsgpack(w setter, key []byte, v any) error {
	val, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	return w.Set(key, val)
}

func getValue(txn *badgerdb.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func getMsgpack(txn *badgerdb.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, v)
	})
}

// wrapErr marks badger errors that may go away on retry.
func wrapErr(err error) error {
	switch {
	case errors.Is(err, badgerdb.ErrConflict),
		errors.Is(err, badgerdb.ErrBlockedWrites),
		errors.Is(err, badgerdb.ErrTxnTooBig):
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	case errors.Is(err, badgerdb.ErrDBClosed):
		return fmt.Errorf("%w: %w", store.ErrClosed, err)
	default:
		return err
	}
}

func toReport(rep delta.Report) store.Report {
	out := store.Report{Inserted: rep.Inserted}
	for _, sk := range rep.Skipped {
		out.Skipped = append(out.Skipped, model.Delta{Point: sk.Point, Value: sk.Value})
	}
	return out
}

// slogAdapter routes badger logs to slog, dropping info and debug output.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Errorf(f string, v ...any) {
	a.l.Error(fmt.Sprintf(f, v...), "component", "badger")
}

func (a slogAdapter) Warningf(f string, v ...any) {
	a.l.Warn(fmt.Sprintf(f, v...), "component", "badger")
}

func (slogAdapter) Infof(string, ...any)  {}
func (slogAdapter) Debugf(string, ...any) {}
