package dataset

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
	"github.com/KaramelBytes/enrolytics-cli/internal/logger"
)

// Repository memoizes one immutable Table per kind. The first Load of a kind
// runs the loader under a single-flight group; every concurrent caller waits
// for and shares that one result. Later loads are a single atomic read.
// A failed load is not cached, and neither is a load that was in flight
// when Shutdown ran.
type Repository struct {
	loader  Loader
	timeout time.Duration

	group singleflight.Group
	slots map[Kind]*atomic.Pointer[Table]
	loads atomic.Int64

	// mu orders slot stores against Shutdown; gen counts Shutdown calls.
	mu  sync.Mutex
	gen uint64
}

// New returns a repository reading files described by opts.
func New(opts Options) *Repository {
	return NewWithLoader(NewFileLoader(opts), opts.LoadTimeout)
}

// NewWithLoader returns a repository over any Loader.
func NewWithLoader(l Loader, timeout time.Duration) *Repository {
	r := &Repository{
		loader:  l,
		timeout: timeout,
		slots:   make(map[Kind]*atomic.Pointer[Table], len(schemas)),
	}
	for _, k := range Kinds() {
		r.slots[k] = new(atomic.Pointer[Table])
	}
	return r
}

// Load returns the cached table for kind, loading it on first use.
func (r *Repository) Load(ctx context.Context, kind Kind) (*Table, error) {
	slot, ok := r.slots[kind]
	if !ok {
		return nil, ErrUnknownKind(string(kind))
	}
	if t := slot.Load(); t != nil {
		return t, nil
	}
	v, err, _ := r.group.Do(string(kind), func() (any, error) {
		if t := slot.Load(); t != nil {
			return t, nil
		}
		r.mu.Lock()
		gen := r.gen
		r.mu.Unlock()
		t, err := r.load(ctx, kind)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		if r.gen == gen {
			slot.Store(t)
		}
		r.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

func (r *Repository) load(ctx context.Context, kind Kind) (*Table, error) {
	// The flight is shared: one caller's cancellation must not fail the others.
	lctx := context.WithoutCancel(ctx)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(lctx, r.timeout)
		defer cancel()
	}
	start := time.Now()
	t, err := r.loader.LoadTable(lctx, kind)
	if err == nil && t == nil {
		err = errors.Newf("loader returned no table for %s", kind)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, analysis.ErrDataUnavailable) {
			err = errors.Mark(err, analysis.ErrDataUnavailable)
		}
		logger.Logger.Warnw("dataset load failed", logger.FieldKind, kind, logger.FieldError, err)
		return nil, errors.Wrapf(err, "load %s", kind)
	}
	r.loads.Add(1)
	st := t.Stats()
	logger.Logger.Infow("dataset loaded",
		logger.FieldKind, kind,
		logger.FieldRows, st.Rows,
		logger.FieldDropped, st.DroppedRows,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return t, nil
}

// LoadAll loads the three tables in parallel. The first error wins.
func (r *Repository) LoadAll(ctx context.Context) (map[Kind]*Table, error) {
	var mu sync.Mutex
	out := make(map[Kind]*Table, len(r.slots))
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range Kinds() {
		k := k
		g.Go(func() error {
			t, err := r.Load(gctx, k)
			if err != nil {
				return err
			}
			mu.Lock()
			out[k] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Init eagerly loads every table.
func (r *Repository) Init(ctx context.Context) error {
	_, err := r.LoadAll(ctx)
	return err
}

// Shutdown drops every cached table. Tables already handed out stay valid,
// and loads still running finish for their callers without being cached.
func (r *Repository) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	for k, slot := range r.slots {
		slot.Store(nil)
		r.group.Forget(string(k))
	}
}

// Loaded reports whether kind is cached.
func (r *Repository) Loaded(kind Kind) bool {
	slot, ok := r.slots[kind]
	return ok && slot.Load() != nil
}

// LoadCount is the number of successful loads since construction.
func (r *Repository) LoadCount() int64 { return r.loads.Load() }
