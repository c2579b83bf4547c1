package dataset

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/KaramelBytes/enrolytics-cli/internal/analysis"
)

type countingLoader struct {
	calls atomic.Int32
	delay time.Duration
	fail  atomic.Bool
	gate  chan struct{}
}

func (c *countingLoader) LoadTable(ctx context.Context, kind Kind) (*Table, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.fail.Load() {
		return nil, errors.Mark(errors.New("boom"), analysis.ErrDataUnavailable)
	}
	s, _ := SchemaFor(kind)
	recs := []Record{{Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), State: "A", District: "X", Measures: [MaxMeasures]float64{1, 2, 3}}}
	return NewTable(s, recs, []string{"date"}, Stats{}), nil
}

func TestRepositorySingleFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := &countingLoader{delay: 50 * time.Millisecond}
	repo := NewWithLoader(l, time.Second)

	const callers = 32
	var wg sync.WaitGroup
	tables := make([]*Table, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tables[i], errs[i] = repo.Load(context.Background(), Enrolment)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), l.calls.Load(), "loader must run exactly once")
	for i := range tables {
		require.NoError(t, errs[i])
		assert.Same(t, tables[0], tables[i], "all callers observe the same snapshot")
	}
	assert.True(t, repo.Loaded(Enrolment))
	assert.Equal(t, int64(1), repo.LoadCount())

	// Warm path does not touch the loader.
	again, err := repo.Load(context.Background(), Enrolment)
	require.NoError(t, err)
	assert.Same(t, tables[0], again)
	assert.Equal(t, int32(1), l.calls.Load())
}

func TestRepositoryFailedLoadNotCached(t *testing.T) {
	l := &countingLoader{}
	l.fail.Store(true)
	repo := NewWithLoader(l, time.Second)

	_, err := repo.Load(context.Background(), Biometric)
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrDataUnavailable))
	assert.False(t, repo.Loaded(Biometric))

	l.fail.Store(false)
	tbl, err := repo.Load(context.Background(), Biometric)
	require.NoError(t, err)
	assert.Equal(t, Biometric, tbl.Kind())
	assert.Equal(t, int32(2), l.calls.Load())
}

func TestRepositoryShutdownDuringLoadDoesNotCache(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := &countingLoader{gate: make(chan struct{})}
	repo := NewWithLoader(l, time.Second)

	done := make(chan *Table)
	go func() {
		tbl, err := repo.Load(context.Background(), Enrolment)
		assert.NoError(t, err)
		done <- tbl
	}()
	require.Eventually(t, func() bool { return l.calls.Load() == 1 }, time.Second, time.Millisecond)

	repo.Shutdown()
	close(l.gate)
	assert.NotNil(t, <-done, "the waiting caller still gets its table")
	assert.False(t, repo.Loaded(Enrolment))

	_, err := repo.Load(context.Background(), Enrolment)
	require.NoError(t, err)
	assert.True(t, repo.Loaded(Enrolment))
	assert.Equal(t, int32(2), l.calls.Load())
}

func TestRepositoryUnknownKind(t *testing.T) {
	repo := NewWithLoader(&countingLoader{}, 0)
	_, err := repo.Load(context.Background(), Kind("payments"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrInvalidParameter))
}

func TestRepositoryTimeoutSurfacesDataUnavailable(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := &countingLoader{delay: time.Second}
	repo := NewWithLoader(l, 20*time.Millisecond)
	_, err := repo.Load(context.Background(), Demographic)
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrDataUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRepositoryCallerCancelDoesNotPoisonFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := &countingLoader{delay: 30 * time.Millisecond}
	repo := NewWithLoader(l, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tbl, err := repo.Load(ctx, Enrolment)
	require.NoError(t, err)
	assert.NotNil(t, tbl)
}

func TestRepositoryLoadAllAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := &countingLoader{}
	repo := NewWithLoader(l, time.Second)
	require.NoError(t, repo.Init(context.Background()))
	all, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int32(3), l.calls.Load())

	repo.Shutdown()
	for _, k := range Kinds() {
		assert.False(t, repo.Loaded(k))
	}
	_, err = repo.Load(context.Background(), Enrolment)
	require.NoError(t, err)
	assert.Equal(t, int32(4), l.calls.Load())
}
