package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
)

type result struct {
	data string
	err  error
}

// gatedLoader returns "data-<param>" once the test releases that param.
// It ignores cancellation to model a response that arrives anyway.
type gatedLoader struct {
	started chan string
	release map[string]chan struct{}
}

func newGatedLoader(params ...string) *gatedLoader {
	g := &gatedLoader{
		started: make(chan string, len(params)),
		release: make(map[string]chan struct{}, len(params)),
	}
	for _, p := range params {
		g.release[p] = make(chan struct{})
	}
	return g
}

func (g *gatedLoader) load(_ context.Context, p string) (string, error) {
	g.started <- p
	<-g.release[p]
	return "data-" + p, nil
}

func loadAsync(r *Resource[string, string], p string) <-chan result {
	out := make(chan result, 1)
	go func() {
		d, err := r.Load(context.Background(), p)
		out <- result{d, err}
	}()
	return out
}

func waitStarted(t *testing.T, g *gatedLoader, want string) {
	t.Helper()
	select {
	case got := <-g.started:
		require.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatalf("load %q did not start", want)
	}
}

func TestResource_Load(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })

	r := New(func(_ context.Context, p int) ([]int, error) {
		return []int{p, p * 2}, nil
	})

	data, err := r.Load(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 6}, data)

	st := r.State()
	assert.Equal(t, []int{3, 6}, st.Data)
	assert.Equal(t, 3, st.Params)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Err)
	assert.True(t, st.Loaded)
	assert.Equal(t, fake.Now(), st.UpdatedAt)
}

func TestResource_ErrorKeepsPreviousData(t *testing.T) {
	fail := false
	r := New(func(_ context.Context, _ string) (string, error) {
		if fail {
			return "", errors.New("network unreachable")
		}
		return "ok", nil
	})

	_, err := r.Load(context.Background(), "x")
	require.NoError(t, err)

	fail = true
	_, err = r.Refetch(context.Background())
	require.Error(t, err)

	st := r.State()
	assert.Equal(t, "network unreachable", st.Err)
	assert.Equal(t, "ok", st.Data)
	assert.False(t, st.Loading)

	fail = false
	_, err = r.Refetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, r.State().Err, "success clears the error")
}

func TestResource_RefetchReusesParams(t *testing.T) {
	var seen []string
	r := New(func(_ context.Context, p string) (string, error) {
		seen = append(seen, p)
		return p, nil
	})

	_, _ = r.Load(context.Background(), "CAINTA")
	_, _ = r.Refetch(context.Background())

	assert.Equal(t, []string{"CAINTA", "CAINTA"}, seen)
}

func TestResource_StaleResponseDoesNotOverwrite(t *testing.T) {
	g := newGatedLoader("old", "new")
	var stale atomic.Int32
	r := New(g.load, WithStaleHook(func() { stale.Add(1) }))

	oldRes := loadAsync(r, "old")
	waitStarted(t, g, "old")
	newRes := loadAsync(r, "new")
	waitStarted(t, g, "new")

	close(g.release["new"])
	got := <-newRes
	require.NoError(t, got.err)
	assert.Equal(t, "data-new", got.data)

	// The superseded response resolves after the newer one.
	close(g.release["old"])
	got = <-oldRes
	require.ErrorIs(t, got.err, ErrSuperseded)

	st := r.State()
	assert.Equal(t, "data-new", st.Data)
	assert.Equal(t, "new", st.Params)
	assert.False(t, st.Loading)
	assert.Equal(t, int32(1), stale.Load())
}

func TestResource_StaleResponseBeforeNewer(t *testing.T) {
	g := newGatedLoader("old", "new")
	r := New(g.load)

	oldRes := loadAsync(r, "old")
	waitStarted(t, g, "old")
	newRes := loadAsync(r, "new")
	waitStarted(t, g, "new")

	close(g.release["old"])
	require.ErrorIs(t, (<-oldRes).err, ErrSuperseded)
	assert.True(t, r.State().Loading, "newer load still in flight")
	assert.False(t, r.State().Loaded)

	close(g.release["new"])
	require.NoError(t, (<-newRes).err)
	assert.Equal(t, "data-new", r.State().Data)
}

func TestResource_NewLoadCancelsPrevious(t *testing.T) {
	started := make(chan struct{}, 2)
	r := New(func(ctx context.Context, p string) (string, error) {
		started <- struct{}{}
		if p == "slow" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return p, nil
	})

	slow := loadAsync(r, "slow")
	<-started

	data, err := r.Load(context.Background(), "fast")
	require.NoError(t, err)
	assert.Equal(t, "fast", data)

	select {
	case res := <-slow:
		require.ErrorIs(t, res.err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("previous load was not cancelled")
	}
	assert.Equal(t, "fast", r.State().Data)
	assert.Empty(t, r.State().Err)
}

func TestResource_CloseCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	r := New(func(ctx context.Context, _ string) (string, error) {
		close(started)
		<-ctx.Done()
		return "late", nil
	})

	res := loadAsync(r, "x")
	<-started
	r.Close()

	select {
	case got := <-res:
		require.ErrorIs(t, got.err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("close did not cancel the load")
	}
	assert.Empty(t, r.State().Data)
	assert.False(t, r.State().Loading)

	_, err := r.Load(context.Background(), "y")
	require.ErrorIs(t, err, ErrClosed)

	r.Close() // idempotent
}

func TestResource_CallerContextCancels(t *testing.T) {
	r := New(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Load(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, context.Canceled.Error(), r.State().Err)
}
