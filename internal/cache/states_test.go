package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/esim-catalog-service/internal/apperror"
)

func TestStates_LoadsOnceThenServesLoaded(t *testing.T) {
	s := NewStates[int](time.Minute)
	var calls int32
	load := func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	assert.Equal(t, StateIdle, s.State("k"))
	v, err := s.Load(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, StateLoaded, s.State("k"))

	v, err = s.Load(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStates_ConcurrentCallersShareOneLoad(t *testing.T) {
	s := NewStates[string](time.Minute)
	release := make(chan struct{})
	var calls int32
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "bundles", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := s.Load(context.Background(), "k", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return s.State("k") == StateLoading }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "bundles", r)
	}
}

func TestStates_ErrorIsRetried(t *testing.T) {
	s := NewStates[int](time.Minute)
	boom := errors.New("backend down")

	_, err := s.Load(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateError, s.State("k"))

	v, err := s.Load(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestStates_ExpiryTriggersReload(t *testing.T) {
	s := NewStates[int](time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	var calls int32
	load := func(context.Context) (int, error) { return int(atomic.AddInt32(&calls, 1)), nil }

	_, _ = s.Load(context.Background(), "k", load)
	now = now.Add(61 * time.Second)
	v, err := s.Load(context.Background(), "k", load)

	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestStates_Invalidate(t *testing.T) {
	s := NewStates[int](time.Minute)
	load := func(context.Context) (int, error) { return 1, nil }
	_, _ = s.Load(context.Background(), "a", load)
	_, _ = s.Load(context.Background(), "b", load)

	s.Invalidate("a")
	assert.Equal(t, StateIdle, s.State("a"))
	assert.Equal(t, StateLoaded, s.State("b"))

	assert.Equal(t, 1, s.InvalidateAll())
	assert.Equal(t, StateIdle, s.State("b"))
}

func TestStates_WaiterHonoursOwnContext(t *testing.T) {
	s := NewStates[int](time.Minute)
	release := make(chan struct{})
	defer close(release)

	go func() {
		_, _ = s.Load(context.Background(), "k", func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
	}()
	require.Eventually(t, func() bool { return s.State("k") == StateLoading }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Load(ctx, "k", func(context.Context) (int, error) { return 2, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStates_PanickingLoadReleasesWaiters(t *testing.T) {
	s := NewStates[int](time.Minute)
	release := make(chan struct{})

	loaderErr := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), "k", func(context.Context) (int, error) {
			<-release
			panic("decoder blew up")
		})
		loaderErr <- err
	}()
	require.Eventually(t, func() bool { return s.State("k") == StateLoading }, time.Second, time.Millisecond)

	waiterErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := s.Load(ctx, "k", func(context.Context) (int, error) { return 0, nil })
		waiterErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	err := <-loaderErr
	assert.True(t, apperror.IsType(err, apperror.TypeInternal))
	err = <-waiterErr
	assert.True(t, apperror.IsType(err, apperror.TypeInternal), "waiter gets the load error, not its deadline")
	assert.Equal(t, StateError, s.State("k"))

	v, err := s.Load(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
