package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	c, err := NewCache(client, time.Minute)
	require.NoError(t, err)
	return c, mr
}

func TestNewCache_NilClient(t *testing.T) {
	_, err := NewCache(nil, time.Minute)
	assert.Error(t, err)
}

func TestRemember_LoadsOnceThenHits(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var loads int32
	load := func(context.Context) ([]item, error) {
		atomic.AddInt32(&loads, 1)
		return []item{{Name: "a"}}, nil
	}

	got, err := Remember(ctx, c, "items_cache", load)
	require.NoError(t, err)
	assert.Equal(t, []item{{Name: "a"}}, got)
	assert.True(t, mr.Exists("items_cache"))

	got, err = Remember(ctx, c, "items_cache", load)
	require.NoError(t, err)
	assert.Equal(t, []item{{Name: "a"}}, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestRemember_ErrorIsNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("db down")

	_, err := Remember(context.Background(), c, "k", func(context.Context) (item, error) {
		return item{}, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestRemember_CoalescesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache(t)

	release := make(chan struct{})
	var loads int32
	load := func(context.Context) (item, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return item{Name: "x"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Remember(context.Background(), c, "hot", load)
			assert.NoError(t, err)
			assert.Equal(t, "x", got.Name)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestRemember_CancelledCallerDoesNotFailOthers(t *testing.T) {
	c, mr := newTestCache(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var loads int32
	load := func(ctx context.Context) (item, error) {
		atomic.AddInt32(&loads, 1)
		close(started)
		select {
		case <-release:
			return item{Name: "x"}, nil
		case <-ctx.Done():
			return item{}, ctx.Err()
		}
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := Remember(firstCtx, c, "shared", load)
		first <- err
	}()
	<-started

	type result struct {
		value item
		err   error
	}
	second := make(chan result, 1)
	go func() {
		v, err := Remember(context.Background(), c, "shared", load)
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "x", got.value.Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	assert.True(t, mr.Exists("shared"))
}

func TestDeleteAll(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("appointments_cache:a", "1"))
	require.NoError(t, mr.Set("appointments_cache:b", "1"))
	require.NoError(t, mr.Set("patients_cache", "1"))

	require.NoError(t, c.DeleteAll(context.Background(), "appointments_cache*"))

	assert.False(t, mr.Exists("appointments_cache:a"))
	assert.False(t, mr.Exists("appointments_cache:b"))
	assert.True(t, mr.Exists("patients_cache"))
}
