package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestKey(t *testing.T) {
	c := &Cache{Prefix: "p:"}
	assert.Equal(t, "p:user:42", c.Key("user", "42"))
}

func TestGetOrLoadJSON_LoadsOnceThenHits(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	var calls int32

	load := func(context.Context) (*item, error) {
		atomic.AddInt32(&calls, 1)
		return &item{ID: "42", Name: "alice"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrLoadJSON(c, ctx, c.Key("user", "42"), time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Name)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.True(t, mr.Exists(c.Key("user", "42")))
	assert.Equal(t, time.Minute, mr.TTL(c.Key("user", "42")))
}

func TestGetOrLoadJSON_ErrorNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("not found")

	_, err := GetOrLoadJSON(c, context.Background(), "k", time.Minute, func(context.Context) (*item, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestGetOrLoad_RedisDownFallsBackToLoader(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	b, err := c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		return []byte(`"v"`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, `"v"`, string(b))
}

func TestGetOrLoadJSON_CorruptEntryReloaded(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := c.Key("user", "7")
	require.NoError(t, mr.Set(key, "{not json"))

	got, err := GetOrLoadJSON(c, ctx, key, time.Minute, func(context.Context) (*item, error) {
		return &item{ID: "7", Name: "bob"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Name)

	raw, err := mr.Get(key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"7","name":"bob"}`, raw)
}
