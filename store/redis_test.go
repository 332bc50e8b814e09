package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr, client
}

func TestRedisStore(t *testing.T) {
	mr, client := newTestRedis(t)
	defer client.Close()
	s := NewRedis(client, "test", "")
	defer s.Close()
	exerciseStore(t, s)
	assert.True(t, mr.Exists("test:default"))
}

func TestRedisStoreCorruptValue(t *testing.T) {
	mr, client := newTestRedis(t)
	defer client.Close()
	require.NoError(t, mr.Set("doc", "\xc1garbage"))
	doc, err := NewRedis(client, "", "doc").Load(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, doc)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	defer client.Close()
	s := NewRedis(client, "test", "")
	mr.Close()
	_, err := s.Load(context.Background())
	assert.True(t, errors.Is(err, ErrIO))
	err = s.Save(context.Background(), sampleDocument())
	assert.True(t, errors.Is(err, ErrIO))
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := OpenRedis(context.Background(), "redis://"+mr.Addr(), "app", "cache")
	require.NoError(t, err)
	exerciseStore(t, s)
	assert.NoError(t, s.Close())

	_, err = OpenRedis(context.Background(), "not a url", "", "")
	assert.True(t, errors.Is(err, ErrIO))
}
