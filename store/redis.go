package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the document as a single msgpack value under one Redis key.
type RedisStore struct {
	client       *redis.Client
	key          string
	ownsClient   bool
	queryTimeout time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedis returns a Store that keeps the document under prefix:name.
// The caller owns the redis.Client lifecycle, Close is a no-op on the client.
func NewRedis(client *redis.Client, prefix string, name string) *RedisStore {
	if name == "" {
		name = DefaultDocumentName
	}
	key := name
	if prefix != "" {
		key = prefix + ":" + name
	}
	return &RedisStore{client: client, key: key, queryTimeout: DefaultQueryTimeout}
}

// OpenRedis parses url, connects and returns a Store that closes the client on Close.
func OpenRedis(ctx context.Context, url string, prefix string, name string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, ioError(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, ioError(err, "connect to redis")
	}
	s := NewRedis(client, prefix, name)
	s.ownsClient = true
	return s, nil
}

func (s *RedisStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.queryTimeout)
}

func (s *RedisStore) Location() string {
	return "redis://" + s.client.Options().Addr + "/" + s.key
}

func (s *RedisStore) Load(ctx context.Context) (Document, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	body, err := s.client.Get(qctx, s.key).Bytes()
	if err == redis.Nil {
		return Document{}, nil
	}
	if err != nil {
		return nil, ioError(err, "load %s", s.key)
	}
	return decodeMsgpack(body), nil
}

func (s *RedisStore) Save(ctx context.Context, doc Document) error {
	body, err := encodeMsgpack(doc)
	if err != nil {
		return err
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if err := s.client.Set(qctx, s.key, body, 0).Err(); err != nil {
		return ioError(err, "save %s", s.key)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}
