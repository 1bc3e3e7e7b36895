package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore keeps embeddings in redis as little-endian float32 blobs
type RedisStore struct {
	rdb *goredis.Client
}

// RedisOptions configures NewRedisStore
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects and pings redis
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// Get implements Store
func (rs *RedisStore) Get(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := rs.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	vector, err := decodeVector(raw)
	if err != nil {
		return nil, false, err
	}
	return vector, true, nil
}

// Set implements Store
func (rs *RedisStore) Set(ctx context.Context, key string, vector []float32, ttl time.Duration) error {
	return rs.rdb.Set(ctx, key, encodeVector(vector), ttl).Err()
}

// Close closes the client
func (rs *RedisStore) Close() error {
	return rs.rdb.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding blob of %d bytes", len(raw))
	}
	v := make([]float32, len(raw)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return v, nil
}
