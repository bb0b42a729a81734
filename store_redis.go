package sqlreplay

import (
	"context"

	redis "github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/prashanthpai/sqlreplay/fixture"
)

// Redis implements fixture.Store to keep fixtures in redis, using go-redis
// as the redis client library. Fixtures shared through redis let several
// machines replay the same recording.
type Redis struct {
	c         redis.UniversalClient
	keyPrefix string
	codec     fixture.Codec
}

var _ fixture.Store = &Redis{} // Redis is-a fixture.Store.

// Load gets a fixture from redis. Returns pointer to the fixture, a boolean
// which represents whether it exists or not and an error.
func (r *Redis) Load(ctx context.Context, name string) (*fixture.Fixture, bool, error) {
	b, err := r.c.Get(ctx, r.keyPrefix+name).Bytes()
	switch err {
	case nil:
		f, err := r.codec.Unmarshal(b)
		if err != nil {
			return nil, true, errors.WithMessagef(err, "decoding fixture %q", name)
		}
		return f, true, nil
	case redis.Nil:
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// Save sets the given fixture into redis without expiry.
func (r *Redis) Save(ctx context.Context, f *fixture.Fixture) error {
	b, err := r.codec.Marshal(f)
	if err != nil {
		return errors.WithMessagef(err, "encoding fixture %q", f.Name)
	}

	_, err = r.c.Set(ctx, r.keyPrefix+f.Name, b, 0).Result()
	return err
}

// NewRedis creates a new instance of redis backend using go-redis client.
// All keys created in redis by sqlreplay will start with keyPrefix. A nil
// codec defaults to fixture.Msgpack.
func NewRedis(c redis.UniversalClient, keyPrefix string, codec fixture.Codec) *Redis {
	if codec == nil {
		codec = fixture.Msgpack
	}
	return &Redis{
		c:         c,
		keyPrefix: keyPrefix,
		codec:     codec,
	}
}
