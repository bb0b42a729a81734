package sqlreplay

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/prashanthpai/sqlreplay/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	assert := require.New(t)

	for _, cfg := range []*Config{nil, {}} {
		r, err := NewRegistry(cfg)
		assert.Nil(r)
		assert.NotNil(err)
	}

	r, err := NewRegistry(newMemConfig())
	assert.Nil(err)
	assert.NotNil(r)
	assert.Nil(r.Current())
}

func TestRegistryNoNesting(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	r, err := NewRegistry(newMemConfig())
	assert.Nil(err)

	qc, err := r.Open(ctx, "outer", "")
	assert.Nil(err)
	assert.Equal(qc, r.Current())

	inner, err := r.Open(ctx, "inner", "")
	assert.Nil(inner)
	assert.True(errors.Is(err, ErrAlreadyInUse))
	assert.Contains(err.Error(), `"outer"`)
	assert.Equal(qc, r.Current())

	assert.Nil(r.Close(ctx))
	assert.Nil(r.Current())

	// closing without a current cache is a no-op
	assert.Nil(r.Close(ctx))

	inner, err = r.Open(ctx, "inner", "")
	assert.Nil(err)
	assert.Equal("inner", inner.Name())
	assert.Nil(r.Close(ctx))
}

func TestRegistryMemo(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	store := new(mocks.Store)
	store.On("Load", mock.Anything, "users").Return(nil, false, nil).Once()
	store.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	r, err := NewRegistry(&Config{Store: store})
	assert.Nil(err)

	first, err := r.Open(ctx, "users", "")
	assert.Nil(err)
	assert.Nil(first.Record(`SELECT 1`, nil, nil))
	assert.Nil(r.Close(ctx))

	// the second scope reuses the in-memory cache: no Load, and nothing new
	// to save
	second, err := r.Open(ctx, "users", "")
	assert.Nil(err)
	assert.True(first == second)
	assert.Equal(Replaying, second.Mode())
	assert.Nil(r.Close(ctx))

	assert.True(store.AssertExpectations(t))
}

func TestRegistryCloseIgnoresCancellation(t *testing.T) {
	assert := require.New(t)

	store := new(mocks.Store)
	store.On("Load", mock.Anything, "users").Return(nil, false, nil)
	store.On("Save", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(nil).Once()

	r, err := NewRegistry(&Config{Store: store})
	assert.Nil(err)

	ctx, cancel := context.WithCancel(context.Background())
	_, err = r.Open(ctx, "users", "")
	assert.Nil(err)

	cancel()
	assert.Nil(r.Close(ctx))
	assert.True(store.AssertExpectations(t))
}

func TestRegistryUse(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	cfg := newMemConfig()

	r, err := NewRegistry(cfg)
	assert.Nil(err)

	snap := newSnapshot(t, []string{"id"}, []driver.Value{1})
	err = r.Use(ctx, "users", "", func(ctx context.Context) error {
		qc := r.Current()
		assert.NotNil(qc)
		return qc.Record(`SELECT id FROM users`, nil, snap)
	})
	assert.Nil(err)
	assert.Nil(r.Current())

	f, ok, err := cfg.Store.Load(ctx, "users")
	assert.Nil(err)
	assert.True(ok)
	assert.Equal([]string{`SELECT id FROM users`}, f.Keys())
}

func TestRegistryUseClosesOnError(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	saveErr := errors.New("no space left on device")
	store := new(mocks.Store)
	store.On("Load", mock.Anything, "users").Return(nil, false, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(saveErr)

	r, err := NewRegistry(&Config{Store: store})
	assert.Nil(err)

	fnErr := errors.New("handler failed")
	err = r.Use(ctx, "users", "", func(ctx context.Context) error {
		return fnErr
	})
	assert.True(errors.Is(err, fnErr))
	assert.True(errors.Is(err, saveErr))
	assert.Nil(r.Current())
}

func TestRegistryUseClosesOnPanic(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	cfg := newMemConfig()

	r, err := NewRegistry(cfg)
	assert.Nil(err)

	assert.Panics(func() {
		_ = r.Use(ctx, "users", "", func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.Nil(r.Current())

	// the fixture was still saved on the way out
	_, ok, err := cfg.Store.Load(ctx, "users")
	assert.Nil(err)
	assert.True(ok)
}

func TestRegistryUseAlreadyInUse(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()

	r, err := NewRegistry(newMemConfig())
	assert.Nil(err)

	var called bool
	err = r.Use(ctx, "outer", "", func(ctx context.Context) error {
		return r.Use(ctx, "inner", "", func(ctx context.Context) error {
			called = true
			return nil
		})
	})
	assert.True(errors.Is(err, ErrAlreadyInUse))
	assert.False(called)
	assert.Nil(r.Current())
}

func TestRegistryDiscriminator(t *testing.T) {
	assert := require.New(t)
	ctx := context.Background()
	cfg := newMemConfig()

	r, err := NewRegistry(cfg)
	assert.Nil(err)

	assert.Nil(r.Use(ctx, "search", "d1", func(ctx context.Context) error { return nil }))

	f, ok, err := cfg.Store.Load(ctx, "search")
	assert.Nil(err)
	assert.True(ok)
	assert.Equal("d1", f.Discriminator)
	assert.Empty(f.Entries)
}
