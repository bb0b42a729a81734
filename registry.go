package sqlreplay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/prashanthpai/sqlreplay/fixture"
	"github.com/puzpuzpuz/xsync/v3"
	log "github.com/sirupsen/logrus"
)

// Config is the configuration passed to NewRegistry and Load.
type Config struct {
	// Store holds the fixtures. This is a required field and cannot be nil.
	Store fixture.Store
	// MissPolicy decides what happens to replayed queries which are not in
	// the fixture. Defaults to AutoExtend.
	MissPolicy MissPolicy
	// MatchOptions is the allow-list of option names compared on replay.
	// Defaults to DefaultMatchOptions.
	MatchOptions []string
	// Logger defaults to the logrus standard logger.
	Logger log.FieldLogger
}

func (c *Config) withDefaults() (Config, error) {
	if c == nil {
		return Config{}, fmt.Errorf("config can't be nil")
	}
	if c.Store == nil {
		return Config{}, fmt.Errorf("store must be set in Config")
	}

	cfg := *c
	if cfg.MatchOptions == nil {
		cfg.MatchOptions = DefaultMatchOptions
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
	return cfg, nil
}

// Registry holds the single current QueryCache of a process, and remembers
// every QueryCache by name so that later scopes of the same name reuse its
// in-memory state.
type Registry struct {
	config Config
	memo   *xsync.MapOf[string, *QueryCache]

	mu      sync.Mutex
	current *QueryCache
	scope   *log.Entry
}

// NewRegistry returns a new Registry using config.
func NewRegistry(config *Config) (*Registry, error) {
	cfg, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	return &Registry{
		config: cfg,
		memo:   xsync.NewMapOf[string, *QueryCache](),
	}, nil
}

// Open makes the QueryCache of name current and returns it. It fails with
// ErrAlreadyInUse if another QueryCache is current.
func (r *Registry) Open(ctx context.Context, name, discriminator string) (*QueryCache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return nil, fmt.Errorf("%w by %q", ErrAlreadyInUse, r.current.Name())
	}

	qc, ok := r.memo.Load(name)
	if !ok {
		var err error
		if qc, err = Load(ctx, &r.config, name, discriminator); err != nil {
			return nil, err
		}
	}

	r.current = qc
	r.scope = r.config.Logger.WithFields(log.Fields{
		"scope": uuid.New().String(),
		"name":  name,
		"mode":  qc.Mode(),
	})
	r.scope.Debug("opened scope")

	return qc, nil
}

// Close finishes the current QueryCache, persisting its fixture if it
// recorded, and clears the current slot. Close without a current QueryCache
// is a no-op.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	qc, scope := r.current, r.scope
	r.current, r.scope = nil, nil
	r.mu.Unlock()

	if qc == nil {
		return nil
	}

	err := qc.Finish(context.WithoutCancel(ctx))
	r.memo.Store(qc.Name(), qc)

	if err != nil {
		scope.WithField("err", err).Error("failed to finish query cache")
	} else {
		scope.Debug("closed scope")
	}
	return err
}

// Current returns the current QueryCache, or nil.
func (r *Registry) Current() *QueryCache {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Use opens the QueryCache of name, runs fn and closes the scope. The scope
// is closed however fn returns, including by panic. Errors of fn and of
// closing are joined.
func (r *Registry) Use(ctx context.Context, name, discriminator string, fn func(ctx context.Context) error) (err error) {
	if _, err = r.Open(ctx, name, discriminator); err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	return fn(ctx)
}
