package sqlreplay

import (
	"context"
	"database/sql/driver"
	"fmt"
	"sync/atomic"

	"github.com/ngrok/sqlmw"
	"github.com/prashanthpai/sqlreplay/fixture"
)

// InterceptorConfig is the configuration passed to NewInterceptor for
// creating new Interceptor instances.
type InterceptorConfig struct {
	// Registry provides the current QueryCache. This is a required field and
	// cannot be nil.
	Registry *Registry
	// Options are the connection-level query options. Inline attributes and
	// options attached with WithOptions take precedence over them.
	Options fixture.Options
	// IsRead decides which queries go through the current QueryCache. All
	// other queries are always executed live. Defaults to IsSelect.
	IsRead func(query string) bool
	// OnError is called with every error returned from a cached query,
	// before it is returned to the caller.
	OnError func(error)
}

// Interceptor is a ngrok/sqlmw interceptor that routes read queries through
// the current QueryCache of a Registry: recorded live while the cache
// records, answered from the fixture while it replays.
type Interceptor struct {
	registry *Registry
	options  fixture.Options
	isRead   func(query string) bool
	onErr    func(error)
	stats    Stats
	disabled bool
	sqlmw.NullInterceptor
}

var _ sqlmw.Interceptor = (*Interceptor)(nil)

// NewInterceptor returns a new instance of sqlreplay interceptor initialised
// with the provided config.
func NewInterceptor(config *InterceptorConfig) (*Interceptor, error) {
	if config == nil {
		return nil, fmt.Errorf("config can't be nil")
	}

	if config.Registry == nil {
		return nil, fmt.Errorf("registry must be set in InterceptorConfig")
	}

	if config.IsRead == nil {
		config.IsRead = IsSelect
	}

	return &Interceptor{
		registry: config.Registry,
		options:  config.Options,
		isRead:   config.IsRead,
		onErr:    config.OnError,
	}, nil
}

// Driver returns the supplied driver.Driver wrapped so that all of its
// queries are intercepted. Any query issued without a context is not
// intercepted.
func (i *Interceptor) Driver(d driver.Driver) driver.Driver {
	return sqlmw.Driver(d, i)
}

// Enable enables the interceptor. Interceptor instance is enabled by default
// on creation.
func (i *Interceptor) Enable() {
	i.disabled = false
}

// Disable disables the interceptor resulting in cache bypass. All queries
// would go directly to the SQL backend.
func (i *Interceptor) Disable() {
	i.disabled = true
}

// StmtQueryContext intecepts database/sql's stmt.QueryContext calls from a prepared statement.
func (i *Interceptor) StmtQueryContext(ctx context.Context, conn driver.StmtQueryContext, query string, args []driver.NamedValue) (driver.Rows, error) {
	return i.intercept(ctx, query, args, func(ctx context.Context) (driver.Rows, error) {
		return conn.QueryContext(ctx, args)
	})
}

// ConnQueryContext intecepts database/sql's DB.QueryContext Conn.QueryContext calls.
func (i *Interceptor) ConnQueryContext(ctx context.Context, conn driver.QueryerContext, query string, args []driver.NamedValue) (driver.Rows, error) {
	return i.intercept(ctx, query, args, func(ctx context.Context) (driver.Rows, error) {
		return conn.QueryContext(ctx, query, args)
	})
}

func (i *Interceptor) intercept(ctx context.Context, query string, args []driver.NamedValue, live func(context.Context) (driver.Rows, error)) (driver.Rows, error) {
	if i.disabled {
		return live(ctx)
	}

	qc := i.registry.Current()
	if qc == nil || !i.isRead(query) {
		atomic.AddUint64(&i.stats.Bypassed, 1)
		return live(ctx)
	}

	stmt := renderStatement(query, args)
	opts := mergeOptions(i.options, getAttrs(query), OptionsFrom(ctx))
	exec := func(ctx context.Context) (*fixture.Snapshot, error) {
		rows, err := live(ctx)
		if err != nil {
			return nil, err
		}
		return recordRows(rows)
	}

	var snap *fixture.Snapshot
	var err error
	if qc.Mode() == Recording {
		if snap, err = qc.Capture(ctx, stmt, opts, exec); err == nil {
			atomic.AddUint64(&i.stats.Misses, 1)
		}
	} else {
		if snap, err = qc.Replay(ctx, stmt, opts, exec); err == nil {
			if qc.Mode() == Replaying {
				atomic.AddUint64(&i.stats.Hits, 1)
			} else {
				atomic.AddUint64(&i.stats.Misses, 1)
			}
		}
	}

	if err != nil {
		atomic.AddUint64(&i.stats.Errors, 1)
		if i.onErr != nil {
			i.onErr(fmt.Errorf("QueryCache %q failed: %w", qc.Name(), err))
		}
		return nil, err
	}

	return newRowsCached(snap), nil
}

// Stats contains sqlreplay statistics. Misses count queries executed live
// and recorded, Bypassed counts queries the cache did not consider.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Bypassed uint64
	Errors   uint64
}

// Stats returns sqlreplay stats.
func (i *Interceptor) Stats() *Stats {
	return &Stats{
		Hits:     atomic.LoadUint64(&i.stats.Hits),
		Misses:   atomic.LoadUint64(&i.stats.Misses),
		Bypassed: atomic.LoadUint64(&i.stats.Bypassed),
		Errors:   atomic.LoadUint64(&i.stats.Errors),
	}
}
