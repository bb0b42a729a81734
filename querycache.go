package sqlreplay

import (
	"context"
	"fmt"
	"sync"

	"github.com/prashanthpai/sqlreplay/fixture"
	log "github.com/sirupsen/logrus"
)

// Mode is the state of a QueryCache.
type Mode int

const (
	// Recording executes queries live and captures their results.
	Recording Mode = iota
	// Replaying answers queries from a loaded fixture.
	Replaying
)

func (m Mode) String() string {
	switch m {
	case Recording:
		return "recording"
	case Replaying:
		return "replaying"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// MissPolicy decides how a replaying QueryCache handles a query that is not
// in its fixture.
type MissPolicy int

const (
	// AutoExtend executes the query live, records it and switches the cache
	// to Recording for the rest of its life.
	AutoExtend MissPolicy = iota
	// Strict fails the query with ErrFixtureMiss.
	Strict
)

// DefaultMatchOptions is the allow-list of option names which take part in
// matching when Config.MatchOptions is not set.
var DefaultMatchOptions = []string{"as", "symbolize_keys", "encoding", "database"}

// Executor runs a query against the live backend and captures its result.
type Executor func(ctx context.Context) (*fixture.Snapshot, error)

// QueryCache records query results into, and replays them from, the fixture
// of a single cache name.
type QueryCache struct {
	mu        sync.Mutex
	name      string
	store     fixture.Store
	policy    MissPolicy
	matchKeys []string
	log       log.FieldLogger

	fixture  *fixture.Fixture
	mode     Mode
	position int
}

// Load returns the QueryCache of name. It replays the fixture held by
// config.Store under name, or starts an empty fixture and records when there
// is none.
func Load(ctx context.Context, config *Config, name, discriminator string) (*QueryCache, error) {
	cfg, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	f, ok, err := cfg.Store.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	c := &QueryCache{
		name:      name,
		store:     cfg.Store,
		policy:    cfg.MissPolicy,
		matchKeys: cfg.MatchOptions,
		log:       cfg.Logger.WithField("name", name),
	}
	if ok {
		c.fixture = f
		c.mode = Replaying
	} else {
		c.fixture = fixture.New(name, discriminator)
		c.mode = Recording
	}

	c.log.WithFields(log.Fields{
		"mode":          c.mode,
		"entries":       len(c.fixture.Entries),
		"discriminator": discriminator,
	}).Info("loaded query cache")

	return c, nil
}

// Name returns the cache name.
func (c *QueryCache) Name() string { return c.name }

// Discriminator returns the discriminator the fixture was created with.
func (c *QueryCache) Discriminator() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fixture.Discriminator
}

// Mode returns the current mode.
func (c *QueryCache) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Len returns the number of recorded entries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fixture.Entries)
}

// Record stores result as the result of query issued with opts. Only the
// options named by the match allow-list are kept. A previous entry with the
// same normalized key is replaced.
func (c *QueryCache) Record(query string, opts fixture.Options, result *fixture.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != Recording {
		return fmt.Errorf("%w: %q", ErrNotRecording, c.name)
	}
	c.position++
	c.put(query, opts, result)
	return nil
}

// Capture executes query live through exec and records its result.
func (c *QueryCache) Capture(ctx context.Context, query string, opts fixture.Options, exec Executor) (*fixture.Snapshot, error) {
	snap, err := runLive(ctx, exec)
	if err != nil {
		return nil, err
	}
	if err = c.Record(query, opts, snap); err != nil {
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Replay returns the recorded result of query. It fails with a
// *MismatchError when the query was recorded with different matched
// options. A query missing from the fixture is handled per MissPolicy:
// under AutoExtend exec runs it live, its result is recorded and the cache
// switches to Recording.
func (c *QueryCache) Replay(ctx context.Context, query string, opts fixture.Options, exec Executor) (*fixture.Snapshot, error) {
	key := fixture.NormalizeKey(query)
	matched := opts.Subset(c.matchKeys)

	c.mu.Lock()
	c.position++
	position := c.position

	if e, ok := c.fixture.Lookup(key); ok {
		c.mu.Unlock()

		if !e.Options.Equal(matched) {
			fixtureMismatchesTotal.Inc()
			err := &MismatchError{
				Name:     c.name,
				Key:      key,
				Position: position,
				Recorded: e.Options,
				Given:    matched,
			}
			c.log.WithFields(log.Fields{
				"position": position,
				"recorded": e.Options,
				"given":    matched,
			}).Warn("fixture mismatch")
			return nil, err
		}

		replayHitsTotal.Inc()
		c.log.WithFields(log.Fields{"position": position, "key": key}).Debug("replayed query")
		return e.Result, nil
	}

	replayMissesTotal.Inc()
	if c.policy == Strict {
		c.mu.Unlock()
		c.log.WithFields(log.Fields{"position": position, "key": key}).Warn("query not found in fixture")
		return nil, fmt.Errorf("%w: %q query #%d %q", ErrFixtureMiss, c.name, position, key)
	}
	if c.mode == Replaying {
		c.mode = Recording
		c.log.WithFields(log.Fields{"position": position, "key": key}).Info("query not found in fixture; extending")
	}
	c.mu.Unlock()

	snap, err := runLive(ctx, exec)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.put(query, opts, snap)
	c.mu.Unlock()

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Finish persists the fixture if the cache is recording. Once saved, the
// fixture is present in the store and the cache replays on its next use.
// Calling Finish again without recording anything in between writes nothing.
func (c *QueryCache) Finish(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.position = 0
	if c.mode != Recording {
		return nil
	}

	if err := c.store.Save(ctx, c.fixture); err != nil {
		return err
	}
	fixturesSavedTotal.Inc()

	c.mode = Replaying
	c.log.WithField("entries", len(c.fixture.Entries)).Info("saved fixture")
	return nil
}

// put requires c.mu.
func (c *QueryCache) put(query string, opts fixture.Options, result *fixture.Snapshot) {
	key := fixture.NormalizeKey(query)
	c.fixture.Put(key, fixture.Entry{
		Query:   query,
		Options: opts.Subset(c.matchKeys),
		Result:  result,
	})

	recordedQueriesTotal.Inc()
	c.log.WithFields(log.Fields{"position": c.position, "key": key}).Debug("recorded query")
}

// runLive calls exec with a context that is never canceled, so a live call
// is not abandoned halfway. Callers check the original context once the call
// has returned and its result is stored.
func runLive(ctx context.Context, exec Executor) (*fixture.Snapshot, error) {
	return exec(context.WithoutCancel(ctx))
}
