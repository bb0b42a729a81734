package sqlreplay

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/prashanthpai/sqlreplay/fixture"
)

// Ristretto implements fixture.Store as a read-through ristretto cache of
// decoded fixtures in front of another Store. Registries sharing a Ristretto
// store decode each fixture once.
type Ristretto struct {
	c    *ristretto.Cache
	next fixture.Store
}

var _ fixture.Store = &Ristretto{} // Ristretto is-a fixture.Store.

// Load gets a fixture from ristretto, falling back to the wrapped store.
// Returns a copy the caller is free to modify.
func (r *Ristretto) Load(ctx context.Context, name string) (*fixture.Fixture, bool, error) {
	if i, ok := r.c.Get(name); ok {
		f, ok := i.(*fixture.Fixture)
		if !ok {
			return nil, false, fmt.Errorf("Ristretto.Load(): i.(*fixture.Fixture) failed")
		}
		return f.Clone(), true, nil
	}

	f, ok, err := r.next.Load(ctx, name)
	if err != nil || !ok {
		return f, ok, err
	}

	r.set(f)
	return f, true, nil
}

// Save writes the fixture to the wrapped store and caches it.
func (r *Ristretto) Save(ctx context.Context, f *fixture.Fixture) error {
	if err := r.next.Save(ctx, f); err != nil {
		return err
	}
	r.set(f)
	return nil
}

func (r *Ristretto) set(f *fixture.Fixture) {
	// using # of entries as cost
	_ = r.c.Set(f.Name, f.Clone(), int64(len(f.Entries))+1)
	r.c.Wait()
}

// NewRistretto creates a new instance of ristretto backend wrapping the
// provided *ristretto.Cache instance and backing store. While creating the
// ristretto instance, please note that the number of fixture entries will
// be used as "cost" (in ristretto's terminology) for each cached fixture.
func NewRistretto(c *ristretto.Cache, next fixture.Store) *Ristretto {
	return &Ristretto{
		c:    c,
		next: next,
	}
}
