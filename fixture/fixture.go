package fixture

import (
	"sort"
)

// Options are the query options that accompany a recorded query.
type Options map[string]string

// Subset returns the options whose names appear in keys. The result is never
// nil.
func (o Options) Subset(keys []string) Options {
	sub := make(Options, len(keys))
	for _, k := range keys {
		if v, ok := o[k]; ok {
			sub[k] = v
		}
	}
	return sub
}

// Equal reports whether o and other hold the same options. A nil Options is
// equal to an empty one.
func (o Options) Equal(other Options) bool {
	if len(o) != len(other) {
		return false
	}
	for k, v := range o {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Clone returns a copy of o.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	cpy := make(Options, len(o))
	for k, v := range o {
		cpy[k] = v
	}
	return cpy
}

// Entry is a single recorded query of a Fixture.
type Entry struct {
	// Query is the query text as it was issued.
	Query string
	// Options is the matched subset of the options the query was issued with.
	Options Options
	// Result is the captured result, nil for statements without one.
	Result *Snapshot
}

// Fixture is the recorded set of query results for one cache name, keyed by
// normalized query.
type Fixture struct {
	Name string
	// Discriminator is kept for diagnostics only and plays no part in
	// matching.
	Discriminator string
	Entries       map[string]Entry
}

// New returns an empty Fixture.
func New(name, discriminator string) *Fixture {
	return &Fixture{
		Name:          name,
		Discriminator: discriminator,
		Entries:       make(map[string]Entry),
	}
}

// Lookup returns the entry stored under key.
func (f *Fixture) Lookup(key string) (Entry, bool) {
	e, ok := f.Entries[key]
	return e, ok
}

// Put stores e under key, replacing any previous entry.
func (f *Fixture) Put(key string, e Entry) {
	if f.Entries == nil {
		f.Entries = make(map[string]Entry)
	}
	f.Entries[key] = e
}

// Keys returns the entry keys in sorted order.
func (f *Fixture) Keys() []string {
	keys := make([]string, 0, len(f.Entries))
	for k := range f.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of f that shares no mutable state with it. Snapshots
// are immutable and are shared.
func (f *Fixture) Clone() *Fixture {
	cpy := New(f.Name, f.Discriminator)
	for k, e := range f.Entries {
		cpy.Entries[k] = Entry{
			Query:   e.Query,
			Options: e.Options.Clone(),
			Result:  e.Result,
		}
	}
	return cpy
}
