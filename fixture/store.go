package fixture

import (
	"context"
)

// Store represents durable fixture storage that can be used by the sqlreplay
// package.
type Store interface {
	// Load must return the fixture stored under name, a boolean representing
	// whether it is present or not, and an error (must be nil when the
	// fixture is not present).
	Load(ctx context.Context, name string) (*Fixture, bool, error)
	// Save persists the fixture under its name, replacing any previous
	// version.
	Save(ctx context.Context, f *Fixture) error
}
