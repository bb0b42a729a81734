/*
Package sqlreplay provides a record/replay middleware for database/sql users.
The first run of a code path executes its read queries against the real
database and records their results into a named fixture. Later runs replay
the fixture instead of touching the database, so tests and demos become fast
and deterministic.

Usage:

	import (
		"database/sql"

		"github.com/jackc/pgx/v4/stdlib"
		"github.com/prashanthpai/sqlreplay"
		"github.com/spf13/afero"
	)

	func main() {
		...
		registry, err := sqlreplay.NewRegistry(&sqlreplay.Config{
			Store: sqlreplay.NewFileStore(afero.NewOsFs(), "testdata/fixtures", nil),
		})
		...

		// create a sqlreplay.Interceptor instance backed by the registry
		interceptor, err := sqlreplay.NewInterceptor(&sqlreplay.InterceptorConfig{
			Registry: registry,
		})
		...

		// wrap pgx driver with the interceptor and register it
		sql.Register("pgx-with-replay", interceptor.Driver(stdlib.GetDefaultDriver()))

		// open the database using the wrapped driver
		db, err := sql.Open("pgx-with-replay", dsn)
		...

		// queries issued inside a scope are recorded or replayed
		err = registry.Use(ctx, "books/list", "", func(ctx context.Context) error {
			rows, err := db.QueryContext(ctx, `SELECT name, pages FROM books WHERE pages > $1`, 100)
			...
		})
	}

Only one scope may be open at a time. Queries issued outside of a scope, and
queries which are not SELECTs, always go to the database.

A fixture entry is keyed by the query text with bound arguments appended,
with inline block comments removed and embedded timestamps masked. Query
options take part in matching when they are on the MatchOptions allow-list.
They are set per connection in InterceptorConfig, inline using attributes
which are SQL comments starting with the `@replay-` prefix, or per call with
WithOptions:

	rows, err := db.QueryContext(ctx, `
		-- @replay-as hash
		SELECT name, pages FROM books WHERE pages > $1`, 100)

A replayed query missing from its fixture is executed live and appended to
the fixture under the default AutoExtend policy, and fails with
ErrFixtureMiss under Strict.
*/
package sqlreplay
