// Package fixture defines the recorded data of a query cache: immutable
// result snapshots, fixtures mapping normalized query keys to recorded
// entries, the codecs that persist them and the Store abstraction over
// durable fixture storage.
package fixture
