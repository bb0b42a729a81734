package sqlreplay

import (
	"errors"
	"fmt"

	"github.com/prashanthpai/sqlreplay/fixture"
)

var (
	// ErrAlreadyInUse is returned when a scope is opened while another one is
	// current. Scopes do not nest.
	ErrAlreadyInUse = errors.New("sqlreplay: query cache already in use")
	// ErrFixtureMismatch is returned when a replayed query was recorded with
	// different matched options.
	ErrFixtureMismatch = errors.New("sqlreplay: fixture mismatch")
	// ErrFixtureMiss is returned on a replay miss under the Strict policy.
	ErrFixtureMiss = errors.New("sqlreplay: query not found in fixture")
	// ErrNotRecording is returned by Record when the cache is replaying.
	ErrNotRecording = errors.New("sqlreplay: query cache is not recording")
)

// MismatchError describes a replayed query whose matched options differ from
// the ones it was recorded with.
type MismatchError struct {
	Name     string
	Key      string
	Position int
	Recorded fixture.Options
	Given    fixture.Options
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %q query #%d %q: recorded options %v, given %v",
		ErrFixtureMismatch, e.Name, e.Position, e.Key, e.Recorded, e.Given)
}

// Is makes errors.Is(err, ErrFixtureMismatch) hold.
func (e *MismatchError) Is(target error) bool {
	return target == ErrFixtureMismatch
}
