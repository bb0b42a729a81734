package sqlreplay

import (
	"context"
	"regexp"
	"strings"

	"github.com/prashanthpai/sqlreplay/fixture"
)

var (
	attrRegexp = regexp.MustCompile(`--\s*@replay-([A-Za-z0-9_]+)\s+(\S+)`)
)

type optionsKey struct{}

// WithOptions returns a copy of ctx carrying query options for the queries
// issued with it. They take precedence over interceptor defaults and inline
// attributes.
func WithOptions(ctx context.Context, opts fixture.Options) context.Context {
	return context.WithValue(ctx, optionsKey{}, opts)
}

// OptionsFrom returns the query options carried by ctx.
func OptionsFrom(ctx context.Context) fixture.Options {
	opts, _ := ctx.Value(optionsKey{}).(fixture.Options)
	return opts
}

// getAttrs extracts the `-- @replay-<name> <value>` attributes of query.
func getAttrs(query string) fixture.Options {
	matches := attrRegexp.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return nil
	}

	attrs := make(fixture.Options, len(matches))
	for _, match := range matches {
		attrs[match[1]] = match[2]
	}
	return attrs
}

// mergeOptions merges option sets; later sets win.
func mergeOptions(sets ...fixture.Options) fixture.Options {
	merged := make(fixture.Options)
	for _, set := range sets {
		for k, v := range set {
			merged[k] = v
		}
	}
	return merged
}

// IsSelect reports whether query is a SELECT once leading comments are
// skipped. It is the default read predicate of the Interceptor.
func IsSelect(query string) bool {
	q := fixture.StripComments(query)
	if len(q) < len("select") || !strings.EqualFold(q[:len("select")], "select") {
		return false
	}
	if len(q) == len("select") {
		return true
	}
	next := q[len("select")]
	return next != '_' && !('a' <= next && next <= 'z') && !('A' <= next && next <= 'Z')
}
