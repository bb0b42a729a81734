package fixture

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	assert := require.New(t)

	tests := map[string]struct {
		query    string
		expected string
	}{
		"plain query untouched": {
			query:    `SELECT * FROM users WHERE id = 1`,
			expected: `SELECT * FROM users WHERE id = 1`,
		},
		"timestamp masked": {
			query:    `SELECT * FROM logs WHERE at < '2021-03-04 05:06:07.123456'`,
			expected: `SELECT * FROM logs WHERE at < 'XXXX-XX-XX XX:XX:XX.XXXXXX'`,
		},
		"timestamp without micros untouched": {
			query:    `SELECT * FROM logs WHERE at < '2021-03-04 05:06:07'`,
			expected: `SELECT * FROM logs WHERE at < '2021-03-04 05:06:07'`,
		},
		"block comment stripped": {
			query:    `SELECT /* trace-id=abc */ NOW()`,
			expected: `SELECT NOW()`,
		},
		"leading comment stripped": {
			query:    `/* trace-id=abc */ SELECT NOW()`,
			expected: `SELECT NOW()`,
		},
		"trailing comment stripped": {
			query:    `SELECT NOW() /* trace-id=abc */`,
			expected: `SELECT NOW()`,
		},
		"comment without space before": {
			query:    `SELECT/* c */ NOW()`,
			expected: `SELECT NOW()`,
		},
		"comment without space after": {
			query:    `SELECT /* c */NOW()`,
			expected: `SELECT NOW()`,
		},
		"comment without any space": {
			query:    `SELECT a/**/FROM t`,
			expected: `SELECT aFROM t`,
		},
		"multi-line comment stripped": {
			query:    "SELECT 1 /* app:users\ncaller:show */",
			expected: "SELECT 1",
		},
		"adjacent comments stripped together": {
			query:    "/* a */ /* b */\nSELECT NOW()",
			expected: "SELECT NOW()",
		},
		"two comments stripped independently": {
			query:    `SELECT /* a */ id /* b */ FROM t`,
			expected: `SELECT id FROM t`,
		},
		"case and whitespace preserved": {
			query:    "select  Id\tFROM t",
			expected: "select  Id\tFROM t",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert := require.New(t)
			assert.Equal(tc.expected, NormalizeKey(tc.query))
		})
	}

	for _, query := range []string{
		`SELECT /* trace-id=abc */ NOW()`,
		`/* trace-id=abc */ SELECT NOW()`,
		`SELECT NOW() /* trace-id=abc */`,
		`SELECT/* trace-id=abc */ NOW()`,
	} {
		assert.Equal(NormalizeKey(`SELECT NOW()`), NormalizeKey(query), query)
	}
}

func TestNormalizeKeyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("embedded timestamps normalize to the same key", prop.ForAll(
		func(secs int64, micros int) bool {
			ts := time.Unix(secs, int64(micros)*1000).UTC().Format("2006-01-02 15:04:05.000000")
			fixed := "2000-01-01 00:00:00.000000"
			query := "SELECT * FROM events WHERE created_at > '%s' ORDER BY id"

			return NormalizeKey(fmt.Sprintf(query, ts)) == NormalizeKey(fmt.Sprintf(query, fixed))
		},
		gen.Int64Range(0, 253402300799), // through 9999-12-31
		gen.IntRange(0, 999999),
	))

	properties.Property("inline comments do not change the key", prop.ForAll(
		func(table, comment string) bool {
			with := fmt.Sprintf("SELECT id FROM %s /* %s */ WHERE id = 1", table, comment)
			without := fmt.Sprintf("SELECT id FROM %s WHERE id = 1", table)

			return NormalizeKey(with) == NormalizeKey(without)
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.Property("comments anywhere key like the bare query", prop.ForAll(
		func(comment string, at int) bool {
			tokens := []string{"SELECT", "id", "FROM", "users"}
			bare := strings.Join(tokens, " ")

			at %= len(tokens) + 1
			with := append(append(append([]string{}, tokens[:at]...), "/* "+comment+" */"), tokens[at:]...)

			return NormalizeKey(strings.Join(with, " ")) == bare
		},
		gen.AlphaString(),
		gen.IntRange(0, 4),
	))

	properties.Property("literals outside the volatile patterns are kept", prop.ForAll(
		func(literal string) bool {
			query := fmt.Sprintf("SELECT * FROM users WHERE name = '%s'", literal)
			return NormalizeKey(query) == query
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestStripComments(t *testing.T) {
	assert := require.New(t)

	assert.Equal("SELECT 1", StripComments("SELECT 1"))
	assert.Equal("SELECT 1", StripComments("  /* hi */ SELECT 1"))
	assert.Equal("SELECT 1", StripComments("-- @replay-as array\n  -- other\nSELECT 1"))
	assert.Equal("", StripComments("-- only a comment"))
	assert.Equal("INSERT INTO t VALUES (1)", StripComments("/* x */\nINSERT INTO t VALUES (1)"))
}
