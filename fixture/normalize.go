package fixture

import (
	"regexp"
	"strings"
)

var (
	timestampRegexp = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{6}`)
	// a run of block comments together with the whitespace around it
	blockCommentRegexp = regexp.MustCompile(`(?s)(?:\s*/\*.*?\*/)+\s*`)

	digitMasker = strings.NewReplacer(
		"0", "X", "1", "X", "2", "X", "3", "X", "4", "X",
		"5", "X", "6", "X", "7", "X", "8", "X", "9", "X",
	)
)

// NormalizeKey derives the fixture lookup key of a query. Embedded
// timestamps of the form `YYYY-MM-DD HH:MM:SS.ffffff` are masked with an
// equal-length placeholder and inline block comments are removed along with
// the whitespace around them, so that a commented query keys the same as the
// query without its comments. Case, other whitespace and literal values are
// left as they are.
func NormalizeKey(query string) string {
	key := timestampRegexp.ReplaceAllStringFunc(query, digitMasker.Replace)
	return stripBlockComments(key)
}

// stripBlockComments removes block comments from query. A comment between
// two tokens leaves a single space behind if it was separated from either of
// them by whitespace, and nothing otherwise. Comments at either end of the
// query leave nothing.
func stripBlockComments(query string) string {
	var b strings.Builder
	var last int

	for _, loc := range blockCommentRegexp.FindAllStringIndex(query, -1) {
		b.WriteString(query[last:loc[0]])
		last = loc[1]

		var run = query[loc[0]:loc[1]]
		if loc[0] == 0 || loc[1] == len(query) {
			continue
		} else if isSpace(run[0]) || isSpace(run[len(run)-1]) {
			b.WriteByte(' ')
		}
	}
	b.WriteString(query[last:])
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// StripComments removes block comments and leading `--` comment lines from
// query.
func StripComments(query string) string {
	query = stripBlockComments(query)
	for {
		query = strings.TrimLeft(query, " \t\r\n")
		if !strings.HasPrefix(query, "--") {
			return query
		}
		nl := strings.IndexByte(query, '\n')
		if nl < 0 {
			return ""
		}
		query = query[nl+1:]
	}
}
