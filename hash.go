package sqlreplay

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

// timestampLayout renders time arguments in the form masked by
// fixture.NormalizeKey.
const timestampLayout = "2006-01-02 15:04:05.000000"

// renderStatement returns the text a query is cached under. Bound arguments
// are appended as a trailing `-- args:` comment line.
func renderStatement(query string, args []driver.NamedValue) string {
	if len(args) == 0 {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + len(args)*10) // arbitrary
	b.WriteString(query)
	b.WriteString("\n-- args: [")
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		if arg.Name != "" {
			b.WriteString(arg.Name)
			b.WriteByte('=')
		}
		b.WriteString(renderValue(arg.Value))
	}
	b.WriteByte(']')

	return b.String()
}

func renderValue(v driver.Value) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return strconv.Quote(t)
	case []byte:
		return "x'" + hex.EncodeToString(t) + "'"
	case time.Time:
		return "'" + t.Format(timestampLayout) + "'"
	}
	return fmt.Sprintf("%v", v)
}

// Discriminator returns a stable hash of the query parameters of a request,
// or "" when there are none.
func Discriminator(params url.Values) (string, error) {
	if len(params) == 0 {
		return "", nil
	}

	u64, err := hashstructure.Hash(params, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(u64, 16), nil
}

// seedFor derives a pseudo-random seed from a cache name and discriminator.
func seedFor(name, discriminator string) (int64, error) {
	u64, err := hashstructure.Hash(struct {
		Name          string
		Discriminator string
	}{
		Name:          name,
		Discriminator: discriminator,
	}, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, err
	}
	return int64(u64), nil
}
