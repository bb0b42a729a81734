package fixture

import (
	"database/sql/driver"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func sampleFixture(t *testing.T) *Fixture {
	snap, err := NewSnapshot(
		[]Field{{Name: "id", DatabaseType: "BIGINT"}, {Name: "name"}, {Name: "score"}, {Name: "active"}, {Name: "avatar"}, {Name: "seen_at"}, {Name: "deleted_at"}},
		[][]driver.Value{
			{int64(1), "alice", 9.5, true, []byte{0x00, 0xff}, time.Date(2021, 3, 4, 5, 6, 7, 123456000, time.UTC), nil},
			{int64(-2), "", -0.25, false, []byte{}, time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC), nil},
		},
	)
	require.Nil(t, err)

	f := New("http/users", "8f3a")
	f.Put("SELECT * FROM users", Entry{
		Query:   "SELECT * FROM users /* caller */",
		Options: Options{"symbolize_keys": "true"},
		Result:  snap,
	})
	f.Put("SELECT pg_sleep(1)", Entry{
		Query:   "SELECT pg_sleep(1)",
		Options: Options{},
	})
	return f
}

func TestCodecsRoundTrip(t *testing.T) {
	for _, codec := range []Codec{YAML, JSON, Msgpack} {
		t.Run(codec.Ext(), func(t *testing.T) {
			assert := require.New(t)
			f := sampleFixture(t)

			b, err := codec.Marshal(f)
			assert.Nil(err)

			got, err := codec.Unmarshal(b)
			assert.Nil(err)
			assert.Equal(f.Name, got.Name)
			assert.Equal(f.Discriminator, got.Discriminator)
			assert.Equal(f.Keys(), got.Keys())

			for _, key := range f.Keys() {
				want, _ := f.Lookup(key)
				have, ok := got.Lookup(key)
				assert.True(ok)
				assert.Equal(want.Query, have.Query)
				assert.True(want.Options.Equal(have.Options))
				assert.Equal(want.Result.Fields(), have.Result.Fields())
				assert.Equal(want.Result.Rows(), have.Result.Rows())
			}

			// encoding is deterministic
			again, err := codec.Marshal(got)
			assert.Nil(err)
			assert.Equal(b, again)
		})
	}
}

func TestCodecsDeterministic(t *testing.T) {
	for _, codec := range []Codec{YAML, JSON, Msgpack} {
		t.Run(codec.Ext(), func(t *testing.T) {
			assert := require.New(t)

			f := sampleFixture(t)
			for i := 0; i < 8; i++ {
				snap, err := NewSnapshot(
					[]Field{{Name: "id"}},
					[][]driver.Value{{int64(i)}},
				)
				assert.Nil(err)

				query := fmt.Sprintf("SELECT id FROM t%d", i)
				f.Put(query, Entry{
					Query:   query,
					Options: Options{"as": "hash", "database": "app", "encoding": "utf8"},
					Result:  snap,
				})
			}

			first, err := codec.Marshal(f)
			assert.Nil(err)

			for i := 0; i < 50; i++ {
				b, err := codec.Marshal(f)
				assert.Nil(err)
				assert.Equal(first, b)
			}

			got, err := codec.Unmarshal(first)
			assert.Nil(err)
			assert.Equal(f.Keys(), got.Keys())
		})
	}
}

func TestCodecByName(t *testing.T) {
	assert := require.New(t)

	for name, expected := range map[string]Codec{"yaml": YAML, "YML": YAML, "json": JSON, "msgpack": Msgpack} {
		c, err := CodecByName(name)
		assert.Nil(err)
		assert.Equal(expected, c)
	}

	c, err := CodecByName("xml")
	assert.Nil(c)
	assert.NotNil(err)
}

func TestDecodeMalformedCell(t *testing.T) {
	assert := require.New(t)

	for _, cell := range []string{"nope", "int:abc", "widget:1", "bytes:!!"} {
		_, err := decodeCell(cell)
		assert.NotNil(err, cell)
	}

	_, err := YAML.Unmarshal([]byte(`
name: broken
entries:
  SELECT 1:
    query: SELECT 1
    result:
      fields: [{name: a}]
      rows: [["int:1", "int:2"]]
`))
	assert.NotNil(err)
}

func TestCodecRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	for _, codec := range []Codec{YAML, JSON, Msgpack} {
		codec := codec
		properties.Property(codec.Ext()+" restores captured rows exactly", prop.ForAll(
			func(id int64, name string, score float64) bool {
				snap, err := NewSnapshot([]Field{{Name: "id"}, {Name: "name"}, {Name: "score"}},
					[][]driver.Value{{id, name, score}})
				if err != nil {
					return false
				}

				f := New("prop", "")
				f.Put("q", Entry{Query: "q", Options: Options{}, Result: snap})

				b, err := codec.Marshal(f)
				if err != nil {
					return false
				}
				got, err := codec.Unmarshal(b)
				if err != nil {
					return false
				}

				e, ok := got.Lookup("q")
				if !ok {
					return false
				}
				row := e.Result.Rows()[0]
				return row[0] == driver.Value(id) && row[1] == driver.Value(name) && row[2] == driver.Value(score)
			},
			gen.Int64(),
			gen.AlphaString(),
			gen.Float64Range(-1e12, 1e12),
		))
	}

	properties.TestingRun(t)
}
