package fixture

import (
	"bytes"
	"database/sql/driver"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	msgpack "github.com/vmihailenco/msgpack/v4"
	"gopkg.in/yaml.v3"
)

// Codec serializes fixtures for durable storage.
type Codec interface {
	// Ext is the file extension, without a leading dot, of fixtures encoded
	// by this Codec.
	Ext() string
	Marshal(f *Fixture) ([]byte, error)
	Unmarshal(b []byte) (*Fixture, error)
}

var (
	// YAML encodes fixtures as YAML documents.
	YAML Codec = yamlCodec{}
	// JSON encodes fixtures as indented JSON documents.
	JSON Codec = jsonCodec{}
	// Msgpack encodes fixtures as MessagePack.
	Msgpack Codec = msgpackCodec{}

	jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary
)

// CodecByName returns the Codec registered under name, which is one of
// "yaml", "json" or "msgpack".
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, fmt.Errorf("fixture: unknown codec %q", name)
}

// document is the persisted shape of a Fixture.
type document struct {
	Name          string              `yaml:"name" json:"name" msgpack:"name"`
	Discriminator string              `yaml:"discriminator,omitempty" json:"discriminator,omitempty" msgpack:"discriminator,omitempty"`
	Entries       map[string]entryDoc `yaml:"entries" json:"entries" msgpack:"entries"`
}

type entryDoc struct {
	Query   string       `yaml:"query" json:"query" msgpack:"query"`
	Options Options      `yaml:"options,omitempty" json:"options,omitempty" msgpack:"options,omitempty"`
	Result  *snapshotDoc `yaml:"result" json:"result" msgpack:"result"`
}

// snapshotDoc holds cells as tagged `kind:value` strings so that every codec
// restores the exact Go type of a value.
type snapshotDoc struct {
	Fields []Field    `yaml:"fields" json:"fields" msgpack:"fields"`
	Rows   [][]string `yaml:"rows" json:"rows" msgpack:"rows"`
}

func toDocument(f *Fixture) (*document, error) {
	doc := &document{
		Name:          f.Name,
		Discriminator: f.Discriminator,
		Entries:       make(map[string]entryDoc, len(f.Entries)),
	}

	for key, e := range f.Entries {
		ed := entryDoc{
			Query:   e.Query,
			Options: e.Options,
		}
		if e.Result != nil {
			sd := &snapshotDoc{
				Fields: e.Result.fields,
				Rows:   make([][]string, len(e.Result.rows)),
			}
			for i, row := range e.Result.rows {
				cells := make([]string, len(row))
				for j, v := range row {
					c, err := encodeCell(v)
					if err != nil {
						return nil, fmt.Errorf("fixture: entry %q: %w", key, err)
					}
					cells[j] = c
				}
				sd.Rows[i] = cells
			}
			ed.Result = sd
		}
		doc.Entries[key] = ed
	}

	return doc, nil
}

func fromDocument(doc *document) (*Fixture, error) {
	f := New(doc.Name, doc.Discriminator)

	for key, ed := range doc.Entries {
		e := Entry{
			Query:   ed.Query,
			Options: ed.Options,
		}
		if e.Options == nil {
			e.Options = Options{}
		}
		if ed.Result != nil {
			rows := make([][]driver.Value, len(ed.Result.Rows))
			for i, cells := range ed.Result.Rows {
				row := make([]driver.Value, len(cells))
				for j, c := range cells {
					v, err := decodeCell(c)
					if err != nil {
						return nil, fmt.Errorf("fixture: entry %q: %w", key, err)
					}
					row[j] = v
				}
				rows[i] = row
			}

			snap, err := NewSnapshot(ed.Result.Fields, rows)
			if err != nil {
				return nil, fmt.Errorf("fixture: entry %q: %w", key, err)
			}
			e.Result = snap
		}
		f.Entries[key] = e
	}

	return f, nil
}

func encodeCell(v driver.Value) (string, error) {
	switch t := v.(type) {
	case nil:
		return "null:", nil
	case int64:
		return "int:" + strconv.FormatInt(t, 10), nil
	case float64:
		return "float:" + strconv.FormatFloat(t, 'g', -1, 64), nil
	case bool:
		return "bool:" + strconv.FormatBool(t), nil
	case string:
		return "string:" + t, nil
	case []byte:
		return "bytes:" + base64.StdEncoding.EncodeToString(t), nil
	case time.Time:
		return "time:" + t.Format(time.RFC3339Nano), nil
	}
	return "", fmt.Errorf("can't encode value of type %T", v)
}

func decodeCell(c string) (driver.Value, error) {
	kind, val, ok := strings.Cut(c, ":")
	if !ok {
		return nil, fmt.Errorf("malformed cell %q", c)
	}

	switch kind {
	case "null":
		return nil, nil
	case "int":
		return strconv.ParseInt(val, 10, 64)
	case "float":
		return strconv.ParseFloat(val, 64)
	case "bool":
		return strconv.ParseBool(val)
	case "string":
		return val, nil
	case "bytes":
		return base64.StdEncoding.DecodeString(val)
	case "time":
		return time.Parse(time.RFC3339Nano, val)
	}
	return nil, fmt.Errorf("unknown cell kind %q", kind)
}

type yamlCodec struct{}

func (yamlCodec) Ext() string { return "yaml" }

func (yamlCodec) Marshal(f *Fixture) ([]byte, error) {
	doc, err := toDocument(f)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

func (yamlCodec) Unmarshal(b []byte) (*Fixture, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return fromDocument(&doc)
}

type jsonCodec struct{}

func (jsonCodec) Ext() string { return "json" }

func (jsonCodec) Marshal(f *Fixture) ([]byte, error) {
	doc, err := toDocument(f)
	if err != nil {
		return nil, err
	}
	return jsonAPI.MarshalIndent(doc, "", "  ")
}

func (jsonCodec) Unmarshal(b []byte) (*Fixture, error) {
	var doc document
	if err := jsonAPI.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return fromDocument(&doc)
}

type msgpackCodec struct{}

// msgpackDocument is a document with its entries listed in key order.
type msgpackDocument struct {
	Name          string         `msgpack:"name"`
	Discriminator string         `msgpack:"discriminator,omitempty"`
	Entries       []msgpackEntry `msgpack:"entries"`
}

type msgpackEntry struct {
	Key   string   `msgpack:"key"`
	Entry entryDoc `msgpack:"entry"`
}

func (msgpackCodec) Ext() string { return "msgpack" }

func (msgpackCodec) Marshal(f *Fixture) ([]byte, error) {
	doc, err := toDocument(f)
	if err != nil {
		return nil, err
	}

	var md = msgpackDocument{
		Name:          doc.Name,
		Discriminator: doc.Discriminator,
		Entries:       make([]msgpackEntry, 0, len(doc.Entries)),
	}
	for _, key := range f.Keys() {
		md.Entries = append(md.Entries, msgpackEntry{Key: key, Entry: doc.Entries[key]})
	}

	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).SortMapKeys(true).Encode(&md); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(b []byte) (*Fixture, error) {
	var md msgpackDocument
	if err := msgpack.Unmarshal(b, &md); err != nil {
		return nil, err
	}

	var doc = document{
		Name:          md.Name,
		Discriminator: md.Discriminator,
		Entries:       make(map[string]entryDoc, len(md.Entries)),
	}
	for _, e := range md.Entries {
		doc.Entries[e.Key] = e.Entry
	}
	return fromDocument(&doc)
}
