package promptform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Entry struct {
	Field Field
	Value any
}

// FieldMap is an ordered field -> value map. Order is the field table order.
type FieldMap []Entry

func (m FieldMap) Fields() []Field {
	out := make([]Field, 0, len(m))
	for _, e := range m {
		out = append(out, e.Field)
	}
	return out
}

func (m FieldMap) Get(field Field) (any, bool) {
	for _, e := range m {
		if e.Field == field {
			return e.Value, true
		}
	}
	return nil, false
}

func (m FieldMap) Has(field Field) bool {
	_, ok := m.Get(field)
	return ok
}

// MarshalJSON writes an object with keys in map order and without HTML
// escaping, so option labels survive verbatim.
func (m FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encodeValue(string(e.Field))
		if err != nil {
			return nil, err
		}
		val, err := encodeValue(e.Value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", e.Field, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type Partitioned struct {
	Identity FieldMap
	Style    FieldMap
	Excluded FieldMap
}

// Partition splits the record into its three field categories. Keys are
// disjoint and together cover every field.
func Partition(r Record) Partitioned {
	var p Partitioned
	for _, def := range fieldTable {
		v, _ := r.Value(def.field)
		e := Entry{Field: def.field, Value: v}
		switch def.category {
		case CategoryIdentity:
			p.Identity = append(p.Identity, e)
		case CategoryStyle:
			p.Style = append(p.Style, e)
		case CategoryExcluded:
			p.Excluded = append(p.Excluded, e)
		}
	}
	return p
}

type ValidationError struct {
	Missing []Field
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, f := range e.Missing {
		names = append(names, string(f))
	}
	return "required fields are blank: " + strings.Join(names, ", ")
}

// Validate checks that every identity field is non-blank.
func Validate(r Record) error {
	var missing []Field
	for _, e := range Partition(r).Identity {
		s, _ := e.Value.(string)
		if strings.TrimSpace(s) == "" {
			missing = append(missing, e.Field)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
