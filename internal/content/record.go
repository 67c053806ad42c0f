package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record maps field names to values. Absent fields read as "".
type Record map[string]string

// embeddedImagePrefix marks a value holding embedded image data.
const embeddedImagePrefix = "data:image/"

// IsImageData reports whether v is an embedded image (data URL).
func IsImageData(v string) bool {
	return strings.HasPrefix(strings.TrimSpace(v), embeddedImagePrefix)
}

func (r Record) Get(field string) string {
	if r == nil {
		return ""
	}
	return r[field]
}

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// WithoutImageData returns a copy with every embedded-image field removed.
func (r Record) WithoutImageData() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if IsImageData(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// HasImageData reports whether any field holds embedded image data.
func (r Record) HasImageData() bool {
	for _, v := range r {
		if IsImageData(v) {
			return true
		}
	}
	return false
}

// UnmarshalJSON coerces scalar values to strings and drops nulls and
// nested values.
func (r *Record) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = Record{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out := make(Record, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		case bool:
			out[k] = strconv.FormatBool(t)
		}
	}
	*r = out
	return nil
}

// Collection is the ordered sequence of records stored for a kind.
type Collection []Record

func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for i, r := range c {
		out[i] = r.Clone()
	}
	return out
}

// UnmarshalJSON requires a top-level array; null holes and non-object
// elements become empty records so positions are preserved.
func (c *Collection) UnmarshalJSON(b []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(b, &elems); err != nil {
		return err
	}
	out := make(Collection, 0, len(elems))
	for i, raw := range elems {
		var rec Record
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			out = append(out, Record{})
			continue
		}
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, rec)
	}
	*c = out
	return nil
}
