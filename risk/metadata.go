package risk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Field is a single metadata entry. Value may be a string, a number, a
// time.Time or a nested structure.
type Field struct {
	Key   string
	Value any
}

// Metadata is an ordered key/value map as produced by an extractor. Order is
// significant: it decides timeline tie-breaking and fallback iteration.
type Metadata []Field

// FromMap converts an unordered map into Metadata with keys in sorted order.
func FromMap(values map[string]any) Metadata {
	if len(values) == 0 {
		return Metadata{}
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	md := make(Metadata, 0, len(keys))
	for _, key := range keys {
		md = append(md, Field{Key: key, Value: values[key]})
	}
	return md
}

// Set appends key or replaces the value of an existing key in place.
func (m *Metadata) Set(key string, value any) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Field{Key: key, Value: value})
}

// Get returns the value stored under key (exact match).
func (m Metadata) Get(key string) (any, bool) {
	for _, f := range m {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns field names in order.
func (m Metadata) Keys() []string {
	keys := make([]string, len(m))
	for i, f := range m {
		keys[i] = f.Key
	}
	return keys
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(f.Value)
		if err != nil {
			value, _ = json.Marshal(ValueText(f.Value))
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the document's key order.
// Anything other than an object decodes to empty metadata.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		*m = Metadata{}
		return nil
	}
	out := Metadata{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected metadata key %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("metadata value for %q: %w", key, err)
		}
		out = append(out, Field{Key: key, Value: value})
	}
	*m = out
	return nil
}

// ValueText renders a metadata value as the text used for pattern matching.
func ValueText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return formatTime(v)
	case *time.Time:
		if v == nil {
			return ""
		}
		return formatTime(*v)
	case json.Number:
		return v.String()
	case float64:
		return floatText(v)
	case float32:
		return floatText(float64(v))
	case fmt.Stringer:
		return v.String()
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if text, ok := numberListText(rv); ok {
			return text
		}
		if data, err := json.Marshal(value); err == nil {
			return string(data)
		}
	case reflect.Map, reflect.Struct:
		if data, err := json.Marshal(value); err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(value)
}

// floatText keeps a trailing ".0" on integral values so coordinates such as
// 12.0 still read as decimals.
func floatText(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) || strings.ContainsAny(s, ".e") {
		return s
	}
	return s + ".0"
}

// numberListText renders a list made only of numbers as "[a, b]".
func numberListText(rv reflect.Value) (string, bool) {
	if rv.Len() == 0 {
		return "", false
	}
	parts := make([]string, rv.Len())
	for i := range rv.Len() {
		elem := rv.Index(i)
		for elem.Kind() == reflect.Interface && !elem.IsNil() {
			elem = elem.Elem()
		}
		switch elem.Kind() {
		case reflect.Float32, reflect.Float64:
			parts[i] = floatText(elem.Float())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			parts[i] = strconv.FormatInt(elem.Int(), 10)
		case reflect.Uint, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			parts[i] = strconv.FormatUint(elem.Uint(), 10)
		default:
			if n, ok := elem.Interface().(json.Number); ok {
				parts[i] = n.String()
				continue
			}
			return "", false
		}
	}
	return "[" + strings.Join(parts, ", ") + "]", true
}

func formatTime(t time.Time) string {
	layout := "2006-01-02 15:04:05"
	if t.Nanosecond() != 0 {
		layout += ".000000"
	}
	if t.Location() != time.UTC {
		layout += "-07:00"
	}
	return t.Format(layout)
}

func lowerText(value any) string {
	return strings.ToLower(ValueText(value))
}
