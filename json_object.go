package fxledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// orderedJSON builds a JSON object whose keys keep their insertion order.
// The zero value is an empty object. The first encoding error is kept and
// reported by MarshalJSON.
type orderedJSON struct {
	buf bytes.Buffer
	err error
}

// Append writes key with the JSON encoding of value.
func (o *orderedJSON) Append(key string, value any) {
	if o.err != nil {
		return
	}
	k, _ := json.Marshal(key)
	v, err := json.Marshal(value)
	if err != nil {
		o.err = fmt.Errorf("encode %s: %w", key, err)
		return
	}
	o.buf.WriteByte(o.sep())
	o.buf.Write(k)
	o.buf.WriteByte(':')
	o.buf.Write(v)
}

// Optional writes key unless value is the zero value of its type.
func (o *orderedJSON) Optional(key string, value any) {
	if v := reflect.ValueOf(value); v.IsValid() && !v.IsZero() {
		o.Append(key, value)
	}
}

func (o *orderedJSON) sep() byte {
	if o.buf.Len() == 0 {
		return '{'
	}
	return ','
}

func (o *orderedJSON) MarshalJSON() ([]byte, error) {
	if o.err != nil {
		return nil, o.err
	}
	if o.buf.Len() == 0 {
		return []byte("{}"), nil
	}
	return append(bytes.Clone(o.buf.Bytes()), '}'), nil
}

// withKind encodes v, which must encode as a JSON object, with a leading
// "kind" key.
func withKind(kind string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) < 2 || data[0] != '{' {
		return nil, fmt.Errorf("%s is not a JSON object", kind)
	}
	var o orderedJSON
	o.Append("kind", kind)
	head, _ := o.MarshalJSON()
	head = head[:len(head)-1] // drop '}'
	if rest := bytes.TrimSpace(data[1:]); len(rest) > 0 && rest[0] != '}' {
		head = append(head, ',')
	}
	return append(head, data[1:]...), nil
}
