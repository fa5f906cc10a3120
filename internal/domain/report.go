package domain

import (
	"bytes"
	"encoding/json"
)

// Report is an insertion-ordered string mapping that marshals to a JSON object.
type Report struct {
	keys   []string
	values map[string]string
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{values: make(map[string]string)}
}

// Set stores value under key. An existing key keeps its position.
func (r *Report) Set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *Report) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r *Report) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of entries.
func (r *Report) Len() int {
	return len(r.keys)
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
