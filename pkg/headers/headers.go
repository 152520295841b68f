// Package headers implements a case-insensitive, multi-valued header map.
package headers

import (
	"encoding/json"
	"fmt"
	"net/textproto"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/WhileEndless/go-hur/pkg/errors"
)

// Reserved keys carry a single authoritative value: Append replaces them
// instead of adding to them.
const (
	Connection = "connection"
	Host       = "host"
)

// Headers maps lower-cased names to their values in insertion order.
// The zero value is ready to use.
type Headers struct {
	values map[string][]string
	order  []string
}

// New returns an empty Headers.
func New() *Headers {
	return &Headers{values: make(map[string][]string)}
}

// FromMap builds Headers from single-valued pairs, as read from a JSON object.
func FromMap(m map[string]string) *Headers {
	h := New()
	for k, v := range m {
		h.Add(k, v)
	}
	return h
}

// Parse reads a "key:value" pair. The key must be a valid field name and
// the value must not contain control characters.
func Parse(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", errors.NewValidationError(fmt.Sprintf("header %q is not in key:value form", s), errors.ErrMalformedHeader)
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if !httpguts.ValidHeaderFieldName(key) {
		return "", "", errors.NewValidationError(fmt.Sprintf("invalid header name %q", key), errors.ErrMalformedHeader)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", errors.NewValidationError(fmt.Sprintf("invalid value for header %q", key), errors.ErrMalformedHeader)
	}
	return key, value, nil
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (h *Headers) init() {
	if h.values == nil {
		h.values = make(map[string][]string)
	}
}

// Add appends value to the values of key.
func (h *Headers) Add(key, value string) {
	h.init()
	k := normalize(key)
	if _, ok := h.values[k]; !ok {
		h.order = append(h.order, k)
	}
	h.values[k] = append(h.values[k], value)
}

// Set replaces all values of key with value.
func (h *Headers) Set(key, value string) {
	h.setValues(normalize(key), []string{value})
}

func (h *Headers) setValues(k string, values []string) {
	if len(values) == 0 {
		return
	}
	h.init()
	if _, ok := h.values[k]; !ok {
		h.order = append(h.order, k)
	}
	h.values[k] = append([]string(nil), values...)
}

// Get returns the values of key, or nil.
func (h *Headers) Get(key string) []string {
	if h == nil {
		return nil
	}
	return h.values[normalize(key)]
}

// First returns the first value of key, or "".
func (h *Headers) First(key string) string {
	if v := h.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

// Has reports whether key is present.
func (h *Headers) Has(key string) bool {
	return len(h.Get(key)) > 0
}

// Del removes key.
func (h *Headers) Del(key string) {
	k := normalize(key)
	if _, ok := h.values[k]; !ok {
		return
	}
	delete(h.values, k)
	for i, o := range h.order {
		if o == k {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Keys returns the lower-cased keys in first-insertion order.
func (h *Headers) Keys() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.order...)
}

// Len returns the number of distinct keys.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.order)
}

// Clone returns a deep copy.
func (h *Headers) Clone() *Headers {
	c := New()
	if h == nil {
		return c
	}
	for _, k := range h.order {
		c.setValues(k, h.values[k])
	}
	return c
}

// Append merges other into h. Values of the reserved keys connection and
// host replace the existing ones, every other key accumulates.
func (h *Headers) Append(other *Headers) {
	if other == nil {
		return
	}
	for _, k := range other.order {
		switch k {
		case Connection, Host:
			h.setValues(k, other.values[k])
		default:
			for _, v := range other.values[k] {
				h.Add(k, v)
			}
		}
	}
}

// Each calls fn for every value, keys in insertion order. The key is passed
// in canonical form (Content-Type).
func (h *Headers) Each(fn func(key, value string)) {
	if h == nil {
		return
	}
	for _, k := range h.order {
		ck := textproto.CanonicalMIMEHeaderKey(k)
		for _, v := range h.values[k] {
			fn(ck, v)
		}
	}
}

// MarshalJSON encodes the headers as an object of value lists.
func (h *Headers) MarshalJSON() ([]byte, error) {
	if h == nil || h.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(h.values)
}

// UnmarshalJSON accepts an object whose values are strings or string lists.
func (h *Headers) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*h = Headers{}
	h.init()
	for k, msg := range raw {
		var one string
		if err := json.Unmarshal(msg, &one); err == nil {
			h.Add(k, one)
			continue
		}
		var many []string
		if err := json.Unmarshal(msg, &many); err != nil {
			return fmt.Errorf("header %q: %w", k, err)
		}
		for _, v := range many {
			h.Add(k, v)
		}
	}
	return nil
}
