package headers_test

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/WhileEndless/go-hur/pkg/errors"
	"github.com/WhileEndless/go-hur/pkg/headers"
)

func TestCaseInsensitive(t *testing.T) {
	h := headers.New()
	h.Add("X-Foo", "1")

	if diff := cmp.Diff([]string{"1"}, h.Get("x-foo")); diff != "" {
		t.Errorf("Get(x-foo) mismatch (-want +got):\n%s", diff)
	}
	if !h.Has("X-FOO") {
		t.Error("Has should ignore case")
	}
	if diff := cmp.Diff([]string{"x-foo"}, h.Keys()); diff != "" {
		t.Errorf("keys should be lower-cased (-want +got):\n%s", diff)
	}
}

func TestAddKeepsOrderAndDuplicates(t *testing.T) {
	h := headers.New()
	h.Add("Accept", "text/html")
	h.Add("accept", "application/json")
	h.Add("Accept", "text/html")

	want := []string{"text/html", "application/json", "text/html"}
	if diff := cmp.Diff(want, h.Get("accept")); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend(t *testing.T) {
	tests := []struct {
		name  string
		base  map[string][]string
		other map[string][]string
		key   string
		want  []string
	}{
		{
			name:  "connection replaces",
			base:  map[string][]string{"Connection": {"keep-alive"}},
			other: map[string][]string{"connection": {"close"}},
			key:   "connection",
			want:  []string{"close"},
		},
		{
			name:  "host replaces",
			base:  map[string][]string{"Host": {"a.example"}},
			other: map[string][]string{"HOST": {"b.example"}},
			key:   "host",
			want:  []string{"b.example"},
		},
		{
			name:  "other keys accumulate",
			base:  map[string][]string{"X-Trace": {"1"}},
			other: map[string][]string{"x-trace": {"2", "1"}},
			key:   "x-trace",
			want:  []string{"1", "2", "1"},
		},
		{
			name:  "new key added",
			base:  map[string][]string{},
			other: map[string][]string{"Accept": {"*/*"}},
			key:   "accept",
			want:  []string{"*/*"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, other := build(tt.base), build(tt.other)
			base.Append(other)
			if diff := cmp.Diff(tt.want, base.Get(tt.key)); diff != "" {
				t.Errorf("Append mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func build(m map[string][]string) *headers.Headers {
	h := headers.New()
	for k, vs := range m {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return h
}

func TestSetDelClone(t *testing.T) {
	h := headers.New()
	h.Add("A", "1")
	h.Add("A", "2")
	h.Add("B", "3")

	c := h.Clone()
	h.Set("a", "9")
	h.Del("b")

	if diff := cmp.Diff([]string{"9"}, h.Get("a")); diff != "" {
		t.Errorf("Set mismatch (-want +got):\n%s", diff)
	}
	if h.Has("b") || h.Len() != 1 {
		t.Errorf("Del left key behind: %v", h.Keys())
	}
	if diff := cmp.Diff([]string{"1", "2"}, c.Get("a")); diff != "" {
		t.Errorf("clone should be independent (-want +got):\n%s", diff)
	}
}

func TestEachCanonicalKeys(t *testing.T) {
	h := headers.New()
	h.Add("content-type", "text/plain")
	h.Add("x-multi", "a")
	h.Add("x-multi", "b")

	var got []string
	h.Each(func(k, v string) { got = append(got, k+": "+v) })

	want := []string{"Content-Type: text/plain", "X-Multi: a", "X-Multi: b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Each mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in        string
		key, val  string
		wantError bool
	}{
		{in: "Accept: */*", key: "Accept", val: "*/*"},
		{in: "X-Time:12:30", key: "X-Time", val: "12:30"},
		{in: "no-colon", wantError: true},
		{in: "bad key: v", wantError: true},
		{in: "X-Ok: bad\x01value", wantError: true},
	}

	for _, tt := range tests {
		k, v, err := headers.Parse(tt.in)
		if tt.wantError {
			if !stderrors.Is(err, errors.ErrMalformedHeader) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedHeader", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if k != tt.key || v != tt.val {
			t.Errorf("Parse(%q) = %q, %q; want %q, %q", tt.in, k, v, tt.key, tt.val)
		}
	}
}

func TestJSON(t *testing.T) {
	var h headers.Headers
	if err := json.Unmarshal([]byte(`{"X-One":"1","X-Many":["a","b"]}`), &h); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, h.Get("x-many")); diff != "" {
		t.Errorf("list value mismatch (-want +got):\n%s", diff)
	}

	out, err := json.Marshal(&h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"x-many":["a","b"],"x-one":["1"]}`
	if string(out) != want {
		t.Errorf("marshal = %s, want %s", out, want)
	}
}
