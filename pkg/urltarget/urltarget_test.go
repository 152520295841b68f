package urltarget_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/WhileEndless/go-hur/pkg/errors"
	"github.com/WhileEndless/go-hur/pkg/urltarget"
)

type staticResolver map[string][]netip.Addr

func (s staticResolver) LookupNetIP(_ context.Context, _, host string) ([]netip.Addr, error) {
	if addrs, ok := s[host]; ok {
		return addrs, nil
	}
	return nil, fmt.Errorf("no such host %s", host)
}

func TestNew(t *testing.T) {
	tests := []struct {
		url  string
		want urltarget.Target
	}{
		{
			url: "http://example.com/foo?a=1#frag",
			want: urltarget.Target{
				Scheme:   urltarget.HTTP,
				Path:     "/foo",
				FullPath: "http://example.com/foo?a=1",
				Query:    "a=1",
				Domain:   "example.com",
				Host:     "example.com",
			},
		},
		{
			url: "https://example.com:8443",
			want: urltarget.Target{
				Scheme:   urltarget.HTTPS,
				Path:     "/",
				FullPath: "https://example.com:8443/",
				Domain:   "example.com",
				Host:     "example.com",
				Port:     8443,
			},
		},
		{
			url: "http://127.0.0.1:8080/x",
			want: urltarget.Target{
				Scheme:   urltarget.HTTP,
				Path:     "/x",
				FullPath: "http://127.0.0.1:8080/x",
				Host:     "127.0.0.1",
				Port:     8080,
			},
		},
		{
			url: "http://[::1]/",
			want: urltarget.Target{
				Scheme:   urltarget.HTTP,
				Path:     "/",
				FullPath: "http://[::1]/",
				Host:     "[::1]",
			},
		},
		{
			url: "http://bücher.example/",
			want: urltarget.Target{
				Scheme:   urltarget.HTTP,
				Path:     "/",
				FullPath: "http://xn--bcher-kva.example/",
				Domain:   "xn--bcher-kva.example",
				Host:     "xn--bcher-kva.example",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			u, err := urltarget.Parse(tt.url)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			got, err := urltarget.New(u)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("target mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		url  string
		want error
	}{
		{"ftp://example.com/file", errors.ErrUnsupportedScheme},
		{"file:///etc/hosts", errors.ErrMissingHost},
		{"http://example.com:0/", errors.ErrInvalidURL},
	}

	for _, tt := range tests {
		u, err := urltarget.Parse(tt.url)
		if err == nil {
			_, err = urltarget.New(u)
		}
		if !stderrors.Is(err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.url, err, tt.want)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := urltarget.Parse("http://[::1"); !stderrors.Is(err, errors.ErrInvalidURL) {
		t.Errorf("error = %v, want ErrInvalidURL", err)
	}
}

func TestHelpers(t *testing.T) {
	u, _ := urltarget.Parse("https://example.com:8443/a?b=c")
	target, err := urltarget.New(u)
	if err != nil {
		t.Fatal(err)
	}

	if got := target.AbsolutePath(); got != "https://example.com:8443/a" {
		t.Errorf("AbsolutePath = %q", got)
	}
	if got := target.HostHeader(); got != "example.com:8443" {
		t.Errorf("HostHeader = %q", got)
	}
	if got := target.Address(); got != "example.com:8443" {
		t.Errorf("Address = %q", got)
	}

	target.Port = 0
	if got := target.EffectivePort(); got != 443 {
		t.Errorf("EffectivePort = %d, want 443", got)
	}
	if got := target.HostHeader(); got != "example.com" {
		t.Errorf("HostHeader without port = %q", got)
	}
}

func TestSocketAddresses(t *testing.T) {
	resolver := staticResolver{
		"example.com": {
			netip.MustParseAddr("2001:db8::1"),
			netip.MustParseAddr("::ffff:10.0.5.2"),
		},
	}

	u, _ := urltarget.Parse("http://example.com/")
	target, _ := urltarget.New(u)

	got, err := target.SocketAddresses(context.Background(), resolver)
	if err != nil {
		t.Fatalf("SocketAddresses: %v", err)
	}

	want := []string{"[2001:db8::1]:80", "10.0.5.2:80"}
	var gotStr []string
	for _, a := range got {
		gotStr = append(gotStr, a.String())
	}
	if diff := cmp.Diff(want, gotStr); diff != "" {
		t.Errorf("addresses mismatch (-want +got):\n%s", diff)
	}
}

func TestSocketAddressesFailure(t *testing.T) {
	u, _ := urltarget.Parse("https://missing.example/")
	target, _ := urltarget.New(u)

	_, err := target.SocketAddresses(context.Background(), staticResolver{})
	if errors.GetErrorType(err) != errors.ErrorTypeDNS {
		t.Errorf("error = %v, want dns error", err)
	}
}
