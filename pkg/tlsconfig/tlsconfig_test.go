package tlsconfig_test

import (
	"crypto/tls"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/WhileEndless/go-hur/pkg/tlsconfig"
)

func TestGetVersionName(t *testing.T) {
	tests := map[uint16]string{
		tls.VersionTLS10: "TLS 1.0",
		tls.VersionTLS12: "TLS 1.2",
		tls.VersionTLS13: "TLS 1.3",
		0x9999:           "Unknown",
	}
	for v, want := range tests {
		if got := tlsconfig.GetVersionName(v); got != want {
			t.Errorf("GetVersionName(%#x) = %q, want %q", v, got, want)
		}
	}
}

func TestClientDefaults(t *testing.T) {
	c := tlsconfig.Client(nil, "example.com")

	if c.ServerName != "example.com" {
		t.Errorf("ServerName = %q", c.ServerName)
	}
	if c.MinVersion != tls.VersionTLS12 || c.MaxVersion != tls.VersionTLS13 {
		t.Errorf("versions = %s..%s", tlsconfig.GetVersionName(c.MinVersion), tlsconfig.GetVersionName(c.MaxVersion))
	}
	if diff := cmp.Diff([]string{"http/1.1"}, c.NextProtos); diff != "" {
		t.Errorf("NextProtos mismatch (-want +got):\n%s", diff)
	}
}

func TestClientKeepsBase(t *testing.T) {
	base := &tls.Config{InsecureSkipVerify: true}
	tlsconfig.ApplyVersionProfile(base, tlsconfig.VersionProfile{Min: tls.VersionTLS13, Max: tls.VersionTLS13})

	c := tlsconfig.Client(base, "example.com")
	if !c.InsecureSkipVerify || c.MinVersion != tls.VersionTLS13 {
		t.Errorf("base settings lost: %+v", c)
	}
	if base.ServerName != "" {
		t.Error("base config must not be modified")
	}

	base.ServerName = "override.example"
	if c := tlsconfig.Client(base, "example.com"); c.ServerName != "override.example" {
		t.Errorf("explicit ServerName replaced: %q", c.ServerName)
	}

	noMin := tlsconfig.Client(&tls.Config{}, "example.com")
	if noMin.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %#x, want TLS 1.2 floor", noMin.MinVersion)
	}
}
