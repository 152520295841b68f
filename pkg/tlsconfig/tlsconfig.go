// Package tlsconfig builds the client TLS configuration used for https
// targets.
package tlsconfig

import "crypto/tls"

// TLS protocol versions accepted by profiles.
const (
	VersionTLS10 uint16 = tls.VersionTLS10
	VersionTLS11 uint16 = tls.VersionTLS11
	VersionTLS12 uint16 = tls.VersionTLS12
	VersionTLS13 uint16 = tls.VersionTLS13
)

// VersionProfile is a range of acceptable TLS versions.
type VersionProfile struct {
	Min         uint16
	Max         uint16
	Description string
}

// ProfileSecure accepts TLS 1.2 and 1.3. It is the default.
var ProfileSecure = VersionProfile{
	Min:         VersionTLS12,
	Max:         VersionTLS13,
	Description: "TLS 1.2+",
}

// GetVersionName returns human-readable name for a TLS version
func GetVersionName(version uint16) string {
	switch version {
	case VersionTLS10:
		return "TLS 1.0"
	case VersionTLS11:
		return "TLS 1.1"
	case VersionTLS12:
		return "TLS 1.2"
	case VersionTLS13:
		return "TLS 1.3"
	default:
		return "Unknown"
	}
}

// ApplyVersionProfile applies a version profile to config
func ApplyVersionProfile(config *tls.Config, profile VersionProfile) {
	config.MinVersion = profile.Min
	config.MaxVersion = profile.Max
}

// Client returns the configuration for a handshake with serverName.
// base, if not nil, is cloned and keeps its roots, certificates and
// versions; otherwise ProfileSecure applies. ALPN is always http/1.1.
func Client(base *tls.Config, serverName string) *tls.Config {
	var config *tls.Config
	if base != nil {
		config = base.Clone()
	} else {
		config = &tls.Config{}
		ApplyVersionProfile(config, ProfileSecure)
	}
	if config.MinVersion == 0 {
		config.MinVersion = ProfileSecure.Min
	}
	if config.ServerName == "" {
		config.ServerName = serverName
	}
	config.NextProtos = []string{"http/1.1"}
	return config
}
