package requester

import (
	"fmt"
	"strings"
)

// RedirectMode decides what happens to 301, 302, 307 and 308 responses.
type RedirectMode int

const (
	// NoFollow returns redirect responses as they are
	NoFollow RedirectMode = iota
	// Follow issues the request again to the Location
	Follow
	// Interactive asks before following
	Interactive
)

// String returns the config file form.
func (m RedirectMode) String() string {
	switch m {
	case Follow:
		return "FOLLOW"
	case Interactive:
		return "INTERACTIVE"
	default:
		return "NOFOLLOW"
	}
}

// ParseRedirectMode accepts FOLLOW, NOFOLLOW and INTERACTIVE as well as
// follow, no-follow and interactive. Case, dashes and underscores are
// ignored.
func ParseRedirectMode(s string) (RedirectMode, error) {
	norm := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "follow":
		return Follow, nil
	case "nofollow":
		return NoFollow, nil
	case "interactive":
		return Interactive, nil
	}
	return NoFollow, fmt.Errorf("unknown redirect mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m RedirectMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *RedirectMode) UnmarshalText(text []byte) error {
	mode, err := ParseRedirectMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
