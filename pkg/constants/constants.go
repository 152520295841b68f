// Package constants defines magic numbers and default values used throughout hur
package constants

import "time"

// Version is reported in the default User-Agent header.
const (
	Name    = "hur"
	Version = "0.4.0"
)

// Connection timeouts and limits
const (
	// ConnTimeout bounds the TCP connect of every attempt. It is not configurable.
	ConnTimeout         = 5 * time.Second
	DefaultReadTimeout  = 30 * time.Second
	TLSHandshakeTimeout = 10 * time.Second
	DNSTimeout          = 5 * time.Second
)

// HTTP
const (
	Protocol         = "HTTP/1.1"
	DefaultHTTPPort  = 80
	DefaultHTTPSPort = 443
	MaxRedirects     = 10

	// MaxConnectResponseSize caps the proxy reply to a CONNECT request.
	MaxConnectResponseSize = 8 * 1024
)
