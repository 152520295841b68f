// Package hur is a minimal HTTP/1.1 client that writes requests over raw
// TCP or TLS connections, optionally through an HTTP proxy, and parses the
// response bytes itself.
package hur

import (
	"context"
	"net/url"

	"github.com/WhileEndless/go-hur/pkg/constants"
	"github.com/WhileEndless/go-hur/pkg/errors"
	"github.com/WhileEndless/go-hur/pkg/headers"
	"github.com/WhileEndless/go-hur/pkg/proxy"
	"github.com/WhileEndless/go-hur/pkg/request"
	"github.com/WhileEndless/go-hur/pkg/requester"
	"github.com/WhileEndless/go-hur/pkg/response"
	"github.com/WhileEndless/go-hur/pkg/timing"
	"github.com/WhileEndless/go-hur/pkg/urltarget"
)

// Version is the current version of hur
const Version = constants.Version

// GetVersion returns the current version of the library
func GetVersion() string {
	return Version
}

// Re-export key types for easier usage
type (
	// Headers is a case-insensitive multi-valued header map.
	Headers = headers.Headers

	// Options controls how a Request is built.
	Options = request.Options

	// Body is a request payload.
	Body = request.Body

	// Request is a resolved request, ready to be sent.
	Request = request.Request

	// Response represents a parsed HTTP response.
	Response = response.Response

	// ProxyConfig is a snapshot of the proxy environment.
	ProxyConfig = proxy.Config

	// RedirectMode decides what happens to redirect responses.
	RedirectMode = requester.RedirectMode

	// Requester sends requests and follows redirects.
	Requester = requester.Requester

	// Metrics captures timing information for a request.
	Metrics = timing.Metrics

	// Error represents a structured error with context information.
	Error = errors.Error
)

// Redirect modes
const (
	NoFollow    = requester.NoFollow
	Follow      = requester.Follow
	Interactive = requester.Interactive
)

// Re-export error types for convenience
const (
	ErrorTypeValidation = errors.ErrorTypeValidation
	ErrorTypeDNS        = errors.ErrorTypeDNS
	ErrorTypeConnection = errors.ErrorTypeConnection
	ErrorTypeTLS        = errors.ErrorTypeTLS
	ErrorTypeTunnel     = errors.ErrorTypeTunnel
	ErrorTypeTimeout    = errors.ErrorTypeTimeout
	ErrorTypeIO         = errors.ErrorTypeIO
	ErrorTypeProtocol   = errors.ErrorTypeProtocol
	ErrorTypeRedirect   = errors.ErrorTypeRedirect
	ErrorTypeProxy      = errors.ErrorTypeProxy
)

// NewHeaders returns an empty header map.
func NewHeaders() *Headers {
	return headers.New()
}

// NewRequest parses rawURL and builds a Request.
func NewRequest(ctx context.Context, rawURL string, opts Options) (*Request, error) {
	u, err := urltarget.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return request.New(ctx, u, opts)
}

// New creates a Requester.
func New(mode RedirectMode, opts ...requester.Option) *Requester {
	return requester.New(mode, opts...)
}

// Do sends one request to rawURL, following redirects, with the proxy
// settings of the environment.
func Do(ctx context.Context, method, rawURL string, hs *Headers, body *Body) (*Response, error) {
	req, err := NewRequest(ctx, rawURL, Options{
		Method:  method,
		Headers: hs,
		Body:    body,
		Proxy:   proxy.FromEnvironment(),
	})
	if err != nil {
		return nil, err
	}
	return New(Follow).Do(ctx, req)
}

// ParseURL parses and validates a target URL.
func ParseURL(rawURL string) (*url.URL, error) {
	return urltarget.Parse(rawURL)
}
