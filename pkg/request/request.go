// Package request builds HTTP/1.1 request messages.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/WhileEndless/go-hur/pkg/constants"
	"github.com/WhileEndless/go-hur/pkg/errors"
	"github.com/WhileEndless/go-hur/pkg/headers"
	"github.com/WhileEndless/go-hur/pkg/proxy"
	"github.com/WhileEndless/go-hur/pkg/urltarget"
)

// ContentTypeJSON is the content type of JSON bodies.
const ContentTypeJSON = "application/json"

// Body is a request payload.
type Body struct {
	Content string
	// ContentType, when set, is sent as Content-Type unless the caller
	// already supplied one.
	ContentType string
}

// Options controls how a Request is built.
type Options struct {
	Method  string
	Headers *headers.Headers
	Body    *Body
	// Timeout is the read timeout of each attempt.
	Timeout time.Duration
	// Proxy is consulted for every hop. Nil sends the request direct.
	Proxy    *proxy.Config
	Resolver urltarget.Resolver
}

// Request is a fully resolved request, ready to be sent.
type Request struct {
	URL     *url.URL
	Target  urltarget.Target
	Method  string
	Headers *headers.Headers
	Body    *string
	Timeout time.Duration
	// Proxy is true when Servers are proxy addresses.
	Proxy   bool
	Servers []netip.AddrPort

	opts Options
}

// New resolves u and builds a Request for it.
func New(ctx context.Context, u *url.URL, opts Options) (*Request, error) {
	target, err := urltarget.New(u)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = "GET"
	}
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid method %q", opts.Method), nil)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultReadTimeout
	}

	servers, resolveErr := target.SocketAddresses(ctx, opts.Resolver)

	// Through a proxy the target itself need not resolve.
	proxied, err := opts.Proxy.Select(ctx, target, servers, opts.Resolver)
	if err != nil {
		return nil, err
	}
	if proxied == nil && resolveErr != nil {
		return nil, resolveErr
	}

	r := &Request{
		URL:     u,
		Target:  target,
		Method:  method,
		Headers: standardHeaders(opts.Headers, target.HostHeader()),
		Timeout: timeout,
		Servers: servers,
		opts:    opts,
	}
	if proxied != nil {
		r.Proxy = true
		r.Servers = proxied
	}

	if opts.Body != nil {
		content := opts.Body.Content
		r.Body = &content
		r.Headers.Set("Content-Length", strconv.Itoa(len(content)))
		if opts.Body.ContentType != "" && !r.Headers.Has("Content-Type") {
			r.Headers.Set("Content-Type", opts.Body.ContentType)
		}
	}

	return r, nil
}

// standardHeaders puts the caller's headers first, adds a User-Agent when
// the caller has none, then forces Host and Connection.
func standardHeaders(input *headers.Headers, host string) *headers.Headers {
	h := input.Clone()
	if !h.Has("User-Agent") {
		h.Add("User-Agent", constants.Name+"/"+constants.Version)
	}

	fixed := headers.New()
	fixed.Add(headers.Host, host)
	fixed.Add(headers.Connection, "close")
	h.Append(fixed)
	return h
}

// Redirect builds the next hop to u. Method, caller headers, timeout and
// proxy settings carry over; the body does not.
func (r *Request) Redirect(ctx context.Context, u *url.URL) (*Request, error) {
	opts := r.opts
	opts.Method = r.Method
	opts.Body = nil
	return New(ctx, u, opts)
}

// RequestURI is the target of the request line: the absolute URI for plain
// HTTP through a proxy, the path otherwise.
func (r *Request) RequestURI() string {
	path := r.Target.Path
	if r.Proxy && r.Target.Scheme == urltarget.HTTP {
		path = r.Target.AbsolutePath()
	}
	if r.Target.Query != "" {
		path += "?" + r.Target.Query
	}
	return path
}

// Build returns the wire message.
func (r *Request) Build() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s %s\r\n", r.Method, r.RequestURI(), constants.Protocol)
	r.Headers.Each(func(key, value string) {
		fmt.Fprintf(&b, "%s: %s\r\n", key, strings.TrimSpace(value))
	})
	if r.Body != nil {
		b.WriteString("\r\n")
		b.WriteString(*r.Body)
	}
	b.WriteString("\r\n\r\n")
	return b.Bytes()
}

type requestJSON struct {
	URL      string           `json:"url"`
	Scheme   urltarget.Scheme `json:"scheme"`
	Protocol string           `json:"protocol"`
	Method   string           `json:"method"`
	Path     string           `json:"path"`
	Headers  *headers.Headers `json:"headers"`
	Body     *string          `json:"body,omitempty"`
	Query    string           `json:"query,omitempty"`
}

// MarshalJSON renders the request for verbose output.
func (r *Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(requestJSON{
		URL:      r.Target.FullPath,
		Scheme:   r.Target.Scheme,
		Protocol: constants.Protocol,
		Method:   r.Method,
		Path:     r.Target.Path,
		Headers:  r.Headers,
		Body:     r.Body,
		Query:    r.Target.Query,
	})
}
