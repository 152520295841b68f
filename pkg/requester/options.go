package requester

import (
	"bufio"
	"crypto/tls"
	"io"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/WhileEndless/go-hur/pkg/transport"
)

// Option configures a Requester.
type Option func(*Requester)

// WithConnector sends every request through c instead of picking the
// direct or proxy connector per request.
func WithConnector(c transport.Connector) Option {
	return func(r *Requester) {
		r.connector = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Requester) {
		r.logger = l
	}
}

// WithTracer sets the tracer used for request and attempt spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Requester) {
		r.tracer = tracer
	}
}

// WithPropagator sets how trace context is written into outgoing headers.
// The default is the global otel propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(r *Requester) {
		r.propagator = p
	}
}

// WithPrompt sets where Interactive mode reads answers and writes
// questions. The defaults are stdin and stderr.
func WithPrompt(in io.Reader, out io.Writer) Option {
	return func(r *Requester) {
		r.in = bufio.NewReader(in)
		r.out = out
	}
}

// WithMaxRedirects bounds the number of redirects followed per Do.
func WithMaxRedirects(n int) Option {
	return func(r *Requester) {
		r.maxRedirects = n
	}
}

// WithTLSConfig sets the base TLS configuration of https requests.
func WithTLSConfig(config *tls.Config) Option {
	return func(r *Requester) {
		r.tlsConfig = config
	}
}
