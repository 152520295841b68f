// Package requester sends requests, fails over between candidate addresses
// and follows redirects.
package requester

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/WhileEndless/go-hur/pkg/constants"
	"github.com/WhileEndless/go-hur/pkg/errors"
	"github.com/WhileEndless/go-hur/pkg/headers"
	"github.com/WhileEndless/go-hur/pkg/logger"
	"github.com/WhileEndless/go-hur/pkg/request"
	"github.com/WhileEndless/go-hur/pkg/response"
	"github.com/WhileEndless/go-hur/pkg/timing"
	"github.com/WhileEndless/go-hur/pkg/transport"
	"github.com/WhileEndless/go-hur/pkg/urltarget"
)

// Requester sends a Request and applies its redirect mode to the answer.
type Requester struct {
	mode         RedirectMode
	connector    transport.Connector
	logger       *zap.Logger
	tracer       trace.Tracer
	propagator   propagation.TextMapPropagator
	in           *bufio.Reader
	out          io.Writer
	maxRedirects int
	tlsConfig    *tls.Config
}

// New creates a Requester.
func New(mode RedirectMode, opts ...Option) *Requester {
	r := &Requester{
		mode:         mode,
		maxRedirects: constants.MaxRedirects,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = logger.L()
	}
	if r.tracer == nil {
		r.tracer = noop.NewTracerProvider().Tracer("hur/requester")
	}
	if r.propagator == nil {
		r.propagator = otel.GetTextMapPropagator()
	}
	if r.in == nil {
		r.in = bufio.NewReader(os.Stdin)
	}
	if r.out == nil {
		r.out = os.Stderr
	}
	return r
}

// Mode returns the redirect mode.
func (r *Requester) Mode() RedirectMode {
	return r.mode
}

// Do sends req and returns the final response.
func (r *Requester) Do(ctx context.Context, req *request.Request) (*response.Response, error) {
	ctx, span := r.tracer.Start(ctx, "requester.do")
	defer span.End()
	span.SetAttributes(attribute.String("url", req.Target.FullPath))

	log := r.logger.With(zap.String("trace_id", traceID(span)))

	for hops := 0; ; hops++ {
		resp, err := r.send(ctx, req, log)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		span.SetAttributes(attribute.Int("status", resp.StatusCode))

		next, err := r.nextHop(ctx, req, resp, log)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if next == nil {
			return resp, nil
		}
		if hops >= r.maxRedirects {
			return nil, errors.NewRedirectError(fmt.Sprintf("stopped after %d redirects", r.maxRedirects), errors.ErrTooManyRedirects)
		}
		req = next
	}
}

// traceID returns the span's trace ID, or a random one when tracing is off.
func traceID(span trace.Span) string {
	if id := span.SpanContext().TraceID(); id.IsValid() {
		return id.String()
	}
	return uuid.New().String()
}

// send tries every candidate address in order. The first one that answers
// wins. Only transport errors move on to the next address.
func (r *Requester) send(ctx context.Context, req *request.Request, log *zap.Logger) (*response.Response, error) {
	wire := *req
	wire.Headers = req.Headers.Clone()
	r.propagator.Inject(ctx, headerCarrier{wire.Headers})
	message := wire.Build()
	connector := r.connectorFor(req, log)

	var lastErr error
	for _, addr := range req.Servers {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewIOError("request", err)
		}

		log.Info("trying server", zap.Stringer("server", addr), zap.Bool("proxy", req.Proxy))
		timer := timing.NewTimer()

		raw, err := r.attempt(ctx, connector, req, addr, message, timer)
		if err != nil {
			if !errors.IsTransportError(err) {
				return nil, err
			}
			log.Warn("request to server failed",
				zap.Stringer("server", addr),
				zap.Bool("timeout", errors.IsTimeoutError(err)),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		resp, err := response.Parse(raw, req.Method)
		if err != nil {
			return nil, err
		}
		metrics := timer.GetMetrics()
		resp.Server = addr.String()
		resp.Timings = &metrics

		log.Debug("response received",
			zap.Stringer("server", addr),
			zap.Int("status", resp.StatusCode),
			zap.Duration("connect", metrics.GetConnectionTime()),
			zap.Duration("total", metrics.TotalTime),
		)
		return resp, nil
	}

	return nil, errors.NewNoServerError(len(req.Servers), lastErr)
}

func (r *Requester) attempt(ctx context.Context, c transport.Connector, req *request.Request, addr netip.AddrPort, message []byte, timer *timing.Timer) ([]byte, error) {
	ctx, span := r.tracer.Start(ctx, "requester.attempt")
	defer span.End()
	span.SetAttributes(attribute.String("server", addr.String()))

	var (
		raw []byte
		err error
	)
	if req.Target.Scheme == urltarget.HTTPS {
		server := transport.Endpoint{Host: req.Target.HostName(), Port: req.Target.EffectivePort()}
		raw, err = c.HTTPSRequest(ctx, addr, server, message, timer)
	} else {
		raw, err = c.HTTPRequest(ctx, addr, message, timer)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return raw, err
}

func (r *Requester) connectorFor(req *request.Request, log *zap.Logger) transport.Connector {
	if r.connector != nil {
		return r.connector
	}
	config := transport.Config{
		ReadTimeout: req.Timeout,
		TLSConfig:   r.tlsConfig,
		Logger:      log,
	}
	if req.Proxy {
		return transport.NewProxy(config)
	}
	return transport.NewRegular(config)
}

// nextHop returns the request to send next, or nil when resp is final.
func (r *Requester) nextHop(ctx context.Context, req *request.Request, resp *response.Response, log *zap.Logger) (*request.Request, error) {
	if r.mode == NoFollow || !resp.IsRedirect() {
		return nil, nil
	}

	location := resp.Headers.First("Location")
	if location == "" {
		return nil, errors.NewRedirectError(fmt.Sprintf("%d response", resp.StatusCode), errors.ErrMissingLocationHeader)
	}

	target, err := req.URL.Parse(location)
	if err != nil {
		return nil, errors.NewRedirectError(fmt.Sprintf("location %q", location), fmt.Errorf("%w: %w", errors.ErrInvalidRedirectURL, err))
	}

	if r.mode == Interactive && !r.confirm(target.String()) {
		log.Info("redirect declined", zap.String("location", target.String()))
		return nil, nil
	}

	log.Info("following redirect", zap.Int("status", resp.StatusCode), zap.String("location", target.String()))
	return req.Redirect(ctx, target)
}

// confirm asks whether to follow a redirect. An empty answer or one
// starting with y means yes.
func (r *Requester) confirm(location string) bool {
	fmt.Fprintf(r.out, "Redirect to %s? [Y, n]: ", location)
	line, err := r.in.ReadString('\n')
	if err != nil && line == "" && err != io.EOF {
		return false
	}
	answer := strings.TrimSpace(line)
	return answer == "" || answer[0] == 'y' || answer[0] == 'Y'
}

// headerCarrier lets otel propagators write into request headers.
type headerCarrier struct {
	h *headers.Headers
}

func (c headerCarrier) Get(key string) string {
	return c.h.First(key)
}

func (c headerCarrier) Set(key, value string) {
	c.h.Set(key, value)
}

func (c headerCarrier) Keys() []string {
	return c.h.Keys()
}
