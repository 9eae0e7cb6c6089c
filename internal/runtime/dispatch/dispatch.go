// Package dispatch turns a method name and argument object into a boundary
// call and decodes the reply.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/mediabridge/internal/runtime/endpoint"
	"github.com/drblury/mediabridge/internal/runtime/envelope"
	errspkg "github.com/drblury/mediabridge/internal/runtime/errors"
	"github.com/drblury/mediabridge/internal/runtime/jsoncodec"
	"github.com/drblury/mediabridge/internal/runtime/logging"
)

const (
	// MethodInitialize sets up the boundary environment before it is forwarded.
	MethodInitialize = "RtcEngine_initialize"
	// MethodRelease tears the boundary environment down after it is forwarded.
	MethodRelease = "RtcEngine_release"
)

// Call outcomes reported to the Recorder.
const (
	OutcomeOK          = "ok"
	OutcomeNegative    = "negative"
	OutcomeSynthesized = "synthesized"
	OutcomeFailed      = "failed"
	OutcomeReleased    = "released"
)

// Recorder observes finished calls.
type Recorder interface {
	RecordCall(method, outcome string, duration time.Duration)
}

// Dispatcher forwards calls to a boundary endpoint.
type Dispatcher struct {
	endpoint endpoint.Endpoint
	rules    envelope.Rules
	logger   logging.ServiceLogger
	tracer   trace.Tracer
	recorder Recorder
	debug    bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRules replaces the buffer extraction rules.
func WithRules(rules envelope.Rules) Option {
	return func(d *Dispatcher) {
		if rules != nil {
			d.rules = rules
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logging.ServiceLogger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.logger = log
		}
	}
}

// WithDebug raises the severity of failed and negative calls.
func WithDebug(debug bool) Option {
	return func(d *Dispatcher) { d.debug = debug }
}

// WithTracer sets the tracer used for call spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithRecorder reports every finished call to rec.
func WithRecorder(rec Recorder) Option {
	return func(d *Dispatcher) { d.recorder = rec }
}

// New creates a dispatcher for ep.
func New(ep endpoint.Endpoint, opts ...Option) (*Dispatcher, error) {
	if ep == nil {
		return nil, errspkg.ErrEndpointRequired
	}
	d := &Dispatcher{
		endpoint: ep,
		rules:    envelope.DefaultRules(),
		logger:   logging.NewNop(),
		tracer:   otel.Tracer("github.com/drblury/mediabridge/dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Rules returns the extraction rules in use.
func (d *Dispatcher) Rules() envelope.Rules {
	return d.rules
}

// Call performs a boundary call. It never panics and never returns an
// error: failures are logged and produce an empty Result.
func (d *Dispatcher) Call(ctx context.Context, method string, args envelope.Payload, opts ...CallOption) Result {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	switch method {
	case MethodInitialize:
		d.environment(method, d.endpoint.InitializeEnvironment)
		return d.invoke(ctx, method, args, o, true)
	case MethodRelease:
		d.invoke(ctx, method, args, o, false)
		d.environment(method, d.endpoint.ReleaseEnvironment)
		return Result{}
	default:
		return d.invoke(ctx, method, args, o, true)
	}
}

func (d *Dispatcher) environment(method string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			d.fail(method, fmt.Errorf("environment panic: %v", r))
		}
	}()
	if err := fn(); err != nil {
		d.fail(method, fmt.Errorf("environment: %w", err))
	}
}

func (d *Dispatcher) invoke(ctx context.Context, method string, args envelope.Payload, o callOptions, decode bool) (res Result) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	_, span := d.tracer.Start(ctx, "mediabridge.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("mediabridge.method", method)),
	)
	outcome := OutcomeFailed

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			d.fail(method, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			res, outcome = Result{}, OutcomeFailed
		}
		if d.recorder != nil {
			d.recorder.RecordCall(method, outcome, time.Since(start))
		}
		span.End()
	}()

	stripped, buffers := d.rules.Extract(method, args)
	body, err := jsoncodec.MarshalToString(o.wrap(stripped))
	if err != nil {
		d.fail(method, fmt.Errorf("marshal arguments: %w", err))
		span.RecordError(err)
		return Result{}
	}
	span.SetAttributes(attribute.Int("mediabridge.buffers", len(buffers)))

	code, text, err := d.endpoint.InvokeCall(method, body, buffers)
	if err != nil {
		d.fail(method, fmt.Errorf("invoke: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}
	}
	span.SetAttributes(attribute.Int("mediabridge.code", code))

	if !decode {
		outcome = OutcomeReleased
		return Result{}
	}
	res, outcome = d.decode(method, code, text)
	return res
}

func (d *Dispatcher) decode(method string, code int, text string) (Result, string) {
	fields := logging.LogFields{"method": method, "code": code}

	if text == "" {
		res := Result{Payload: envelope.Payload{"result": int64(code)}}
		if d.debug {
			d.logger.Error("boundary call returned no result text", nil, fields)
		} else {
			d.logger.Warn("boundary call returned no result text", fields)
		}
		return res, OutcomeSynthesized
	}

	payload, ok := envelope.Parse(text)
	if !ok {
		d.fail(method, fmt.Errorf("decode result: %q is not a JSON object", text))
		return Result{}, OutcomeFailed
	}
	res := Result{Payload: payload}

	if n, ok := res.Code(); ok && n < 0 {
		fields["result"] = n
		if d.debug {
			d.logger.Error("boundary call returned a negative result", nil, fields)
		} else {
			d.logger.Debug("boundary call returned a negative result", fields)
		}
		return res, OutcomeNegative
	}
	return res, OutcomeOK
}

func (d *Dispatcher) fail(method string, err error) {
	fields := logging.LogFields{"method": method}
	if d.debug {
		d.logger.Error("boundary call failed", err, fields)
		return
	}
	fields["error"] = err.Error()
	d.logger.Warn("boundary call failed", fields)
}
