package pipeline

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/estimate-executor/internal/core/result"
)

const tracerName = "github.com/tjfontaine/estimate-executor/internal/pipeline"

// Step is a unit of work. It receives the context built so far and returns a
// Result whose success payload is the context for the next step.
type Step[C, I any] func(ctx context.Context, in C) result.Result[C, error, I]

// Stage is a Step with a name used in logs, spans and metrics.
type Stage[C, I any] struct {
	Name string
	Step Step[C, I]
}

// Named pairs a step with a name.
func Named[C, I any](name string, step Step[C, I]) Stage[C, I] {
	return Stage[C, I]{Name: name, Step: step}
}

// Observer is notified after every step the executor runs.
type Observer interface {
	StepFinished(ctx context.Context, pipeline, step string, kind result.Kind, elapsed time.Duration)
}

// Option configures an Executor.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	observers []Observer
	tracer    trace.Tracer
}

// WithLogger sets the logger used for per-step debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver registers an observer. Observers are called in registration order.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithTracer overrides the tracer. By default the global otel provider is used.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// Executor runs a fixed, ordered list of stages.
// It holds no per-request state and is safe for concurrent use.
type Executor[C, I any] struct {
	name   string
	stages []Stage[C, I]
	opts   options
}

// New creates an executor. The stages slice is copied.
func New[C, I any](name string, stages []Stage[C, I], opts ...Option) *Executor[C, I] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	e := &Executor[C, I]{
		name:   name,
		stages: make([]Stage[C, I], len(stages)),
		opts:   o,
	}
	copy(e.stages, stages)
	return e
}

// Name returns the pipeline name.
func (e *Executor[C, I]) Name() string {
	return e.name
}

// Stages returns the stage names in execution order.
func (e *Executor[C, I]) Stages() []string {
	names := make([]string, len(e.stages))
	for i, s := range e.stages {
		names[i] = s.Name
	}
	return names
}

// Run executes every stage in order against initial and returns the last
// Result produced. It never panics because of a step.
func (e *Executor[C, I]) Run(ctx context.Context, initial C) result.Result[C, error, I] {
	current := result.Success[C, error, I](initial)

	for i, stage := range e.stages {
		in, ok := current.Value()
		if !ok {
			return current
		}

		start := time.Now()
		spanCtx, span := e.opts.tracer.Start(ctx, "pipeline.step",
			trace.WithAttributes(
				attribute.String("pipeline.name", e.name),
				attribute.String("pipeline.step", stage.Name),
				attribute.Int("pipeline.step_index", i),
			))

		next := invoke(spanCtx, stage, in)
		if !next.Valid() {
			next = result.Failure[C, error, I](&MalformedResultError{
				Pipeline: e.name,
				Step:     stage.Name,
				Index:    i,
				Value:    next,
			})
		}
		elapsed := time.Since(start)

		span.SetAttributes(attribute.String("pipeline.outcome", next.Kind().String()))
		if err, failed := next.Err(); failed && err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		e.opts.logger.LogAttrs(ctx, slog.LevelDebug, "pipeline step finished",
			slog.String("pipeline", e.name),
			slog.String("step", stage.Name),
			slog.String("outcome", next.Kind().String()),
			slog.Duration("duration", elapsed),
		)
		for _, obs := range e.opts.observers {
			obs.StepFinished(ctx, e.name, stage.Name, next.Kind(), elapsed)
		}

		current = next
	}

	return current
}

// Run executes steps in order against initial without naming or
// instrumentation.
func Run[C, I any](ctx context.Context, initial C, steps ...Step[C, I]) result.Result[C, error, I] {
	stages := make([]Stage[C, I], len(steps))
	for i, s := range steps {
		stages[i] = Stage[C, I]{Name: stepName(i), Step: s}
	}
	return New("anonymous", stages, WithLogger(discardLogger)).Run(ctx, initial)
}

// invoke calls the stage, turning a panic into an unexpected-error failure.
func invoke[C, I any](ctx context.Context, stage Stage[C, I], in C) (r result.Result[C, error, I]) {
	defer func() {
		if v := recover(); v != nil {
			r = result.Failure[C, error, I](newUnexpectedError(stage.Name, v, debug.Stack()))
		}
	}()

	return stage.Step(ctx, in)
}
