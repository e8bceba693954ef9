package eventctx

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// SourceProvider yields the EventSource for a publish call. Implementations
// typically close over static process identity (service name, environment,
// instance id) set once at startup.
type SourceProvider interface {
	Source(ctx context.Context) Source
}

// ActorProvider yields the EventActor for a publish call, typically reading
// from request-scoped context the way the reference stack's
// auth.FromContext reads JWT claims.
type ActorProvider interface {
	Actor(ctx context.Context) Actor
}

// TraceProvider yields the EventTrace for a publish call.
type TraceProvider interface {
	Trace(ctx context.Context) Trace
}

// TagsProvider yields the tag map for a publish call.
type TagsProvider interface {
	Tags(ctx context.Context) map[string]string
}

// StaticSource is a SourceProvider that always returns the same Source,
// useful when the caller has no per-call identity to contribute beyond the
// process's own coordinates.
type StaticSource struct {
	Value Source
}

// Source returns the configured static value.
func (s StaticSource) Source(context.Context) Source {
	return s.Value
}

// NoActor is an ActorProvider returning an empty Actor, matching spec.md
// §9's permissive "all-null fields" construction.
type NoActor struct{}

// Actor returns the zero Actor.
func (NoActor) Actor(context.Context) Actor { return Actor{} }

// OTelTrace is a TraceProvider that reads the active OpenTelemetry span
// from ctx, grounded on the reference stack's telemetry propagation
// (oriys-nova/internal/observability). It never initializes a tracer
// provider itself — that configuration is the caller's responsibility; this
// provider only reads whatever span is already active.
type OTelTrace struct{}

// Trace extracts traceId/spanId from the active span, if any.
func (OTelTrace) Trace(ctx context.Context) Trace {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return Trace{}
	}
	return Trace{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// StaticTags is a TagsProvider that always returns a copy of the same map.
type StaticTags struct {
	Value map[string]string
}

// Tags returns a defensive copy of the configured tag map.
func (s StaticTags) Tags(context.Context) map[string]string {
	copied := make(map[string]string, len(s.Value))
	for k, v := range s.Value {
		copied[k] = v
	}
	return copied
}

// Providers bundles the four provider interfaces the envelope factory
// needs to assemble Metadata for a single publish call.
type Providers struct {
	Source SourceProvider
	Actor  ActorProvider
	Trace  TraceProvider
	Tags   TagsProvider
	Schema Schema
}

// Metadata assembles the full Metadata block for a publish call by
// invoking each configured provider. A nil Actor/Trace/Tags provider
// degrades to the permissive zero value rather than panicking.
func (p Providers) Metadata(ctx context.Context) Metadata {
	var source Source
	if p.Source != nil {
		source = p.Source.Source(ctx)
	}

	var actor Actor
	if p.Actor != nil {
		actor = p.Actor.Actor(ctx)
	}

	var tr Trace
	if p.Trace != nil {
		tr = p.Trace.Trace(ctx)
	}

	var tags map[string]string
	if p.Tags != nil {
		tags = p.Tags.Tags(ctx)
	}

	return NewMetadata(source, actor, tr, p.Schema, tags)
}
