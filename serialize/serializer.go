package serialize

import (
	"encoding/json"

	"example.com/curve/curveerr"
	"example.com/curve/envelope"
	"example.com/curve/eventctx"
	"example.com/curve/redact"
)

// Serializer turns an Envelope into wire bytes and back, delegating
// tagged payload fields to a redact.Processor. A nil Processor is
// valid: Serialize then uses a Processor with no key material, so MASK
// fields are still masked, HASH uses an empty salt, and ENCRYPT fields
// fail.
type Serializer struct {
	Processor *redact.Processor
}

// New constructs a Serializer.
func New(proc *redact.Processor) *Serializer {
	return &Serializer{Processor: proc}
}

// Serialize renders env as the JSON wire shape spec.md §6 defines,
// using s's configured redaction processor (a nil Serializer, or one
// with a nil Processor, uses a Processor with no key material: MASK and
// HASH still apply, ENCRYPT fails). Any field error in the
// processor (typically PiiCrypto from an unconfigured ENCRYPT key) is
// wrapped as KindSerialization, matching spec.md §7's "a redaction
// processor fails" case. Generic methods are not expressible in Go, so
// this is a free function taking the Serializer as its first argument
// rather than a method.
func Serialize[T envelope.EventPayload](s *Serializer, env envelope.Envelope[T]) ([]byte, error) {
	var proc *redact.Processor
	if s != nil {
		proc = s.Processor
	}
	if proc == nil {
		proc = redact.NewProcessor(nil, nil)
	}

	redacted, err := redactPayload(proc, env.Payload)
	if err != nil {
		return nil, curveerr.New(curveerr.KindSerialization, "redaction processor failed for payload field", err)
	}

	payloadJSON, err := json.Marshal(redacted)
	if err != nil {
		return nil, curveerr.New(curveerr.KindSerialization, "payload is not JSON-serializable", err)
	}

	wire := wireEnvelope{
		EventID:   wireValue{Value: env.EventID},
		EventType: wireValue{Value: env.EventType},
		Severity:  string(env.Severity),
		Metadata: wireMetadata{
			Source: wireSource{
				Service:       env.Metadata.Source.Service,
				Environment:   env.Metadata.Source.Environment,
				InstanceID:    env.Metadata.Source.InstanceID,
				Host:          env.Metadata.Source.Host,
				Version:       env.Metadata.Source.Version,
				CorrelationID: env.Metadata.Source.CorrelationID,
				CausationID:   env.Metadata.Source.CausationID,
				RootEventID:   env.Metadata.Source.RootEventID,
			},
			Actor: wireActor{
				ID:   env.Metadata.Actor.ID,
				Role: env.Metadata.Actor.Role,
				IP:   env.Metadata.Actor.IP,
			},
			Trace: wireTrace{
				TraceID:       env.Metadata.Trace.TraceID,
				SpanID:        env.Metadata.Trace.SpanID,
				CorrelationID: env.Metadata.Trace.CorrelationID,
			},
			Schema: wireSchema{
				Name:     env.Metadata.Schema.Name,
				Version:  env.Metadata.Schema.Version,
				SchemaID: env.Metadata.Schema.ID,
			},
			Tags: env.Metadata.Tags(),
		},
		Payload:     payloadJSON,
		OccurredAt:  env.OccurredAt.UTC().Format(timeLayout),
		PublishedAt: env.PublishedAt.UTC().Format(timeLayout),
	}

	out, err := json.Marshal(wire)
	if err != nil {
		return nil, curveerr.New(curveerr.KindSerialization, "envelope is not JSON-serializable", err)
	}
	return out, nil
}

// Deserialize parses wire bytes produced by Serialize back into an
// Envelope[T]. Payload fields are returned exactly as stored on the
// wire (e.g. still masked or still encrypted); callers needing the
// original plaintext of an ENCRYPT field call redact.Processor.Reveal
// themselves, using the same struct tag the field was serialized with.
func Deserialize[T envelope.EventPayload](data []byte) (envelope.Envelope[T], error) {
	var wire wireEnvelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return envelope.Envelope[T]{}, curveerr.New(curveerr.KindSerialization, "wire envelope is not valid JSON", err)
	}

	var payload T
	if err := json.Unmarshal(wire.Payload, &payload); err != nil {
		return envelope.Envelope[T]{}, curveerr.New(curveerr.KindSerialization, "wire payload does not match the expected type", err)
	}

	occurredAt, err := parseTime(wire.OccurredAt)
	if err != nil {
		return envelope.Envelope[T]{}, curveerr.New(curveerr.KindSerialization, "occurredAt is not a valid timestamp", err)
	}
	publishedAt, err := parseTime(wire.PublishedAt)
	if err != nil {
		return envelope.Envelope[T]{}, curveerr.New(curveerr.KindSerialization, "publishedAt is not a valid timestamp", err)
	}

	meta := eventctx.NewMetadata(
		eventctx.Source{
			Service:       wire.Metadata.Source.Service,
			Environment:   wire.Metadata.Source.Environment,
			InstanceID:    wire.Metadata.Source.InstanceID,
			Host:          wire.Metadata.Source.Host,
			Version:       wire.Metadata.Source.Version,
			CorrelationID: wire.Metadata.Source.CorrelationID,
			CausationID:   wire.Metadata.Source.CausationID,
			RootEventID:   wire.Metadata.Source.RootEventID,
		},
		eventctx.Actor{
			ID:   wire.Metadata.Actor.ID,
			Role: wire.Metadata.Actor.Role,
			IP:   wire.Metadata.Actor.IP,
		},
		eventctx.Trace{
			TraceID:       wire.Metadata.Trace.TraceID,
			SpanID:        wire.Metadata.Trace.SpanID,
			CorrelationID: wire.Metadata.Trace.CorrelationID,
		},
		eventctx.Schema{
			Name:    wire.Metadata.Schema.Name,
			Version: wire.Metadata.Schema.Version,
			ID:      wire.Metadata.Schema.SchemaID,
		},
		wire.Metadata.Tags,
	)

	return envelope.Envelope[T]{
		EventID:     wire.EventID.Value,
		EventType:   wire.EventType.Value,
		Severity:    envelope.Severity(wire.Severity),
		Metadata:    meta,
		Payload:     payload,
		OccurredAt:  occurredAt,
		PublishedAt: publishedAt,
	}, nil
}
