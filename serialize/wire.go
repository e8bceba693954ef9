// Package serialize turns an envelope.Envelope into the wire JSON shape
// spec.md §6 defines, delegating each redaction-tagged payload field to
// the redact package first. Field discovery reads Go struct tags
// (`redact:"type=...,strategy=...,level=..."`) through reflect, per spec.md §9's "runtime attribute/tag
// inspection where the target language offers it cheaply" option.
package serialize

import (
	"encoding/json"
	"time"
)

const timeLayout = time.RFC3339Nano

type wireValue struct {
	Value string `json:"value"`
}

type wireSource struct {
	Service       string `json:"service"`
	Environment   string `json:"environment"`
	InstanceID    string `json:"instanceId"`
	Host          string `json:"host"`
	Version       string `json:"version"`
	CorrelationID string `json:"correlationId,omitempty"`
	CausationID   string `json:"causationId,omitempty"`
	RootEventID   string `json:"rootEventId,omitempty"`
}

type wireActor struct {
	ID   string `json:"id,omitempty"`
	Role string `json:"role,omitempty"`
	IP   string `json:"ip,omitempty"`
}

type wireTrace struct {
	TraceID       string `json:"traceId,omitempty"`
	SpanID        string `json:"spanId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

type wireSchema struct {
	Name     string `json:"name"`
	Version  int    `json:"version"`
	SchemaID string `json:"schemaId,omitempty"`
}

type wireMetadata struct {
	Source wireSource        `json:"source"`
	Actor  wireActor         `json:"actor"`
	Trace  wireTrace         `json:"trace"`
	Schema wireSchema        `json:"schema"`
	Tags   map[string]string `json:"tags"`
}

type wireEnvelope struct {
	EventID     wireValue       `json:"eventId"`
	EventType   wireValue       `json:"eventType"`
	Severity    string          `json:"severity"`
	Metadata    wireMetadata    `json:"metadata"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  string          `json:"occurredAt"`
	PublishedAt string          `json:"publishedAt"`
}
