package schema

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"example.com/curve/curveerr"
)

// wireMagicByte is the Confluent wire-format leading byte: magic byte
// (always 0) followed by a 4-byte big-endian schema id, then the
// payload.
const wireMagicByte = 0

// ConfluentClient is a minimal client for a Confluent-compatible schema
// registry, adapted from the reference stack's SchemaRegistryClient:
// the outbox Poller calls EnsureSchema once per event type and caches
// the resulting id, then frames every row it sends with EncodeWire.
type ConfluentClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewConfluentClient constructs a client with sane defaults.
func NewConfluentClient(baseURL string) *ConfluentClient {
	return &ConfluentClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// EnsureSchema returns subject's latest registered schema id, registering
// schema under subject if none exists yet.
func (c *ConfluentClient) EnsureSchema(ctx context.Context, subject string, schemaJSON string) (int, error) {
	if id, err := c.fetchLatest(ctx, subject); err == nil {
		return id, nil
	}
	return c.register(ctx, subject, schemaJSON)
}

// registryCall is one HTTP round trip against the registry that expects
// back a JSON body shaped like {"id": N}. verb/path/body describe the
// request; a 404 is reported via notFound (nil means treat 404 like any
// other non-2xx status); any other non-2xx status is wrapped as a
// curveerr of kind failureKind carrying the response body.
type registryCall struct {
	verb        string
	url         string
	body        io.Reader
	contentType string
	notFound    error
	failureKind curveerr.Kind
}

func (c *ConfluentClient) do(ctx context.Context, call registryCall) (int, error) {
	req, err := http.NewRequestWithContext(ctx, call.verb, call.url, call.body)
	if err != nil {
		return 0, err
	}
	if call.contentType != "" {
		req.Header.Set("Content-Type", call.contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case call.notFound != nil && resp.StatusCode == http.StatusNotFound:
		return 0, call.notFound
	case resp.StatusCode >= 300:
		data, _ := io.ReadAll(resp.Body)
		return 0, curveerr.New(call.failureKind, fmt.Sprintf("schema registry request to %s failed (%d): %s", call.url, resp.StatusCode, data), nil)
	}

	var decoded struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, err
	}
	return decoded.ID, nil
}

func (c *ConfluentClient) fetchLatest(ctx context.Context, subject string) (int, error) {
	return c.do(ctx, registryCall{
		verb:        http.MethodGet,
		url:         fmt.Sprintf("%s/subjects/%s/versions/latest", c.baseURL, subject),
		notFound:    curveerr.New(curveerr.KindTransientBroker, "schema subject not found", nil),
		failureKind: curveerr.KindTransientBroker,
	})
}

func (c *ConfluentClient) register(ctx context.Context, subject string, schemaJSON string) (int, error) {
	payload, err := json.Marshal(map[string]any{
		"schemaType": "JSON",
		"schema":     schemaJSON,
	})
	if err != nil {
		return 0, err
	}

	return c.do(ctx, registryCall{
		verb:        http.MethodPost,
		url:         fmt.Sprintf("%s/subjects/%s/versions", c.baseURL, subject),
		body:        bytes.NewReader(payload),
		contentType: "application/vnd.schemaregistry.v1+json",
		failureKind: curveerr.KindPermanentBroker,
	})
}

// EncodeWire frames payload in Confluent wire format: magic byte, then
// the 4-byte big-endian schema id, then payload verbatim.
func EncodeWire(schemaID int, payload []byte) []byte {
	out := make([]byte, 5+len(payload))
	out[0] = wireMagicByte
	binary.BigEndian.PutUint32(out[1:5], uint32(schemaID))
	copy(out[5:], payload)
	return out
}

// DecodeWire reverses EncodeWire.
func DecodeWire(wire []byte) (schemaID int, payload []byte, err error) {
	if len(wire) < 5 {
		return 0, nil, curveerr.New(curveerr.KindSerialization, "wire payload shorter than the 5-byte Confluent header", nil)
	}
	if wire[0] != wireMagicByte {
		return 0, nil, curveerr.New(curveerr.KindSerialization, "unexpected Confluent wire magic byte", nil)
	}
	id := binary.BigEndian.Uint32(wire[1:5])
	return int(id), wire[5:], nil
}
