package serialize_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/curve/clock"
	"example.com/curve/envelope"
	"example.com/curve/eventctx"
	"example.com/curve/idgen"
	"example.com/curve/redact"
	"example.com/curve/serialize"
)

type userRegistered struct {
	UserID string
	Email  string `redact:"type=EMAIL,strategy=MASK,level=NORMAL"`
	SSN    string `redact:"type=CUSTOM,strategy=ENCRYPT"`
}

func (userRegistered) EventTypeTag() string { return "user.registered" }

func buildEnvelope(t *testing.T, payload userRegistered) envelope.Envelope[userRegistered] {
	t.Helper()
	gen, err := idgen.New(1)
	require.NoError(t, err)
	f := envelope.NewFactory(gen, clock.System{})

	meta := eventctx.NewMetadata(
		eventctx.Source{Service: "accounts"},
		eventctx.Actor{},
		eventctx.Trace{},
		eventctx.Schema{Name: "UserRegistered", Version: 1},
		nil,
	)

	env, err := envelope.New(f, payload, envelope.SeverityInfo, meta)
	require.NoError(t, err)
	return env
}

func testCryptoKey() string {
	return base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"[:32]))
}

func TestSerializeMasksEmailField(t *testing.T) {
	env := buildEnvelope(t, userRegistered{UserID: "u-1", Email: "jane@example.com"})

	crypto, err := redact.NewCrypto(testCryptoKey(), "")
	require.NoError(t, err)
	s := serialize.New(redact.NewProcessor(crypto, nil))

	data, err := serialize.Serialize(s, env)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	payload := parsed["payload"].(map[string]any)
	require.Equal(t, "ja**@ex*****.com", payload["Email"])
	require.Equal(t, "u-1", payload["UserID"])
	require.NotEqual(t, "", payload["SSN"])
}

func TestSerializeWithoutKeyFailsOnEncryptField(t *testing.T) {
	env := buildEnvelope(t, userRegistered{UserID: "u-1", Email: "jane@example.com", SSN: "123-45-6789"})

	s := serialize.New(redact.NewProcessor(nil, nil))
	_, err := serialize.Serialize(s, env)
	require.Error(t, err)
}

func TestSerializeDeserializeRoundTripDecryptsOriginal(t *testing.T) {
	env := buildEnvelope(t, userRegistered{UserID: "u-1", Email: "jane@example.com", SSN: "123-45-6789"})

	crypto, err := redact.NewCrypto(testCryptoKey(), "")
	require.NoError(t, err)
	proc := redact.NewProcessor(crypto, nil)
	s := serialize.New(proc)

	data, err := serialize.Serialize(s, env)
	require.NoError(t, err)

	parsedEnv, err := serialize.Deserialize[userRegistered](data)
	require.NoError(t, err)
	require.Equal(t, env.EventID, parsedEnv.EventID)

	decrypted, err := proc.Reveal(redact.Rule{Strategy: redact.StrategyEncrypt}, parsedEnv.Payload.SSN)
	require.NoError(t, err)
	require.Equal(t, "123-45-6789", decrypted)
}

type profileUpdated struct {
	UserID string
	Name   string `redact:"type=NAME,strategy=MASK,level=NORMAL"`
}

func (profileUpdated) EventTypeTag() string { return "profile.updated" }

func TestSerializeWithNilSerializerStillAppliesMask(t *testing.T) {
	// A nil *Serializer has no configured crypto, but MASK needs none:
	// only ENCRYPT/HASH require a Processor with key material.
	gen, err := idgen.New(2)
	require.NoError(t, err)
	f := envelope.NewFactory(gen, clock.System{})
	meta := eventctx.NewMetadata(eventctx.Source{Service: "accounts"}, eventctx.Actor{}, eventctx.Trace{}, eventctx.Schema{Name: "ProfileUpdated", Version: 1}, nil)
	env, err := envelope.New(f, profileUpdated{UserID: "u-1", Name: "John Doe"}, envelope.SeverityInfo, meta)
	require.NoError(t, err)

	data, err := serialize.Serialize[profileUpdated](nil, env)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	payload := parsed["payload"].(map[string]any)
	require.Equal(t, "J******e", payload["Name"])
}
