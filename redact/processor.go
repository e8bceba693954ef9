package redact

import "example.com/curve/curveerr"

// Processor dispatches a field's value to the transform its Rule names.
// It is the single entry point the serializer calls per tagged field,
// per spec.md §4.3's "Integration with serialization" note: look up the
// processor by strategy, invoke it, write the transformed value in
// place of the original. Inputs are never mutated.
type Processor struct {
	Crypto      *Crypto
	KeyProvider KeyProvider // non-nil enables envelope encryption instead of Crypto.Encrypt
}

// NewProcessor builds a Processor around crypto. kp may be nil; when
// nil, ENCRYPT uses crypto's default-key mode instead of envelope
// encryption.
func NewProcessor(crypto *Crypto, kp KeyProvider) *Processor {
	return &Processor{Crypto: crypto, KeyProvider: kp}
}

// Apply transforms value according to rule. A rule whose Condition
// returns false, or whose Strategy is NONE, passes value through
// unchanged.
func (p *Processor) Apply(rule Rule, value string) (string, error) {
	if rule.Strategy == StrategyNone || rule.Strategy == "" {
		return value, nil
	}
	if !rule.applies() {
		return value, nil
	}

	switch rule.Strategy {
	case StrategyMask:
		return Mask(value, rule.Type, rule.Level), nil
	case StrategyHash:
		return p.Crypto.Hash(value), nil
	case StrategyEncrypt:
		if p.KeyProvider != nil {
			return EnvelopeEncrypt(value, p.KeyProvider)
		}
		return p.Crypto.Encrypt(value)
	default:
		return "", curveerr.New(curveerr.KindInvalidEvent, "unknown redaction strategy: "+string(rule.Strategy), nil)
	}
}

// Reveal reverses Apply for the ENCRYPT strategy; it is used by tests
// and by operators inspecting DLQ/backup payloads, never by the
// publish path itself.
func (p *Processor) Reveal(rule Rule, value string) (string, error) {
	if rule.Strategy != StrategyEncrypt {
		return "", curveerr.New(curveerr.KindPiiCrypto, "Reveal only supports the ENCRYPT strategy", nil)
	}
	if p.KeyProvider != nil {
		return EnvelopeDecrypt(value, p.KeyProvider)
	}
	return p.Crypto.Decrypt(value)
}
