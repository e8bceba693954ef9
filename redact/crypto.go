package redact

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"io"

	"example.com/curve/curveerr"
)

const keySize = 32

// KeyProvider is the external collaborator for envelope encryption: it
// mints a fresh data-encryption key per value and can later decrypt a
// DEK it previously issued. Implementations typically wrap a managed
// key service; none is provided here, matching spec.md's treatment of
// the key service as an external collaborator rather than a component
// of this library.
type KeyProvider interface {
	// GenerateDataKey returns a plaintext DEK and its encrypted form.
	GenerateDataKey() (plaintext []byte, encrypted []byte, err error)
	// DecryptDataKey recovers the plaintext DEK from its encrypted form.
	DecryptDataKey(encrypted []byte) ([]byte, error)
}

// Crypto performs AES-256-GCM encryption/decryption and salted SHA-256
// hashing for ENCRYPT/HASH strategy fields, grounded on the reference
// stack's SecretsManager (cuemby-warren/pkg/security/secrets.go) and
// generalized to the Base64(IV‖ciphertext‖tag) wire format and the
// envelope-encryption variant spec.md §4.3 requires.
type Crypto struct {
	key  []byte // nil when no key is configured; ENCRYPT then fails
	salt []byte
}

// NewCrypto builds a Crypto from a Base64-encoded key (may be empty, in
// which case ENCRYPT fails at use time) and a salt (used verbatim,
// empty string permitted).
func NewCrypto(keyBase64 string, salt string) (*Crypto, error) {
	c := &Crypto{salt: []byte(salt)}
	if keyBase64 == "" {
		return c, nil
	}

	raw, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, curveerr.New(curveerr.KindPiiCrypto, "pii.crypto.defaultKey is not valid base64", err)
	}
	if len(raw) > keySize {
		return nil, curveerr.New(curveerr.KindPiiCrypto, "pii.crypto.defaultKey exceeds 32 bytes", nil)
	}

	key := make([]byte, keySize)
	copy(key, raw)
	c.key = key
	return c, nil
}

func (c *Crypto) gcm() (cipher.AEAD, error) {
	if c == nil || len(c.key) == 0 {
		return nil, curveerr.New(curveerr.KindPiiCrypto, "encryption requested but pii.crypto.defaultKey is not configured", nil)
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, curveerr.New(curveerr.KindPiiCrypto, "failed to construct AES cipher", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under the configured default key, returning
// Base64(IV‖ciphertext‖tag).
func (c *Crypto) Encrypt(plaintext string) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", curveerr.New(curveerr.KindPiiCrypto, "failed to generate IV", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *Crypto) Decrypt(encoded string) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", curveerr.New(curveerr.KindPiiCrypto, "ciphertext is not valid base64", err)
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", curveerr.New(curveerr.KindPiiCrypto, "ciphertext shorter than IV size", nil)
	}
	nonce, body := raw[:nonceSize], raw[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return "", curveerr.New(curveerr.KindPiiCrypto, "decryption failed", err)
	}
	return string(plaintext), nil
}

// EnvelopeEncrypt asks kp for a fresh data key, encrypts plaintext under
// it, and prepends the 2-byte big-endian length of the encrypted DEK
// followed by the encrypted DEK itself, then Base64-encodes the whole
// thing.
func EnvelopeEncrypt(plaintext string, kp KeyProvider) (string, error) {
	dek, encDEK, err := kp.GenerateDataKey()
	if err != nil {
		return "", curveerr.New(curveerr.KindPiiCrypto, "key provider failed to generate data key", err)
	}
	if len(encDEK) > 0xFFFF {
		return "", curveerr.New(curveerr.KindPiiCrypto, "encrypted data key too large to frame", nil)
	}

	block, err := aes.NewCipher(padOrRejectDEK(dek))
	if err != nil {
		return "", curveerr.New(curveerr.KindPiiCrypto, "failed to construct AES cipher for data key", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", curveerr.New(curveerr.KindPiiCrypto, "failed to construct GCM for data key", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", curveerr.New(curveerr.KindPiiCrypto, "failed to generate IV", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	out := make([]byte, 0, 2+len(encDEK)+len(sealed))
	lenPrefix := make([]byte, 2)
	binary.BigEndian.PutUint16(lenPrefix, uint16(len(encDEK)))
	out = append(out, lenPrefix...)
	out = append(out, encDEK...)
	out = append(out, sealed...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// EnvelopeDecrypt reverses EnvelopeEncrypt.
func EnvelopeDecrypt(encoded string, kp KeyProvider) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", curveerr.New(curveerr.KindPiiCrypto, "ciphertext is not valid base64", err)
	}
	if len(raw) < 2 {
		return "", curveerr.New(curveerr.KindPiiCrypto, "ciphertext missing DEK length prefix", nil)
	}

	dekLen := int(binary.BigEndian.Uint16(raw[:2]))
	if len(raw) < 2+dekLen {
		return "", curveerr.New(curveerr.KindPiiCrypto, "ciphertext shorter than framed DEK length", nil)
	}
	encDEK := raw[2 : 2+dekLen]
	body := raw[2+dekLen:]

	dek, err := kp.DecryptDataKey(encDEK)
	if err != nil {
		return "", curveerr.New(curveerr.KindPiiCrypto, "key provider failed to decrypt data key", err)
	}

	block, err := aes.NewCipher(padOrRejectDEK(dek))
	if err != nil {
		return "", curveerr.New(curveerr.KindPiiCrypto, "failed to construct AES cipher for data key", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", curveerr.New(curveerr.KindPiiCrypto, "failed to construct GCM for data key", err)
	}

	nonceSize := gcm.NonceSize()
	if len(body) < nonceSize {
		return "", curveerr.New(curveerr.KindPiiCrypto, "ciphertext shorter than IV size", nil)
	}
	nonce, sealed := body[:nonceSize], body[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", curveerr.New(curveerr.KindPiiCrypto, "decryption failed", err)
	}
	return string(plaintext), nil
}

func padOrRejectDEK(dek []byte) []byte {
	if len(dek) >= keySize {
		return dek[:keySize]
	}
	padded := make([]byte, keySize)
	copy(padded, dek)
	return padded
}

// Hash returns the Base64-encoded SHA-256 digest of salt‖value.
func (c *Crypto) Hash(value string) string {
	h := sha256.New()
	if c != nil {
		h.Write(c.salt)
	}
	h.Write([]byte(value))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
