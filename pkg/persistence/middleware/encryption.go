package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
)

// encryptedPrefix marks a turn content produced by the encryption middleware.
const encryptedPrefix = "enc:v1:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried when the active key cannot decrypt a turn,
	// so keys can be rotated without rewriting stored transcripts.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.TranscriptSink
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts the content of
// every turn with AES-GCM. Speakers stay readable.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256)", i)
		}
	}
	return func(next ports.TranscriptSink) ports.TranscriptSink {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

// ParseKey decodes a base64 AES-256 key.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func (m *encryptionMiddleware) Append(ctx context.Context, engagementID string, turns ...domain.Turn) error {
	sealed := make([]domain.Turn, len(turns))
	for i, t := range turns {
		ciphertext, err := encrypt([]byte(t.Content), m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt turn: %w", err)
		}
		sealed[i] = domain.Turn{Role: t.Role, Content: encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext)}
	}
	return m.next.Append(ctx, engagementID, sealed...)
}

func (m *encryptionMiddleware) Load(ctx context.Context, engagementID string) ([]domain.Turn, error) {
	turns, err := m.next.Load(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Turn, len(turns))
	for i, t := range turns {
		encoded, ok := strings.CutPrefix(t.Content, encryptedPrefix)
		if !ok {
			// Fail secure: plain turns mean the store was written without encryption.
			return nil, fmt.Errorf("turn %d is missing its encrypted envelope", i)
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
		}
		plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt turn %d: %w", i, err)
		}
		out[i] = domain.Turn{Role: t.Role, Content: string(plain)}
	}
	return out, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, engagementID string) error {
	return m.next.Delete(ctx, engagementID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
