package credentials

import (
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
)

// Fernet tokens carry a timestamp; stored secrets must never expire.
const noExpiry = 100 * 365 * 24 * time.Hour

// Cipher encrypts secrets at rest with a Fernet key, the same token format
// the key in ENCRYPTION_KEY has always produced.
type Cipher struct {
	keys []*fernet.Key
}

// NewCipher parses a base64 Fernet key.
func NewCipher(encoded string) (*Cipher, error) {
	key, err := fernet.DecodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	return &Cipher{keys: []*fernet.Key{key}}, nil
}

// GenerateKey returns a new random base64 Fernet key.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return k.Encode(), nil
}

// Encrypt returns the Fernet token for secret.
func (c *Cipher) Encrypt(secret string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(secret), c.keys[0])
	if err != nil {
		return "", fmt.Errorf("encrypting secret: %w", err)
	}
	return string(tok), nil
}

// Decrypt verifies and opens a token produced by Encrypt.
func (c *Cipher) Decrypt(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), noExpiry, c.keys)
	if msg == nil {
		return "", fmt.Errorf("secret could not be decrypted with the configured key")
	}
	return string(msg), nil
}

// Mask returns a display form of secret: the first and last four characters
// for secrets longer than eight, otherwise a fixed placeholder.
func Mask(secret string) string {
	if len(secret) > 8 {
		return secret[:4] + "..." + secret[len(secret)-4:]
	}
	return "****"
}
