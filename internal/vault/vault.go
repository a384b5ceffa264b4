// Package vault encrypts provider API keys at rest with AES-256-GCM.
//
// Ciphertext is stored as hex "iv:authTag:cipher" with a 16 byte IV and a 16 byte tag.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"prism/internal/apperror"
	"prism/pkg/logger"
)

const (
	keyLength  = 32
	ivLength   = 16
	tagLength  = 16
	DefaultKey = "default-32-byte-encryption-key!!"
)

var (
	ErrKeyTooShort            = errors.New("encryption key must be at least 32 characters")
	ErrDefaultKeyInProduction = errors.New("default encryption key is not allowed in production")
)

type Vault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	MaskAPIKey(key string) string
}

type aesVault struct {
	aead cipher.AEAD
}

// New builds a vault from key. Only the first 32 bytes of key are used.
// The well-known default key is refused in production and only warned about elsewhere.
func New(key string, production bool, log *logger.Logger) (Vault, error) {
	if len(key) < keyLength {
		return nil, ErrKeyTooShort
	}
	if key == DefaultKey {
		if production {
			return nil, ErrDefaultKeyInProduction
		}
		if log != nil {
			log.Warn("Using default encryption key; set encryption.key before deploying")
		}
	}

	block, err := aes.NewCipher([]byte(key[:keyLength]))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return &aesVault{aead: aead}, nil
}

func (v *aesVault) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return "", apperror.EncryptionFailed(err.Error())
	}

	sealed := v.aead.Seal(nil, iv, []byte(plaintext), nil)
	body, tag := sealed[:len(sealed)-tagLength], sealed[len(sealed)-tagLength:]

	return strings.Join([]string{
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(body),
	}, ":"), nil
}

func (v *aesVault) Decrypt(ciphertext string) (string, error) {
	parts := strings.Split(ciphertext, ":")
	if len(parts) != 3 {
		return "", apperror.EncryptionFailed("invalid ciphertext format")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivLength {
		return "", apperror.EncryptionFailed("invalid iv")
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagLength {
		return "", apperror.EncryptionFailed("invalid auth tag")
	}
	body, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", apperror.EncryptionFailed("invalid cipher text")
	}

	plain, err := v.aead.Open(nil, iv, append(body, tag...), nil)
	if err != nil {
		return "", apperror.EncryptionFailed("message authentication failed")
	}
	return string(plain), nil
}

// MaskAPIKey shows the first 3 and last 4 characters, or "****" for keys of 8 or fewer.
func (v *aesVault) MaskAPIKey(key string) string {
	return MaskAPIKey(key)
}

func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}
