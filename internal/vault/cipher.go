package vault

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const envelopeVersion = 1

var (
	errMissingSecretSource = errors.New("vault: secret source is required")
	errEmptyPayload        = errors.New("vault: payload is required")
	noOpLogger             = zap.NewNop()
)

// SecretSource yields the master secret used to derive payload keys.
type SecretSource interface {
	MasterSecret(ctx context.Context) (string, error)
}

// envelope is the versioned wire format for encrypted payloads.
type envelope struct {
	V  int    `json:"v"`
	IV string `json:"iv"`
	CT string `json:"ct"`
}

// CipherConfig describes the dependencies of the payload cipher.
type CipherConfig struct {
	Secrets SecretSource
	Logger  *zap.Logger
}

// Cipher encrypts and decrypts arbitrary JSON payloads with AES-256-CBC,
// keyed by the SHA-256 digest of the master secret. The opaque string it
// produces is a JSON envelope carrying a version tag, a per-call IV and
// the base64 ciphertext.
type Cipher struct {
	secrets SecretSource
	logger  *zap.Logger
}

// NewCipher constructs the payload cipher.
func NewCipher(cfg CipherConfig) (*Cipher, error) {
	if cfg.Secrets == nil {
		return nil, errMissingSecretSource
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Cipher{secrets: cfg.Secrets, logger: logger}, nil
}

// EncryptPayload serializes the payload to JSON and returns the encrypted
// envelope as an opaque string.
func (c *Cipher) EncryptPayload(ctx context.Context, payload any) (string, error) {
	if payload == nil {
		return "", errEmptyPayload
	}

	secret, err := c.secrets.MasterSecret(ctx)
	if err != nil {
		return "", fmt.Errorf("vault: master secret unavailable: %w", err)
	}

	plainText, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("vault: payload serialization failed: %w", err)
	}

	key := deriveKey(secret)
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("vault: iv generation failed: %w", err)
	}

	cipherText, err := encryptCBC(plainText, key, iv)
	if err != nil {
		return "", err
	}

	wrapped := envelope{
		V:  envelopeVersion,
		IV: hex.EncodeToString(iv),
		CT: base64.StdEncoding.EncodeToString(cipherText),
	}
	encoded, err := json.Marshal(wrapped)
	if err != nil {
		return "", fmt.Errorf("vault: envelope serialization failed: %w", err)
	}
	return string(encoded), nil
}

// DecryptPayload parses the opaque string and unmarshals the plaintext into
// out. It reports false for malformed, foreign or legacy-undecodable input,
// never an error: callers treat false as "no valid prior snapshot".
func (c *Cipher) DecryptPayload(ctx context.Context, cipherText string, out any) bool {
	secret, err := c.secrets.MasterSecret(ctx)
	if err != nil {
		c.logger.Error("master secret unavailable for decrypt", zap.Error(err))
		return false
	}

	var wrapped envelope
	if err := json.Unmarshal([]byte(cipherText), &wrapped); err != nil {
		return c.decryptLegacy(cipherText, secret, out)
	}
	if wrapped.V != envelopeVersion || wrapped.IV == "" || wrapped.CT == "" {
		return c.decryptLegacy(cipherText, secret, out)
	}

	iv, err := hex.DecodeString(wrapped.IV)
	if err != nil || len(iv) != aes.BlockSize {
		return c.decryptLegacy(cipherText, secret, out)
	}
	raw, err := base64.StdEncoding.DecodeString(wrapped.CT)
	if err != nil {
		return c.decryptLegacy(cipherText, secret, out)
	}

	plainText, err := decryptCBC(raw, deriveKey(secret), iv)
	if err != nil {
		return c.decryptLegacy(cipherText, secret, out)
	}
	if err := json.Unmarshal(plainText, out); err != nil {
		return c.decryptLegacy(cipherText, secret, out)
	}
	return true
}

// decryptLegacy attempts the pre-envelope scheme: an OpenSSL-compatible
// base64 blob ("Salted__" + salt + ciphertext) keyed by an MD5 KDF over the
// master secret. Kept only so snapshots written by early builds still load.
func (c *Cipher) decryptLegacy(cipherText, secret string, out any) bool {
	raw, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return false
	}
	if len(raw) < 16 || !bytes.HasPrefix(raw, []byte("Salted__")) {
		return false
	}
	salt := raw[8:16]
	key, iv := legacyKeyIV([]byte(secret), salt)

	plainText, err := decryptCBC(raw[16:], key, iv)
	if err != nil {
		return false
	}
	return json.Unmarshal(plainText, out) == nil
}

func deriveKey(secret string) []byte {
	digest := sha256.Sum256([]byte(secret))
	return digest[:]
}

// legacyKeyIV reproduces EVP_BytesToKey with MD5 for a 32-byte key and a
// 16-byte IV.
func legacyKeyIV(passphrase, salt []byte) ([]byte, []byte) {
	var derived []byte
	var block []byte
	for len(derived) < 48 {
		h := md5.New()
		h.Write(block)
		h.Write(passphrase)
		h.Write(salt)
		block = h.Sum(nil)
		derived = append(derived, block...)
	}
	return derived[:32], derived[32:48]
}

func encryptCBC(plainText, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher init failed: %w", err)
	}
	padded := padPKCS7(plainText, aes.BlockSize)
	cipherText := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(cipherText, padded)
	return cipherText, nil
}

func decryptCBC(cipherText, key, iv []byte) ([]byte, error) {
	if len(cipherText) == 0 || len(cipherText)%aes.BlockSize != 0 {
		return nil, errors.New("vault: ciphertext length is not a block multiple")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	plainText := make([]byte, len(cipherText))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plainText, cipherText)
	return unpadPKCS7(plainText, aes.BlockSize)
}

func padPKCS7(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("vault: empty plaintext")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, errors.New("vault: invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("vault: invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
