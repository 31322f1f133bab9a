package vault

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"testing"
)

type staticSecrets struct {
	secret string
}

func (s staticSecrets) MasterSecret(_ context.Context) (string, error) {
	return s.secret, nil
}

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	payloadCipher, err := NewCipher(CipherConfig{Secrets: staticSecrets{secret: "0123456789abcdef0123456789abcdef"}})
	if err != nil {
		t.Fatalf("failed to construct cipher: %v", err)
	}
	return payloadCipher
}

type samplePayload struct {
	Version int      `json:"version"`
	Items   []string `json:"items"`
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	payloadCipher := newTestCipher(t)
	original := samplePayload{Version: 2, Items: []string{"un", "deux"}}

	encrypted, err := payloadCipher.EncryptPayload(context.Background(), original)
	if err != nil {
		t.Fatalf("encryption failed: %v", err)
	}

	var wrapped envelope
	if err := json.Unmarshal([]byte(encrypted), &wrapped); err != nil {
		t.Fatalf("expected JSON envelope: %v", err)
	}
	if wrapped.V != envelopeVersion || wrapped.IV == "" || wrapped.CT == "" {
		t.Fatalf("incomplete envelope: %+v", wrapped)
	}

	var decoded samplePayload
	if !payloadCipher.DecryptPayload(context.Background(), encrypted, &decoded) {
		t.Fatalf("expected decryption to succeed")
	}
	if decoded.Version != 2 || len(decoded.Items) != 2 || decoded.Items[1] != "deux" {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestEncryptUsesFreshIVPerCall(t *testing.T) {
	payloadCipher := newTestCipher(t)
	payload := samplePayload{Version: 1}

	first, err := payloadCipher.EncryptPayload(context.Background(), payload)
	if err != nil {
		t.Fatalf("encryption failed: %v", err)
	}
	second, err := payloadCipher.EncryptPayload(context.Background(), payload)
	if err != nil {
		t.Fatalf("encryption failed: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct ciphertexts for identical payloads")
	}
}

func TestDecryptRejectsGarbageWithoutError(t *testing.T) {
	payloadCipher := newTestCipher(t)

	var decoded samplePayload
	for _, input := range []string{
		"",
		"not json at all",
		`{"v":1,"iv":"zz","ct":"zz"}`,
		`{"v":9,"iv":"00000000000000000000000000000000","ct":"AAAA"}`,
		base64.StdEncoding.EncodeToString([]byte("random bytes, no salt header")),
	} {
		if payloadCipher.DecryptPayload(context.Background(), input, &decoded) {
			t.Fatalf("expected decryption failure for %q", input)
		}
	}
}

func TestDecryptRejectsForeignKey(t *testing.T) {
	payloadCipher := newTestCipher(t)
	encrypted, err := payloadCipher.EncryptPayload(context.Background(), samplePayload{Version: 3})
	if err != nil {
		t.Fatalf("encryption failed: %v", err)
	}

	otherCipher, err := NewCipher(CipherConfig{Secrets: staticSecrets{secret: "another-secret-entirely"}})
	if err != nil {
		t.Fatalf("failed to construct cipher: %v", err)
	}

	var decoded samplePayload
	if otherCipher.DecryptPayload(context.Background(), encrypted, &decoded) {
		t.Fatalf("expected decryption with foreign key to fail")
	}
}

// encryptLegacy builds an OpenSSL-style "Salted__" blob the way the
// pre-envelope builds did, to exercise the migration path.
func encryptLegacy(t *testing.T, secret string, payload any) string {
	t.Helper()

	plainText, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("payload serialization failed: %v", err)
	}

	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		t.Fatalf("salt generation failed: %v", err)
	}

	key, iv := legacyKeyIV([]byte(secret), salt)
	cipherText, err := encryptCBC(plainText, key, iv)
	if err != nil {
		t.Fatalf("legacy encryption failed: %v", err)
	}

	blob := append([]byte("Salted__"), salt...)
	blob = append(blob, cipherText...)
	return base64.StdEncoding.EncodeToString(blob)
}

func TestDecryptReadsLegacyOpenSSLBlob(t *testing.T) {
	const secret = "0123456789abcdef0123456789abcdef"
	payloadCipher := newTestCipher(t)

	legacy := encryptLegacy(t, secret, samplePayload{Version: 1, Items: []string{"héritage"}})

	var decoded samplePayload
	if !payloadCipher.DecryptPayload(context.Background(), legacy, &decoded) {
		t.Fatalf("expected legacy blob to decrypt")
	}
	if len(decoded.Items) != 1 || decoded.Items[0] != "héritage" {
		t.Fatalf("legacy round trip mismatch: %+v", decoded)
	}
}

func TestPKCS7PaddingRoundTrip(t *testing.T) {
	for length := 0; length < 33; length++ {
		data := make([]byte, length)
		for i := range data {
			data[i] = byte(i)
		}
		padded := padPKCS7(data, 16)
		if len(padded)%16 != 0 {
			t.Fatalf("length %d: padded size %d not a block multiple", length, len(padded))
		}
		unpadded, err := unpadPKCS7(padded, 16)
		if err != nil {
			t.Fatalf("length %d: unpad failed: %v", length, err)
		}
		if len(unpadded) != length {
			t.Fatalf("length %d: round trip produced %d bytes", length, len(unpadded))
		}
	}
}

func TestUnpadRejectsCorruptPadding(t *testing.T) {
	if _, err := unpadPKCS7([]byte{1, 2, 3, 17}, 16); err == nil {
		t.Fatalf("expected padding beyond block size to be rejected")
	}
	if _, err := unpadPKCS7([]byte{0, 0, 0, 0}, 16); err == nil {
		t.Fatalf("expected zero padding to be rejected")
	}
}
