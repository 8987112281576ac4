package flo_test

import (
	"testing"

	"github.com/bromapp/flostore/pkg/flo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	payloads := []string{
		"hello",
		`{"title":"A","body":"B"}`,
		"multi\nline\ncontent with spaces",
		"1",
	}

	for _, payload := range payloads {
		ciphertext, err := flo.Encrypt(payload, "user-1", "s3cret")
		require.NoError(t, err)
		assert.True(t, flo.IsEncrypted(ciphertext))
		// Short payloads can show up in the base64 output by coincidence.
		if len(payload) > 3 {
			assert.NotContains(t, ciphertext[len(flo.Marker):], payload)
		}

		plaintext, err := flo.Decrypt(ciphertext, "user-1", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, payload, plaintext)
	}
}

func TestEncryptDeterministic(t *testing.T) {
	a, err := flo.Encrypt("payload", "user-1", "s3cret")
	require.NoError(t, err)
	b, err := flo.Encrypt("payload", "user-1", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecryptPasskeyScoping(t *testing.T) {
	ciphertext, err := flo.Encrypt("payload", "user-1", "passkey-a")
	require.NoError(t, err)

	plaintext, err := flo.Decrypt(ciphertext, "user-1", "passkey-b")
	if err == nil {
		// CBC with a wrong key can unpad by accident; it must never
		// silently return the original payload.
		assert.NotEqual(t, "payload", plaintext)
	} else {
		assert.True(t, flo.IsDecryption(err))
	}
}

func TestDecryptUserScoping(t *testing.T) {
	ciphertext, err := flo.Encrypt("payload", "user-1", "s3cret")
	require.NoError(t, err)

	plaintext, err := flo.Decrypt(ciphertext, "user-2", "s3cret")
	if err == nil {
		assert.NotEqual(t, "payload", plaintext)
	} else {
		assert.True(t, flo.IsDecryption(err))
	}
}

func TestDecryptPlaintextPassthrough(t *testing.T) {
	plaintext, err := flo.Decrypt(`{"not":"encrypted"}`, "user-1", "s3cret")
	assert.NoError(t, err)
	assert.Equal(t, `{"not":"encrypted"}`, plaintext)
}

func TestDecryptGarbageCiphertext(t *testing.T) {
	_, err := flo.Decrypt(flo.Marker+"not base64 at all!!", "user-1", "s3cret")
	require.Error(t, err)
	assert.True(t, flo.IsDecryption(err))

	_, err = flo.Decrypt(flo.Marker+"YWJj", "user-1", "s3cret") // 3 bytes, not block aligned
	require.Error(t, err)
	assert.True(t, flo.IsDecryption(err))
}

func TestDeriveKeyAndIV(t *testing.T) {
	key := flo.DeriveKey("secret")
	assert.Len(t, key, 32)
	assert.Equal(t, key, flo.DeriveKey("secret"))

	iv := flo.DeriveIV("secret")
	assert.Len(t, iv, 16)
	assert.Equal(t, iv, flo.DeriveIV("secret"))

	assert.NotEqual(t, key[:16], iv)
	assert.NotEqual(t, flo.DeriveKey("secret"), flo.DeriveKey("other"))
}
