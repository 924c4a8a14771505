package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyPEM(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return string(pemData), priv
}

func TestParsePublicKey(t *testing.T) {
	pemData, priv := testKeyPEM(t)

	key, err := ParsePublicKey(pemData)
	require.NoError(t, err)
	assert.Equal(t, priv.PublicKey.N, key.N)

	_, err = ParsePublicKey("not a pem block")
	assert.Error(t, err)
}

func TestGenerateSessionKey(t *testing.T) {
	a, err := GenerateSessionKey()
	require.NoError(t, err)
	b, err := GenerateSessionKey()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestPublicKeyEncrypt(t *testing.T) {
	pemData, priv := testKeyPEM(t)
	key, err := ParsePublicKey(pemData)
	require.NoError(t, err)

	sessionKey, err := GenerateSessionKey()
	require.NoError(t, err)

	ciphertext, err := PublicKeyEncrypt(sessionKey, key)
	require.NoError(t, err)

	plaintext, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, priv, ciphertext, nil)
	require.NoError(t, err)
	assert.Equal(t, sessionKey, plaintext)
}

func TestSymmetricRoundTrip(t *testing.T) {
	key, err := GenerateSessionKey()
	require.NoError(t, err)

	tests := []struct {
		name  string
		nonce []byte
	}{
		{"short nonce", []byte("abc")},
		{"block-aligned nonce", make([]byte, 32)},
		{"long nonce", []byte("the quick brown fox jumps over the lazy dog")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := SymmetricEncrypt(tt.nonce, key)
			require.NoError(t, err)

			// Encrypted IV prefix plus at least one CBC block.
			assert.GreaterOrEqual(t, len(ciphertext), 32)
			assert.Zero(t, len(ciphertext)%16)
			assert.NotContains(t, string(ciphertext), string(tt.nonce))

			plaintext, err := SymmetricDecrypt(ciphertext, key)
			require.NoError(t, err)
			assert.Equal(t, tt.nonce, plaintext)
		})
	}
}

func TestSymmetricDecryptRejectsGarbage(t *testing.T) {
	key, err := GenerateSessionKey()
	require.NoError(t, err)

	_, err = SymmetricDecrypt([]byte("too short"), key)
	assert.Error(t, err)
}
