package steam

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebot/internal/core"
	"tradebot/internal/mock"
	webhttp "tradebot/pkg/http"
)

func newConfirmer(t *testing.T, identitySecret string) *Confirmer {
	t.Helper()
	web := webhttp.NewClient(5*time.Second, 100)
	c, err := NewConfirmer(web, "community.example.com", identitySecret, 76561197960265770, mock.NopLogger{})
	require.NoError(t, err)
	return c
}

func TestNewConfirmerRejectsBadSecret(t *testing.T) {
	web := webhttp.NewClient(5*time.Second, 100)
	_, err := NewConfirmer(web, "community.example.com", "not base64!!!", 1, mock.NopLogger{})
	assert.Error(t, err)
}

func TestConfirmAllDisabledWithoutSecret(t *testing.T) {
	c := newConfirmer(t, "")
	// No secret means no network calls; the sweep is a no-op.
	assert.NoError(t, c.ConfirmAll(context.Background(), core.Session{}))
}

func TestConfirmationKey(t *testing.T) {
	secret := []byte("identity-secret-bytes")
	c := newConfirmer(t, base64.StdEncoding.EncodeToString(secret))

	timestamp := int64(1700000000)
	key := c.confirmationKey(timestamp, "list")

	message := make([]byte, 8)
	binary.BigEndian.PutUint64(message, uint64(timestamp))
	message = append(message, []byte("list")...)
	mac := hmac.New(sha1.New, secret)
	mac.Write(message)

	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), key)
	assert.NotEqual(t, key, c.confirmationKey(timestamp, "allow"))
	assert.NotEqual(t, key, c.confirmationKey(timestamp+1, "list"))
}

func TestConfirmationParams(t *testing.T) {
	c := newConfirmer(t, base64.StdEncoding.EncodeToString([]byte("secret")))

	params := c.confirmationParams(1700000000, "list")
	assert.Equal(t, "76561197960265770", params["a"])
	assert.Equal(t, "1700000000", params["t"])
	assert.Equal(t, "android", params["m"])
	assert.Equal(t, "list", params["tag"])
	assert.True(t, strings.HasPrefix(params["p"], "android:"))
	assert.NotEmpty(t, params["k"])
}

func TestDeviceIDStablePerConfirmer(t *testing.T) {
	c := newConfirmer(t, base64.StdEncoding.EncodeToString([]byte("secret")))

	a := c.confirmationParams(1, "list")["p"]
	b := c.confirmationParams(2, "allow")["p"]
	assert.Equal(t, a, b)
}
