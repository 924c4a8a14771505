package steam

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
	"tradebot/internal/core"
	apperrors "tradebot/pkg/errors"
	webhttp "tradebot/pkg/http"

	"github.com/google/uuid"
)

// Confirmer performs the mobile confirmation sweep: it accepts every
// outstanding mobile-gated action at once. The sweep is not offer-scoped.
type Confirmer struct {
	web            *webhttp.Client
	communityHost  string
	identitySecret []byte
	accountRef     uint64
	deviceID       string
	logger         core.ILogger
}

// NewConfirmer creates a confirmation sweep client. identitySecret is the
// base64-encoded mobile identity secret; when empty the sweep is disabled.
func NewConfirmer(web *webhttp.Client, communityHost, identitySecret string, accountRef uint64, logger core.ILogger) (*Confirmer, error) {
	var secret []byte
	if identitySecret != "" {
		var err error
		secret, err = base64.StdEncoding.DecodeString(identitySecret)
		if err != nil {
			return nil, fmt.Errorf("invalid identity secret: %w", err)
		}
	}

	return &Confirmer{
		web:            web,
		communityHost:  communityHost,
		identitySecret: secret,
		accountRef:     accountRef,
		deviceID:       "android:" + uuid.NewString(),
		logger:         logger.WithField("component", "confirmer"),
	}, nil
}

type confirmation struct {
	ID    string `json:"id"`
	Nonce string `json:"nonce"`
}

type confirmationList struct {
	Success       bool           `json:"success"`
	Confirmations []confirmation `json:"conf"`
}

// ConfirmAll fetches every pending mobile confirmation and accepts them in
// one batch. Callers treat the sweep as best-effort; the platform is
// re-polled next cycle regardless.
func (c *Confirmer) ConfirmAll(ctx context.Context, session core.Session) error {
	if len(c.identitySecret) == 0 {
		c.logger.Debug("Mobile confirmation sweep disabled, no identity secret configured")
		return nil
	}

	now := time.Now().Unix()
	listURL := fmt.Sprintf("https://%s/mobileconf/getlist", c.communityHost)
	body, err := c.web.Get(ctx, listURL, c.confirmationParams(now, "list"))
	if err != nil {
		return fmt.Errorf("%w: fetching confirmation list: %v", apperrors.ErrConfirmationFailed, err)
	}

	var list confirmationList
	if err := json.Unmarshal(body, &list); err != nil {
		return fmt.Errorf("%w: parsing confirmation list: %v", apperrors.ErrConfirmationFailed, err)
	}
	if !list.Success {
		return fmt.Errorf("%w: confirmation list request rejected", apperrors.ErrConfirmationFailed)
	}
	if len(list.Confirmations) == 0 {
		return nil
	}

	now = time.Now().Unix()
	fields := url.Values{"op": {"allow"}}
	for key, value := range c.confirmationParams(now, "allow") {
		fields.Set(key, value)
	}
	for _, conf := range list.Confirmations {
		fields.Add("cid[]", conf.ID)
		fields.Add("ck[]", conf.Nonce)
	}

	opURL := fmt.Sprintf("https://%s/mobileconf/multiajaxop", c.communityHost)
	if _, err := c.web.PostForm(ctx, opURL, fields); err != nil {
		return fmt.Errorf("%w: accepting confirmations: %v", apperrors.ErrConfirmationFailed, err)
	}

	c.logger.Info("Confirmed all pending mobile confirmations", "count", len(list.Confirmations))
	return nil
}

// confirmationParams builds the time-keyed query parameters the
// confirmation endpoints require.
func (c *Confirmer) confirmationParams(timestamp int64, tag string) map[string]string {
	return map[string]string{
		"p":   c.deviceID,
		"a":   strconv.FormatUint(c.accountRef, 10),
		"k":   c.confirmationKey(timestamp, tag),
		"t":   strconv.FormatInt(timestamp, 10),
		"m":   "android",
		"tag": tag,
	}
}

// confirmationKey derives the HMAC-SHA1 tag over the big-endian timestamp
// followed by the tag name, keyed with the identity secret.
func (c *Confirmer) confirmationKey(timestamp int64, tag string) string {
	message := make([]byte, 8, 8+len(tag))
	binary.BigEndian.PutUint64(message, uint64(timestamp))
	message = append(message, tag...)

	mac := hmac.New(sha1.New, c.identitySecret)
	mac.Write(message)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
