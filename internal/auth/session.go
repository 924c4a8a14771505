// Package auth keeps the web session authenticated against the platform
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"tradebot/internal/core"
	apperrors "tradebot/pkg/errors"
	webhttp "tradebot/pkg/http"
	"tradebot/pkg/telemetry"
)

// signInMarker appears in the account page body only when the session is not
// authenticated.
const signInMarker = "Sign In"

// Authenticator implements core.ISessionAuthenticator. It owns the Session
// exclusively; the session and the shared cookie store are mutated only by a
// successful handshake, and always together.
type Authenticator struct {
	web       *webhttp.Client
	transport core.ITransport
	store     core.ISessionStore // nil disables persistence
	logger    core.ILogger

	publicKey     *rsa.PublicKey
	accountRef    uint64
	communityHost string
	storeHost     string
	apiBaseURL    string

	mu      sync.RWMutex
	session core.Session
}

// NewAuthenticator creates a session authenticator for one account.
func NewAuthenticator(
	web *webhttp.Client,
	transport core.ITransport,
	store core.ISessionStore,
	logger core.ILogger,
	publicKey *rsa.PublicKey,
	accountRef uint64,
	communityHost, storeHost, apiBaseURL string,
) *Authenticator {
	return &Authenticator{
		web:           web,
		transport:     transport,
		store:         store,
		logger:        logger.WithField("component", "authenticator"),
		publicKey:     publicKey,
		accountRef:    accountRef,
		communityHost: communityHost,
		storeHost:     storeHost,
		apiBaseURL:    apiBaseURL,
	}
}

// Session returns a copy of the current session.
func (a *Authenticator) Session() core.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// RestoreSession loads a previously persisted session, if any, and installs
// its cookies. A restored session may still be stale; IsSessionValid decides.
func (a *Authenticator) RestoreSession() error {
	if a.store == nil {
		return nil
	}

	session, err := a.store.Load(a.accountRef)
	if err != nil {
		return fmt.Errorf("failed to load persisted session: %w", err)
	}
	if session == nil || !session.Authenticated() {
		return nil
	}

	if err := a.installSession(*session); err != nil {
		return err
	}
	a.logger.Info("Restored persisted session", "valid_since", session.ValidSince)
	return nil
}

// IsSessionValid probes a known account page and inspects the body for the
// sign-in marker. Any request failure counts as "not authenticated".
func (a *Authenticator) IsSessionValid(ctx context.Context) bool {
	body, err := a.web.GetText(ctx, fmt.Sprintf("https://%s/my/", a.communityHost), nil)
	if err != nil {
		a.logger.Warn("Session probe failed", "error", err)
		telemetry.GetGlobalMetrics().SetSessionValid(false)
		return false
	}

	valid := !strings.Contains(body, signInMarker)
	telemetry.GetGlobalMetrics().SetSessionValid(valid)
	return valid
}

// EnsureAuthenticated returns true when the session is already valid, or
// after requesting a fresh one-time nonce and completing the handshake.
// Failures are logged, never raised.
func (a *Authenticator) EnsureAuthenticated(ctx context.Context) bool {
	if a.IsSessionValid(ctx) {
		return true
	}

	nonce, err := a.transport.RequestNonce(ctx)
	if err != nil {
		a.logger.Error("Failed to request login nonce", "error", err)
		return false
	}
	if len(nonce) == 0 {
		a.logger.Error("Login nonce is empty", "error", apperrors.ErrNonceUnavailable)
		return false
	}

	a.logger.Info("Reauthenticating...")

	ok, err := a.Reauthenticate(ctx, nonce)
	if err != nil {
		a.logger.Error("Handshake failed", "error", err)
		return false
	}
	return ok
}

// authenticateUserResponse is the auth endpoint's JSON envelope.
type authenticateUserResponse struct {
	AuthenticateUser struct {
		Token       string `json:"token"`
		TokenSecure string `json:"tokensecure"`
	} `json:"authenticateuser"`
}

// Reauthenticate performs the login handshake:
//
//  1. generate a random 32-byte symmetric session key,
//  2. encrypt it with the platform's published RSA key,
//  3. copy the nonce's raw bytes into a buffer of exactly the nonce's
//     length and encrypt that with the session key,
//  4. POST both ciphertexts (form encoding performs the percent-encoding
//     the endpoint expects) together with the account id over HTTPS.
//
// On success the returned token pair and the deterministic session id
// (base64 of the account id string) replace the Session and all six session
// cookies across both host domains atomically. On failure the Session is
// left unchanged. A 403-class rejection returns (false, nil); any other
// remote error is returned to the caller.
func (a *Authenticator) Reauthenticate(ctx context.Context, nonce []byte) (bool, error) {
	metrics := telemetry.GetGlobalMetrics()
	if metrics.HandshakesTotal != nil {
		metrics.HandshakesTotal.Add(ctx, 1)
	}

	sessionKey, err := GenerateSessionKey()
	if err != nil {
		return false, err
	}

	encryptedSessionKey, err := PublicKeyEncrypt(sessionKey, a.publicKey)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt session key: %w", err)
	}

	loginKey := make([]byte, len(nonce))
	copy(loginKey, nonce)
	encryptedLoginKey, err := SymmetricEncrypt(loginKey, sessionKey)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt login nonce: %w", err)
	}

	accountID := strconv.FormatUint(a.accountRef, 10)

	body, err := a.web.PostForm(ctx, a.apiBaseURL+"/ISteamUserAuth/AuthenticateUser/v1/", url.Values{
		"steamid":            {accountID},
		"sessionkey":         {string(encryptedSessionKey)},
		"encrypted_loginkey": {string(encryptedLoginKey)},
	})
	if err != nil {
		if metrics.HandshakeFailsTotal != nil {
			metrics.HandshakeFailsTotal.Add(ctx, 1)
		}
		if webhttp.IsStatus(err, 403) {
			a.logger.Warn("Auth endpoint rejected the handshake", "status", 403)
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", apperrors.ErrAuthenticationFailed, err)
	}

	var resp authenticateUserResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("failed to parse auth response: %w", err)
	}
	if resp.AuthenticateUser.Token == "" || resp.AuthenticateUser.TokenSecure == "" {
		a.logger.Warn("Auth endpoint returned no tokens")
		return false, nil
	}

	session := core.Session{
		SessionID:        base64.StdEncoding.EncodeToString([]byte(accountID)),
		LoginToken:       resp.AuthenticateUser.Token,
		LoginTokenSecure: resp.AuthenticateUser.TokenSecure,
		APIKey:           a.Session().APIKey,
		ValidSince:       time.Now(),
	}

	if err := a.installSession(session); err != nil {
		return false, err
	}

	if a.store != nil {
		if err := a.store.Save(a.accountRef, session); err != nil {
			a.logger.Warn("Failed to persist session", "error", err)
		}
	}

	a.logger.Info("Session reauthenticated")
	return true, nil
}

// installSession replaces the cookie store and the session together. The
// cookie replacement covers sessionid, steamLogin and steamLoginSecure on
// both host domains; a jar failure leaves both session and cookies as they
// were.
func (a *Authenticator) installSession(session core.Session) error {
	err := a.web.ReplaceCookies(
		[]string{a.communityHost, a.storeHost},
		map[string]string{
			"sessionid":        session.SessionID,
			"steamLogin":       session.LoginToken,
			"steamLoginSecure": session.LoginTokenSecure,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to install session cookies: %w", err)
	}

	a.mu.Lock()
	a.session = session
	a.mu.Unlock()
	return nil
}

// SetAPIKey records the account web API key on the session.
func (a *Authenticator) SetAPIKey(key string) {
	a.mu.Lock()
	a.session.APIKey = key
	a.mu.Unlock()
}
