package auth

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
)

// apiKeyPattern matches "Key: XXXXXXXX" on the developer page.
var apiKeyPattern = regexp.MustCompile(`(?i)Key:\s*([0-9A-F]{16,})`)

// EnsureAPIKey recovers the account's web API key from the developer page,
// registering a new key when the account has none yet. Requires an
// authenticated session.
func (a *Authenticator) EnsureAPIKey(ctx context.Context) (string, error) {
	if key := a.Session().APIKey; key != "" {
		return key, nil
	}

	pageURL := fmt.Sprintf("https://%s/dev/apikey?l=english", a.communityHost)
	body, err := a.web.GetText(ctx, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch api key page: %w", err)
	}

	if match := apiKeyPattern.FindStringSubmatch(body); match != nil {
		a.SetAPIKey(match[1])
		return match[1], nil
	}

	return a.registerAPIKey(ctx)
}

// registerAPIKey registers a web API key for the account and extracts it
// from the registration response.
func (a *Authenticator) registerAPIKey(ctx context.Context) (string, error) {
	registerURL := fmt.Sprintf("https://%s/dev/registerkey", a.communityHost)
	body, err := a.web.PostForm(ctx, registerURL, url.Values{
		"domain":       {"localhost"},
		"agreeToTerms": {"agreed"},
		"sessionid":    {a.Session().SessionID},
		"Submit":       {"Register"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to register api key: %w", err)
	}

	match := apiKeyPattern.FindStringSubmatch(string(body))
	if match == nil {
		return "", fmt.Errorf("api key not found in registration response")
	}

	a.SetAPIKey(match[1])
	return match[1], nil
}
