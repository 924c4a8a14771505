package apperrors

import "errors"

// Standardized bot errors, matching the failure taxonomy of the decision
// engine: authentication and remote-call failures are retried on the next
// poll cycle, classification failures surface a cataloging mismatch.
var (
	ErrAuthenticationFailed    = errors.New("authentication failed")
	ErrNonceUnavailable        = errors.New("login nonce unavailable")
	ErrRemoteCallFailed        = errors.New("remote call failed")
	ErrDescriptionNotFound     = errors.New("item description not found in catalog")
	ErrMalformedMarketName     = errors.New("malformed market hash name")
	ErrTransportDisconnected   = errors.New("transport disconnected")
	ErrRateLimitExceeded       = errors.New("rate limit exceeded")
	ErrConfirmationFailed      = errors.New("mobile confirmation failed")
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
)
