// Package core defines the domain types and component interfaces of the bot
package core

import "context"

// ITradeOfferAPI is the remote trade-offer web service. All calls are
// authenticated with the account's web API key and session cookies.
type ITradeOfferAPI interface {
	GetTradeOffersSummary(ctx context.Context) (*TradeOffersSummary, error)
	GetReceivedOffers(ctx context.Context, activeOnly bool) (*OffersResponse, error)
	AcceptTradeOffer(ctx context.Context, offerID string, partnerRef uint64) error
	DeclineTradeOffer(ctx context.Context, offerID string, partnerRef uint64) error
	DeclineTradeOfferWithMessage(ctx context.Context, offerID string, partnerRef uint64) error
	GetTradeOfferEscrowDuration(ctx context.Context, offerID string) (*EscrowDuration, error)
}

// ISessionAuthenticator keeps the web session fresh.
type ISessionAuthenticator interface {
	IsSessionValid(ctx context.Context) bool
	Reauthenticate(ctx context.Context, nonce []byte) (bool, error)
	EnsureAuthenticated(ctx context.Context) bool
	Session() Session
}

// ITransport is the persistent platform connection that issues one-time
// login nonces.
type ITransport interface {
	RequestNonce(ctx context.Context) ([]byte, error)
}

// IFriendResolver resolves short account ids and admin membership.
type IFriendResolver interface {
	ResolveAccountRef(accountID uint32) uint64
	IsAdmin(accountRef uint64, admins []uint64) bool
}

// IConfirmationService sweeps all outstanding mobile confirmations at once.
// The sweep is not offer-scoped.
type IConfirmationService interface {
	ConfirmAll(ctx context.Context, session Session) error
}

// ISessionStore persists session tokens across restarts.
type ISessionStore interface {
	Load(accountRef uint64) (*Session, error)
	Save(accountRef uint64, session Session) error
	Close() error
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
