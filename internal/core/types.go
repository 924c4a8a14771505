package core

import "time"

// TradeOfferState mirrors the platform's numeric offer state codes.
type TradeOfferState int

const (
	TradeOfferStateInvalid     TradeOfferState = 1
	TradeOfferStateActive      TradeOfferState = 2
	TradeOfferStateAccepted    TradeOfferState = 3
	TradeOfferStateCountered   TradeOfferState = 4
	TradeOfferStateExpired     TradeOfferState = 5
	TradeOfferStateCanceled    TradeOfferState = 6
	TradeOfferStateDeclined    TradeOfferState = 7
	TradeOfferStateInvalidItem TradeOfferState = 8
)

// ConfirmationMethod mirrors the platform's confirmation method codes.
type ConfirmationMethod int

const (
	ConfirmationMethodNone      ConfirmationMethod = 0
	ConfirmationMethodEmail     ConfirmationMethod = 1
	ConfirmationMethodMobileApp ConfirmationMethod = 2
)

// Asset is an opaque reference to one tradable unit inside an offer. The
// semantic detail lives in the description catalog, keyed by (ClassID,
// InstanceID).
type Asset struct {
	AppID      string `json:"appid"`
	ClassID    string `json:"classid"`
	InstanceID string `json:"instanceid"`
	Amount     string `json:"amount"`
}

// ItemDescription is one entry of the shared description catalog returned
// alongside an offer listing.
type ItemDescription struct {
	ClassID        string `json:"classid"`
	InstanceID     string `json:"instanceid"`
	Type           string `json:"type"`
	MarketHashName string `json:"market_hash_name"`
}

// TradeOffer is an immutable snapshot of one received offer. Only the remote
// system mutates offer state, via accept/decline calls.
type TradeOffer struct {
	TradeOfferID       string             `json:"tradeofferid"`
	AccountIDOther     uint32             `json:"accountid_other"`
	State              TradeOfferState    `json:"trade_offer_state"`
	ConfirmationMethod ConfirmationMethod `json:"confirmation_method"`
	ItemsToGive        []Asset            `json:"items_to_give"`
	ItemsToReceive     []Asset            `json:"items_to_receive"`
}

// OffersResponse bundles the received offers with their description catalog.
type OffersResponse struct {
	Offers       []TradeOffer      `json:"trade_offers_received"`
	Descriptions []ItemDescription `json:"descriptions"`
}

// TradeOffersSummary carries the authoritative pending counts.
type TradeOffersSummary struct {
	PendingReceivedCount int `json:"pending_received_count"`
	NewReceivedCount     int `json:"new_received_count"`
}

// EscrowDuration reports the holding period either side would incur.
type EscrowDuration struct {
	DaysOurEscrow   int
	DaysTheirEscrow int
}

// Session holds the web session credentials. It is owned by the session
// authenticator and mutated only by a successful handshake; LoginToken and
// LoginTokenSecure are either both set or both empty.
type Session struct {
	SessionID        string
	LoginToken       string
	LoginTokenSecure string
	APIKey           string
	ValidSince       time.Time
}

// Authenticated reports whether the session carries login tokens.
func (s *Session) Authenticated() bool {
	return s.LoginToken != "" && s.LoginTokenSecure != ""
}

// AccountPolicy is the externally supplied decision policy, read-only during
// a run.
type AccountPolicy struct {
	AcceptDonations  bool
	AcceptEscrow     bool
	Accept1to1Trades bool
	Accept1to2Trades bool
	Admins           []uint64
}

// IsAdmin reports whether the given account ref belongs to the admin set.
func (p AccountPolicy) IsAdmin(accountRef uint64) bool {
	for _, admin := range p.Admins {
		if admin == accountRef {
			return true
		}
	}
	return false
}

// DecisionAction is the terminal action taken for one offer in one pass.
type DecisionAction int

const (
	ActionDefer DecisionAction = iota
	ActionAccept
	ActionDecline
)

func (a DecisionAction) String() string {
	switch a {
	case ActionAccept:
		return "accept"
	case ActionDecline:
		return "decline"
	default:
		return "defer"
	}
}

// DecisionReason tags why a decision was made.
type DecisionReason string

const (
	ReasonEmailConfirmRequired  DecisionReason = "email-confirm-required"
	ReasonMobileConfirmRequired DecisionReason = "mobile-confirm-required"
	ReasonDonation              DecisionReason = "donation"
	ReasonAdminOverride         DecisionReason = "admin-override"
	ReasonEscrowHeld            DecisionReason = "escrow-held"
	ReasonUnbalancedGive        DecisionReason = "unbalanced-give"
	ReasonMatched1to1           DecisionReason = "matched-1-1"
	ReasonMatched1to2           DecisionReason = "matched-1-2"
	ReasonUnmatched             DecisionReason = "unmatched"
	ReasonAcceptCallFailed      DecisionReason = "accept-call-failed"
)

// Decision is the per-offer outcome of one evaluation pass. Not persisted;
// the remote listing is re-polled next cycle regardless.
type Decision struct {
	OfferID    string
	PartnerRef uint64
	Action     DecisionAction
	Reason     DecisionReason
}
