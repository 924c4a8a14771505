// Package mock provides configurable test doubles for the bot's
// collaborator interfaces.
package mock

import (
	"context"
	"sync"

	"tradebot/internal/core"
)

// Call records one remote action taken against an offer.
type Call struct {
	Method     string
	OfferID    string
	PartnerRef uint64
}

// MockTradeOfferAPI implements core.ITradeOfferAPI with scriptable
// responses and a call log.
type MockTradeOfferAPI struct {
	mu sync.Mutex

	Summary    *core.TradeOffersSummary
	SummaryErr error

	Listing    *core.OffersResponse
	ListingErr error

	Escrow    map[string]*core.EscrowDuration
	EscrowErr error

	AcceptErr  error
	DeclineErr error

	calls []Call
}

func NewMockTradeOfferAPI() *MockTradeOfferAPI {
	return &MockTradeOfferAPI{
		Summary: &core.TradeOffersSummary{},
		Listing: &core.OffersResponse{},
		Escrow:  make(map[string]*core.EscrowDuration),
	}
}

func (m *MockTradeOfferAPI) GetTradeOffersSummary(ctx context.Context) (*core.TradeOffersSummary, error) {
	if m.SummaryErr != nil {
		return nil, m.SummaryErr
	}
	return m.Summary, nil
}

func (m *MockTradeOfferAPI) GetReceivedOffers(ctx context.Context, activeOnly bool) (*core.OffersResponse, error) {
	if m.ListingErr != nil {
		return nil, m.ListingErr
	}
	return m.Listing, nil
}

func (m *MockTradeOfferAPI) AcceptTradeOffer(ctx context.Context, offerID string, partnerRef uint64) error {
	m.logCall("accept", offerID, partnerRef)
	return m.AcceptErr
}

func (m *MockTradeOfferAPI) DeclineTradeOffer(ctx context.Context, offerID string, partnerRef uint64) error {
	m.logCall("decline", offerID, partnerRef)
	return m.DeclineErr
}

func (m *MockTradeOfferAPI) DeclineTradeOfferWithMessage(ctx context.Context, offerID string, partnerRef uint64) error {
	m.logCall("decline_with_message", offerID, partnerRef)
	return m.DeclineErr
}

func (m *MockTradeOfferAPI) GetTradeOfferEscrowDuration(ctx context.Context, offerID string) (*core.EscrowDuration, error) {
	if m.EscrowErr != nil {
		return nil, m.EscrowErr
	}
	if d, ok := m.Escrow[offerID]; ok {
		return d, nil
	}
	return &core.EscrowDuration{}, nil
}

func (m *MockTradeOfferAPI) logCall(method, offerID string, partnerRef uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: method, OfferID: offerID, PartnerRef: partnerRef})
}

// Calls returns a copy of the call log.
func (m *MockTradeOfferAPI) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]Call, len(m.calls))
	copy(res, m.calls)
	return res
}

// CallsTo returns the logged calls for one offer.
func (m *MockTradeOfferAPI) CallsTo(offerID string) []Call {
	var res []Call
	for _, c := range m.Calls() {
		if c.OfferID == offerID {
			res = append(res, c)
		}
	}
	return res
}
