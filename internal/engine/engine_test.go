package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebot/internal/classify"
	"tradebot/internal/core"
	"tradebot/internal/match"
	"tradebot/internal/mock"
	apperrors "tradebot/pkg/errors"
)

const adminRef = uint64(42) + 76561197960265728

type engineFixture struct {
	api       *mock.MockTradeOfferAPI
	auth      *mock.MockAuthenticator
	confirmer *mock.MockConfirmer
	engine    *TradeDecisionEngine
}

func newFixture(policy core.AccountPolicy) *engineFixture {
	api := mock.NewMockTradeOfferAPI()
	auth := &mock.MockAuthenticator{Valid: true}
	confirmer := &mock.MockConfirmer{}
	logger := mock.NopLogger{}

	return &engineFixture{
		api:       api,
		auth:      auth,
		confirmer: confirmer,
		engine: NewTradeDecisionEngine(
			api, auth, mock.MockFriendResolver{}, confirmer,
			match.NewMatcher(logger), policy, nil, logger,
		),
	}
}

func (f *engineFixture) listOffers(offers ...core.TradeOffer) {
	f.api.Summary = &core.TradeOffersSummary{PendingReceivedCount: len(offers)}
	f.api.Listing = &core.OffersResponse{Offers: offers}
}

func activeOffer(id string, partner uint32) core.TradeOffer {
	return core.TradeOffer{
		TradeOfferID:   id,
		AccountIDOther: partner,
		State:          core.TradeOfferStateActive,
	}
}

func cardAsset(classID string) core.Asset {
	return core.Asset{AppID: classify.CardGameAppID, ClassID: classID, InstanceID: "0", Amount: "1"}
}

func cardDesc(classID, marketHashName string) core.ItemDescription {
	return core.ItemDescription{
		ClassID:        classID,
		InstanceID:     "0",
		Type:           "Trading Card",
		MarketHashName: marketHashName,
	}
}

func TestDonationAcceptedWithoutMatching(t *testing.T) {
	f := newFixture(core.AccountPolicy{AcceptDonations: true})

	offer := activeOffer("1", 7)
	offer.ItemsToReceive = []core.Asset{cardAsset("x")}
	// The catalog has no entry for x; matching would fail the pass, so an
	// accept proves the matcher never ran.
	f.listOffers(offer)

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, core.ActionAccept, decisions[0].Action)
	assert.Equal(t, core.ReasonDonation, decisions[0].Reason)
	require.Len(t, f.api.Calls(), 1)
	assert.Equal(t, "accept", f.api.Calls()[0].Method)
}

func TestDonationAcceptFailureStillHandled(t *testing.T) {
	f := newFixture(core.AccountPolicy{AcceptDonations: true})
	f.api.AcceptErr = errors.New("boom")

	offer := activeOffer("1", 7)
	offer.ItemsToReceive = []core.Asset{cardAsset("x")}
	f.listOffers(offer)

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, core.ReasonDonation, decisions[0].Reason)
}

func TestDonationDeclinedWhenDonationsDisabled(t *testing.T) {
	f := newFixture(core.AccountPolicy{AcceptEscrow: true, Accept1to1Trades: true})

	// One-sided in their favor with donations off; the fairness rules must
	// not accept this just because we give nothing.
	offer := activeOffer("1", 7)
	offer.ItemsToReceive = []core.Asset{cardAsset("b")}
	f.listOffers(offer)
	f.api.Listing.Descriptions = []core.ItemDescription{cardDesc("b", "100-Theirs")}

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, core.ActionDecline, decisions[0].Action)
	assert.Equal(t, core.ReasonUnmatched, decisions[0].Reason)
	require.Len(t, f.api.Calls(), 1)
	assert.Equal(t, "decline_with_message", f.api.Calls()[0].Method)
}

func TestAdminOfferAcceptedRegardlessOfBalance(t *testing.T) {
	f := newFixture(core.AccountPolicy{Admins: []uint64{adminRef}})

	offer := activeOffer("1", 42)
	offer.ItemsToGive = []core.Asset{cardAsset("a"), cardAsset("b")}
	offer.ItemsToReceive = []core.Asset{cardAsset("c")}
	f.listOffers(offer)

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, core.ActionAccept, decisions[0].Action)
	assert.Equal(t, core.ReasonAdminOverride, decisions[0].Reason)
	assert.Equal(t, adminRef, decisions[0].PartnerRef)
	assert.Equal(t, 1, f.confirmer.Sweeps())
}

func TestAdminAcceptFailureStillHandledWithoutSweep(t *testing.T) {
	f := newFixture(core.AccountPolicy{Admins: []uint64{adminRef}})
	f.api.AcceptErr = errors.New("remote unavailable")

	f.listOffers(activeOffer("1", 42))

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, core.ActionAccept, decisions[0].Action)
	assert.Equal(t, core.ReasonAcceptCallFailed, decisions[0].Reason)
	assert.Zero(t, f.confirmer.Sweeps())
}

func TestGiveWithoutReceiveDeclined(t *testing.T) {
	f := newFixture(core.AccountPolicy{})

	offer := activeOffer("1", 7)
	offer.ItemsToGive = []core.Asset{cardAsset("a")}
	f.listOffers(offer)

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, core.ActionDecline, decisions[0].Action)
	assert.Equal(t, core.ReasonUnbalancedGive, decisions[0].Reason)
	require.Len(t, f.api.Calls(), 1)
	assert.Equal(t, "decline", f.api.Calls()[0].Method)
}

func TestEscrowDeclinedWhenNotAccepted(t *testing.T) {
	f := newFixture(core.AccountPolicy{})

	offer := activeOffer("1", 7)
	offer.ItemsToGive = []core.Asset{cardAsset("a")}
	offer.ItemsToReceive = []core.Asset{cardAsset("b")}
	f.listOffers(offer)
	f.api.Escrow["1"] = &core.EscrowDuration{DaysOurEscrow: 1, DaysTheirEscrow: 0}

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, core.ActionDecline, decisions[0].Action)
	assert.Equal(t, core.ReasonEscrowHeld, decisions[0].Reason)
	assert.Equal(t, "decline_with_message", f.api.Calls()[0].Method)
}

func TestEscrowIgnoredWhenAccepted(t *testing.T) {
	f := newFixture(core.AccountPolicy{AcceptEscrow: true, Accept1to2Trades: true})

	offer := activeOffer("1", 7)
	offer.ItemsToGive = []core.Asset{cardAsset("a")}
	offer.ItemsToReceive = []core.Asset{cardAsset("b"), cardAsset("c")}
	f.listOffers(offer)
	f.api.Listing.Descriptions = []core.ItemDescription{
		cardDesc("a", "100-A"), cardDesc("b", "200-B"), cardDesc("c", "300-C"),
	}
	f.api.Escrow["1"] = &core.EscrowDuration{DaysOurEscrow: 1}

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, core.ActionAccept, decisions[0].Action)
	assert.Equal(t, core.ReasonMatched1to2, decisions[0].Reason)
}

func TestEscrowLookupFailureDefersOffer(t *testing.T) {
	f := newFixture(core.AccountPolicy{})

	offer := activeOffer("1", 7)
	offer.ItemsToGive = []core.Asset{cardAsset("a")}
	offer.ItemsToReceive = []core.Asset{cardAsset("b")}
	f.listOffers(offer)
	f.api.EscrowErr = errors.New("timeout")

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, decisions)
	assert.Empty(t, f.api.Calls())
}

func TestMatchedOfferAcceptedAndSwept(t *testing.T) {
	f := newFixture(core.AccountPolicy{AcceptEscrow: true, Accept1to1Trades: true})

	offer := activeOffer("1", 7)
	offer.ItemsToGive = []core.Asset{cardAsset("a")}
	offer.ItemsToReceive = []core.Asset{cardAsset("b")}
	f.listOffers(offer)
	f.api.Listing.Descriptions = []core.ItemDescription{
		cardDesc("a", "100-Ours"), cardDesc("b", "100-Theirs"),
	}

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, core.ReasonMatched1to1, decisions[0].Reason)
	assert.Equal(t, 1, f.confirmer.Sweeps())
}

func TestUnmatchedOfferDeclinedWithMessage(t *testing.T) {
	f := newFixture(core.AccountPolicy{AcceptEscrow: true, Accept1to1Trades: true})

	offer := activeOffer("1", 7)
	offer.ItemsToGive = []core.Asset{cardAsset("a")}
	offer.ItemsToReceive = []core.Asset{cardAsset("b")}
	f.listOffers(offer)
	f.api.Listing.Descriptions = []core.ItemDescription{
		cardDesc("a", "100-Ours"), cardDesc("b", "999-Theirs"),
	}

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, core.ActionDecline, decisions[0].Action)
	assert.Equal(t, core.ReasonUnmatched, decisions[0].Reason)
	assert.Equal(t, "decline_with_message", f.api.Calls()[0].Method)
}

func TestNonActiveOfferIgnored(t *testing.T) {
	f := newFixture(core.AccountPolicy{AcceptDonations: true})

	accepted := activeOffer("1", 7)
	accepted.State = core.TradeOfferStateAccepted
	accepted.ItemsToReceive = []core.Asset{cardAsset("x")}
	f.listOffers(accepted)

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, decisions)
	assert.Empty(t, f.api.Calls())
}

func TestEmailConfirmationCountsAsHandled(t *testing.T) {
	f := newFixture(core.AccountPolicy{})

	offer := activeOffer("1", 7)
	offer.ConfirmationMethod = core.ConfirmationMethodEmail
	f.listOffers(offer)

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, core.ActionDefer, decisions[0].Action)
	assert.Equal(t, core.ReasonEmailConfirmRequired, decisions[0].Reason)
	assert.Empty(t, f.api.Calls())
}

func TestMobileConfirmationTriggersSweep(t *testing.T) {
	f := newFixture(core.AccountPolicy{})

	offer := activeOffer("1", 7)
	offer.ConfirmationMethod = core.ConfirmationMethodMobileApp
	f.listOffers(offer)

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, core.ReasonMobileConfirmRequired, decisions[0].Reason)
	assert.Equal(t, 1, f.confirmer.Sweeps())
}

func TestUnauthenticatedOfferSkippedNotHandled(t *testing.T) {
	f := newFixture(core.AccountPolicy{AcceptDonations: true})
	f.auth.Valid = false
	f.auth.ReauthOK = false

	offer := activeOffer("1", 7)
	offer.ItemsToReceive = []core.Asset{cardAsset("x")}
	f.listOffers(offer)

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, decisions)
	assert.Empty(t, f.api.Calls())
	assert.Equal(t, 1, f.auth.EnsureCalls)
}

func TestHandledCountCappedBySummary(t *testing.T) {
	f := newFixture(core.AccountPolicy{AcceptDonations: true})

	first := activeOffer("1", 7)
	first.ItemsToReceive = []core.Asset{cardAsset("x")}
	stale := activeOffer("2", 8)
	stale.ItemsToReceive = []core.Asset{cardAsset("y")}

	f.listOffers(first, stale)
	f.api.Summary.PendingReceivedCount = 1

	decisions, err := f.engine.ProcessPendingOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "1", decisions[0].OfferID)
	assert.Empty(t, f.api.CallsTo("2"))
}

func TestSummaryFailurePropagates(t *testing.T) {
	f := newFixture(core.AccountPolicy{})
	f.api.SummaryErr = apperrors.ErrRemoteCallFailed

	_, err := f.engine.ProcessPendingOffers(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrRemoteCallFailed)
}

func TestListingFailurePropagates(t *testing.T) {
	f := newFixture(core.AccountPolicy{})
	f.api.ListingErr = apperrors.ErrRemoteCallFailed

	_, err := f.engine.ProcessPendingOffers(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrRemoteCallFailed)
}

func TestCatalogMissFailsPass(t *testing.T) {
	f := newFixture(core.AccountPolicy{AcceptEscrow: true, Accept1to1Trades: true})

	offer := activeOffer("1", 7)
	offer.ItemsToGive = []core.Asset{cardAsset("a")}
	offer.ItemsToReceive = []core.Asset{cardAsset("b")}
	f.listOffers(offer)
	// Descriptions deliberately missing.

	_, err := f.engine.ProcessPendingOffers(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrDescriptionNotFound)
}
