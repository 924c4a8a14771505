// Package engine orchestrates per-offer decisions and the polling loop that
// drives them.
package engine

import (
	"context"
	"fmt"

	"tradebot/internal/alert"
	"tradebot/internal/classify"
	"tradebot/internal/core"
	"tradebot/internal/match"
	"tradebot/pkg/telemetry"
)

// TradeDecisionEngine evaluates every pending received offer once per pass
// and applies the resulting accept/decline calls. Offers are never mutated
// locally; the remote listing is re-polled next cycle, so a failed call is
// simply retried then.
type TradeDecisionEngine struct {
	api       core.ITradeOfferAPI
	auth      core.ISessionAuthenticator
	friends   core.IFriendResolver
	confirmer core.IConfirmationService
	matcher   *match.Matcher
	policy    core.AccountPolicy
	alerts    *alert.AlertManager
	logger    core.ILogger
}

func NewTradeDecisionEngine(
	api core.ITradeOfferAPI,
	auth core.ISessionAuthenticator,
	friends core.IFriendResolver,
	confirmer core.IConfirmationService,
	matcher *match.Matcher,
	policy core.AccountPolicy,
	alerts *alert.AlertManager,
	logger core.ILogger,
) *TradeDecisionEngine {
	return &TradeDecisionEngine{
		api:       api,
		auth:      auth,
		friends:   friends,
		confirmer: confirmer,
		matcher:   matcher,
		policy:    policy,
		alerts:    alerts,
		logger:    logger.WithField("component", "decision_engine"),
	}
}

// ProcessPendingOffers runs one evaluation pass. It stops once the number of
// handled offers reaches the authoritative pending count from the summary
// call, skips non-active offers, and contains per-offer failures so one bad
// offer never blocks the rest. A missing catalog description is the
// exception: it signals malformed listing data and fails the pass.
func (e *TradeDecisionEngine) ProcessPendingOffers(ctx context.Context) ([]core.Decision, error) {
	summary, err := e.api.GetTradeOffersSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching offer summary: %w", err)
	}
	telemetry.GetGlobalMetrics().SetPendingOffers(summary.PendingReceivedCount)

	listing, err := e.api.GetReceivedOffers(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("fetching received offers: %w", err)
	}

	catalog := classify.NewCatalog(listing.Descriptions)

	e.logger.Debug("Evaluation pass started",
		"pending", summary.PendingReceivedCount, "listed", len(listing.Offers))

	handled := 0
	decisions := make([]core.Decision, 0, len(listing.Offers))

	for _, offer := range listing.Offers {
		// The summary count is authoritative; entries beyond it are stale.
		if handled >= summary.PendingReceivedCount {
			break
		}
		if offer.State != core.TradeOfferStateActive {
			continue
		}

		if offer.ConfirmationMethod == core.ConfirmationMethodEmail {
			// Confirmation happens out-of-band; nothing to do remotely.
			e.logger.Info("Offer awaits email confirmation", "offer_id", offer.TradeOfferID)
			handled++
			decisions = append(decisions, e.record(ctx, offer, 0, core.ActionDefer, core.ReasonEmailConfirmRequired))
			continue
		}

		if !e.auth.EnsureAuthenticated(ctx) {
			// Not handled; the next tick retries this offer.
			e.logger.Warn("Session not authenticated, deferring offer", "offer_id", offer.TradeOfferID)
			e.alertf(ctx, alert.Warning, "Session authentication failed",
				"Could not refresh the web session; offer evaluation deferred.", nil)
			continue
		}

		if offer.ConfirmationMethod == core.ConfirmationMethodMobileApp {
			e.sweepConfirmations(ctx)
			handled++
			decisions = append(decisions, e.record(ctx, offer, 0, core.ActionDefer, core.ReasonMobileConfirmRequired))
			continue
		}

		partnerRef := e.friends.ResolveAccountRef(offer.AccountIDOther)

		decision, acted, err := e.decideOffer(ctx, offer, partnerRef, catalog)
		if err != nil {
			return decisions, err
		}
		if !acted {
			// Per-offer remote failure; retried next tick.
			continue
		}

		handled++
		decisions = append(decisions, decision)
	}

	telemetry.GetGlobalMetrics().RecordHandled(ctx, handled)
	e.logger.Info("Evaluation pass finished", "handled", handled, "decisions", len(decisions))
	return decisions, nil
}

// decideOffer applies the policy checks in fixed order: donation, admin
// override, give-without-receive, escrow, then the fairness rules. The bool
// result reports whether the offer counts as handled this pass; an error is
// returned only for a catalog miss, which fails the whole pass.
func (e *TradeDecisionEngine) decideOffer(ctx context.Context, offer core.TradeOffer, partnerRef uint64, catalog classify.Catalog) (core.Decision, bool, error) {
	if len(offer.ItemsToGive) == 0 && len(offer.ItemsToReceive) > 0 && e.policy.AcceptDonations {
		// Best-effort accept; the result is deliberately ignored because the
		// offer is re-polled next cycle either way.
		if err := e.api.AcceptTradeOffer(ctx, offer.TradeOfferID, partnerRef); err != nil {
			e.logger.Error("Donation accept failed", "offer_id", offer.TradeOfferID, "error", err)
		}
		e.alertOffer(ctx, alert.Info, "Donation accepted", offer, partnerRef)
		return e.record(ctx, offer, partnerRef, core.ActionAccept, core.ReasonDonation), true, nil
	}

	if e.friends.IsAdmin(partnerRef, e.policy.Admins) {
		// Counts as handled even when the accept call fails; the offer stays
		// active remotely and reappears in the next listing.
		reason := core.ReasonAdminOverride
		if err := e.api.AcceptTradeOffer(ctx, offer.TradeOfferID, partnerRef); err != nil {
			e.logger.Error("Admin accept failed", "offer_id", offer.TradeOfferID, "error", err)
			reason = core.ReasonAcceptCallFailed
		} else {
			e.sweepConfirmations(ctx)
		}
		e.alertOffer(ctx, alert.Info, "Admin offer accepted", offer, partnerRef)
		return e.record(ctx, offer, partnerRef, core.ActionAccept, reason), true, nil
	}

	if len(offer.ItemsToGive) > 0 && len(offer.ItemsToReceive) == 0 {
		if err := e.api.DeclineTradeOffer(ctx, offer.TradeOfferID, partnerRef); err != nil {
			e.logger.Error("Decline failed", "offer_id", offer.TradeOfferID, "error", err)
		}
		e.alertOffer(ctx, alert.Warning, "One-sided offer declined", offer, partnerRef)
		return e.record(ctx, offer, partnerRef, core.ActionDecline, core.ReasonUnbalancedGive), true, nil
	}

	if !e.policy.AcceptEscrow {
		escrow, err := e.api.GetTradeOfferEscrowDuration(ctx, offer.TradeOfferID)
		if err != nil {
			e.logger.Error("Escrow lookup failed", "offer_id", offer.TradeOfferID, "error", err)
			return core.Decision{}, false, nil
		}
		if escrow.DaysOurEscrow > 0 || escrow.DaysTheirEscrow > 0 {
			if err := e.api.DeclineTradeOfferWithMessage(ctx, offer.TradeOfferID, partnerRef); err != nil {
				e.logger.Error("Decline failed", "offer_id", offer.TradeOfferID, "error", err)
			}
			e.alertOffer(ctx, alert.Warning, "Escrow-held offer declined", offer, partnerRef)
			return e.record(ctx, offer, partnerRef, core.ActionDecline, core.ReasonEscrowHeld), true, nil
		}
	}

	return e.applyMatch(ctx, offer, partnerRef, catalog)
}

// applyMatch evaluates the fairness rules and applies the outcome remotely.
func (e *TradeDecisionEngine) applyMatch(ctx context.Context, offer core.TradeOffer, partnerRef uint64, catalog classify.Catalog) (core.Decision, bool, error) {
	result, err := e.matcher.Evaluate(offer, catalog, e.policy)
	if err != nil {
		return core.Decision{}, false, fmt.Errorf("evaluating offer %s: %w", offer.TradeOfferID, err)
	}

	switch result {
	case match.AcceptOneForTwo, match.AcceptOneForOne:
		reason := core.ReasonMatched1to2
		if result == match.AcceptOneForOne {
			reason = core.ReasonMatched1to1
		}
		if err := e.api.AcceptTradeOffer(ctx, offer.TradeOfferID, partnerRef); err != nil {
			e.logger.Error("Accept failed", "offer_id", offer.TradeOfferID, "error", err)
			reason = core.ReasonAcceptCallFailed
		} else {
			e.sweepConfirmations(ctx)
		}
		e.alertOffer(ctx, alert.Info, "Offer accepted", offer, partnerRef)
		return e.record(ctx, offer, partnerRef, core.ActionAccept, reason), true, nil

	case match.DeclineUnrecognized:
		if err := e.api.DeclineTradeOffer(ctx, offer.TradeOfferID, partnerRef); err != nil {
			e.logger.Error("Decline failed", "offer_id", offer.TradeOfferID, "error", err)
		}
		e.alertOffer(ctx, alert.Warning, "Unrecognized items declined", offer, partnerRef)
		return e.record(ctx, offer, partnerRef, core.ActionDecline, core.ReasonUnmatched), true, nil

	default:
		if err := e.api.DeclineTradeOfferWithMessage(ctx, offer.TradeOfferID, partnerRef); err != nil {
			e.logger.Error("Decline failed", "offer_id", offer.TradeOfferID, "error", err)
		}
		e.alertOffer(ctx, alert.Warning, "Unmatched offer declined", offer, partnerRef)
		return e.record(ctx, offer, partnerRef, core.ActionDecline, core.ReasonUnmatched), true, nil
	}
}

// sweepConfirmations triggers the bulk mobile confirmation sweep. The sweep
// is not offer-scoped; a failure is logged and the confirmations stay
// pending for the next trigger.
func (e *TradeDecisionEngine) sweepConfirmations(ctx context.Context) {
	if err := e.confirmer.ConfirmAll(ctx, e.auth.Session()); err != nil {
		e.logger.Error("Mobile confirmation sweep failed", "error", err)
	}
}

func (e *TradeDecisionEngine) record(ctx context.Context, offer core.TradeOffer, partnerRef uint64, action core.DecisionAction, reason core.DecisionReason) core.Decision {
	telemetry.GetGlobalMetrics().RecordDecision(ctx, action.String(), string(reason))
	e.logger.Info("Offer decided",
		"offer_id", offer.TradeOfferID, "action", action.String(), "reason", string(reason))
	return core.Decision{
		OfferID:    offer.TradeOfferID,
		PartnerRef: partnerRef,
		Action:     action,
		Reason:     reason,
	}
}

func (e *TradeDecisionEngine) alertOffer(ctx context.Context, level alert.AlertLevel, title string, offer core.TradeOffer, partnerRef uint64) {
	e.alertf(ctx, level, title, "", map[string]string{
		"offer_id": offer.TradeOfferID,
		"partner":  fmt.Sprintf("%d", partnerRef),
	})
}

func (e *TradeDecisionEngine) alertf(ctx context.Context, level alert.AlertLevel, title, message string, fields map[string]string) {
	if e.alerts == nil {
		return
	}
	e.alerts.Alert(ctx, title, message, level, fields)
}
