// Package steam implements clients for the platform's web services
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"tradebot/internal/core"
	apperrors "tradebot/pkg/errors"
	webhttp "tradebot/pkg/http"
)

// TradeOfferAPI talks to the remote trade-offer web service. Calls are
// authenticated with the account's web API key; accept/decline additionally
// require the session cookies held by the shared web client.
type TradeOfferAPI struct {
	web           *webhttp.Client
	auth          core.ISessionAuthenticator
	communityHost string
	apiBaseURL    string
	logger        core.ILogger
}

// NewTradeOfferAPI creates a trade-offer service client.
func NewTradeOfferAPI(web *webhttp.Client, auth core.ISessionAuthenticator, communityHost, apiBaseURL string, logger core.ILogger) *TradeOfferAPI {
	return &TradeOfferAPI{
		web:           web,
		auth:          auth,
		communityHost: communityHost,
		apiBaseURL:    apiBaseURL,
		logger:        logger.WithField("component", "tradeoffer_api"),
	}
}

type summaryEnvelope struct {
	Response core.TradeOffersSummary `json:"response"`
}

// GetTradeOffersSummary returns the authoritative pending-offer counts.
func (t *TradeOfferAPI) GetTradeOffersSummary(ctx context.Context) (*core.TradeOffersSummary, error) {
	body, err := t.web.Get(ctx, t.apiBaseURL+"/IEconService/GetTradeOffersSummary/v1/", map[string]string{
		"key": t.auth.Session().APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: summary: %v", apperrors.ErrRemoteCallFailed, err)
	}

	var envelope summaryEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse offers summary: %w", err)
	}
	return &envelope.Response, nil
}

type offersEnvelope struct {
	Response core.OffersResponse `json:"response"`
}

// GetReceivedOffers lists received offers together with the shared item
// description catalog.
func (t *TradeOfferAPI) GetReceivedOffers(ctx context.Context, activeOnly bool) (*core.OffersResponse, error) {
	params := map[string]string{
		"key":                 t.auth.Session().APIKey,
		"get_received_offers": "1",
		"get_descriptions":    "1",
		"language":            "english",
	}
	if activeOnly {
		params["active_only"] = "1"
	}

	body, err := t.web.Get(ctx, t.apiBaseURL+"/IEconService/GetTradeOffers/v1/", params)
	if err != nil {
		return nil, fmt.Errorf("%w: received offers: %v", apperrors.ErrRemoteCallFailed, err)
	}

	var envelope offersEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse received offers: %w", err)
	}
	return &envelope.Response, nil
}

// AcceptTradeOffer accepts an offer through the community endpoint.
func (t *TradeOfferAPI) AcceptTradeOffer(ctx context.Context, offerID string, partnerRef uint64) error {
	acceptURL := fmt.Sprintf("https://%s/tradeoffer/%s/accept", t.communityHost, offerID)
	_, err := t.web.PostForm(ctx, acceptURL, url.Values{
		"sessionid":    {t.auth.Session().SessionID},
		"serverid":     {"1"},
		"tradeofferid": {offerID},
		"partner":      {strconv.FormatUint(partnerRef, 10)},
	})
	if err != nil {
		return fmt.Errorf("%w: accept offer %s: %v", apperrors.ErrRemoteCallFailed, offerID, err)
	}

	t.logger.Info("Accepted trade offer", "offer_id", offerID, "partner", partnerRef)
	return nil
}

// DeclineTradeOffer declines an offer.
func (t *TradeOfferAPI) DeclineTradeOffer(ctx context.Context, offerID string, partnerRef uint64) error {
	if err := t.decline(ctx, offerID); err != nil {
		return err
	}
	t.logger.Info("Declined trade offer", "offer_id", offerID, "partner", partnerRef)
	return nil
}

// DeclineTradeOfferWithMessage declines an offer and logs the short
// explanation shown to the counterparty.
func (t *TradeOfferAPI) DeclineTradeOfferWithMessage(ctx context.Context, offerID string, partnerRef uint64) error {
	if err := t.decline(ctx, offerID); err != nil {
		return err
	}
	t.logger.Info("Declined trade offer, it did not meet the trade rules",
		"offer_id", offerID, "partner", partnerRef)
	return nil
}

func (t *TradeOfferAPI) decline(ctx context.Context, offerID string) error {
	declineURL := fmt.Sprintf("https://%s/tradeoffer/%s/decline", t.communityHost, offerID)
	_, err := t.web.PostForm(ctx, declineURL, url.Values{
		"sessionid":    {t.auth.Session().SessionID},
		"serverid":     {"1"},
		"tradeofferid": {offerID},
	})
	if err != nil {
		return fmt.Errorf("%w: decline offer %s: %v", apperrors.ErrRemoteCallFailed, offerID, err)
	}
	return nil
}

type escrowEnvelope struct {
	Response struct {
		MyEscrow struct {
			Days int `json:"escrow_end_duration_days"`
		} `json:"my_escrow"`
		TheirEscrow struct {
			Days int `json:"escrow_end_duration_days"`
		} `json:"their_escrow"`
	} `json:"response"`
}

// GetTradeOfferEscrowDuration queries the holding period both sides would
// incur for an offer.
func (t *TradeOfferAPI) GetTradeOfferEscrowDuration(ctx context.Context, offerID string) (*core.EscrowDuration, error) {
	body, err := t.web.Get(ctx, t.apiBaseURL+"/IEconService/GetTradeHoldDurations/v1/", map[string]string{
		"key":            t.auth.Session().APIKey,
		"trade_offer_id": offerID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: escrow duration for offer %s: %v", apperrors.ErrRemoteCallFailed, offerID, err)
	}

	var envelope escrowEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse escrow duration: %w", err)
	}
	return &core.EscrowDuration{
		DaysOurEscrow:   envelope.Response.MyEscrow.Days,
		DaysTheirEscrow: envelope.Response.TheirEscrow.Days,
	}, nil
}
