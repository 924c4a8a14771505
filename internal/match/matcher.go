// Package match implements the trade-fairness decision rules
package match

import (
	"tradebot/internal/classify"
	"tradebot/internal/core"
)

// Result is the outcome of evaluating one offer's item lists.
type Result int

const (
	// DeclineUnmatched declines because no fairness rule accepted.
	DeclineUnmatched Result = iota
	// DeclineUnrecognized declines because the offer asks us to give items
	// that are not recognized cards and cannot be evaluated.
	DeclineUnrecognized
	// AcceptOneForTwo accepts under the 1-to-2 rule.
	AcceptOneForTwo
	// AcceptOneForOne accepts under the 1-to-1 same-namespace rule.
	AcceptOneForOne
)

// Accepted reports whether the result is an accepting one.
func (r Result) Accepted() bool {
	return r == AcceptOneForTwo || r == AcceptOneForOne
}

// Matcher evaluates offers against the account policy. It is stateless
// beyond its logger.
type Matcher struct {
	logger core.ILogger
}

// NewMatcher creates a matcher.
func NewMatcher(logger core.ILogger) *Matcher {
	return &Matcher{logger: logger.WithField("component", "matcher")}
}

// Evaluate applies the fairness rules in fixed order, first success wins:
// the 1-to-2 rule, then the 1-to-1 same-namespace rule. Our side counts
// plain cards only; their side counts plain and foil cards. An error means
// a description was missing from the catalog.
func (m *Matcher) Evaluate(offer core.TradeOffer, catalog classify.Catalog, policy core.AccountPolicy) (Result, error) {
	// Both sides must hold items; with an empty side the 1-to-1 rule would
	// accept vacuously (zero pairs covering zero offered items).
	if len(offer.ItemsToGive) == 0 || len(offer.ItemsToReceive) == 0 {
		return DeclineUnmatched, nil
	}

	ourItems, err := classify.FilterByCategory(offer.ItemsToGive, catalog, classify.PlainCard)
	if err != nil {
		return DeclineUnmatched, err
	}
	theirItems, err := classify.FilterByCategory(offer.ItemsToReceive, catalog, classify.PlainCard|classify.FoilCard)
	if err != nil {
		return DeclineUnmatched, err
	}

	ourCount := len(ourItems)

	result := DeclineUnmatched
	if policy.Accept1to2Trades && m.isOneForTwo(ourItems, theirItems) {
		result = AcceptOneForTwo
	}
	if policy.Accept1to1Trades && !result.Accepted() {
		if len(m.matchOneForOne(ourItems, theirItems)) == ourCount {
			result = AcceptOneForOne
		}
	}

	// An offered item that is not a recognized card cannot be evaluated;
	// decline regardless of what the rules said.
	if len(offer.ItemsToGive) > ourCount {
		return DeclineUnrecognized, nil
	}

	return result, nil
}

// isOneForTwo accepts when they offer at least twice as many cards as they
// request, so 1:2, 2:4 and so on.
func (m *Matcher) isOneForTwo(ourItems, theirItems []core.ItemDescription) bool {
	return len(ourItems) > 0 && len(theirItems) >= 2*len(ourItems)
}

// matchOneForOne greedily pairs our items against theirs by application id.
// Both lists are scanned from the end backward; each match removes both
// items from the working lists so no item is matched twice. An item whose
// application id cannot be derived is logged and excluded from matching.
func (m *Matcher) matchOneForOne(ourItems, theirItems []core.ItemDescription) []core.ItemDescription {
	ours := append([]core.ItemDescription(nil), ourItems...)
	theirs := append([]core.ItemDescription(nil), theirItems...)

	matched := make([]core.ItemDescription, 0, len(ours))

	for i := len(ours) - 1; i >= 0; i-- {
		ourApp, err := classify.AppID(ours[i])
		if err != nil {
			m.logger.Error("Cannot derive application id for our item",
				"market_hash_name", ours[i].MarketHashName, "error", err)
			continue
		}

		for j := len(theirs) - 1; j >= 0; j-- {
			theirApp, err := classify.AppID(theirs[j])
			if err != nil {
				m.logger.Error("Cannot derive application id for their item",
					"market_hash_name", theirs[j].MarketHashName, "error", err)
				continue
			}

			if ourApp == theirApp {
				matched = append(matched, ours[i])
				ours = append(ours[:i], ours[i+1:]...)
				theirs = append(theirs[:j], theirs[j+1:]...)
				break
			}
		}
	}

	return matched
}
