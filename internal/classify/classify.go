// Package classify maps raw inventory items to semantic item categories
package classify

import (
	"fmt"
	"strconv"
	"strings"
	"tradebot/internal/core"
	apperrors "tradebot/pkg/errors"
)

// CardGameAppID is the application namespace whose items are eligible for
// trade evaluation. Everything else is ignored, not matched.
const CardGameAppID = "753"

// Category is a bitmask of semantic item categories.
type Category uint8

const (
	BoosterPack Category = 1 << iota
	Emoticon
	ProfileBackground
	Gems
	FoilCard
	PlainCard
)

// categoryOrder fixes classification precedence. FoilCard is tested strictly
// before PlainCard because "foil trading card" also contains the substring
// "trading card".
var categoryOrder = []Category{BoosterPack, Emoticon, ProfileBackground, Gems, FoilCard, PlainCard}

func (c Category) String() string {
	switch c {
	case BoosterPack:
		return "booster-pack"
	case Emoticon:
		return "emoticon"
	case ProfileBackground:
		return "profile-background"
	case Gems:
		return "gems"
	case FoilCard:
		return "foil-card"
	case PlainCard:
		return "plain-card"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Classify derives the single category of an item description from its type
// label. The second return value is false when no rule matches.
func Classify(desc core.ItemDescription) (Category, bool) {
	typeLabel := strings.ToLower(desc.Type)

	for _, category := range categoryOrder {
		switch category {
		case BoosterPack:
			if strings.Contains(typeLabel, "booster pack") {
				return BoosterPack, true
			}
		case Emoticon:
			if strings.Contains(typeLabel, "emoticon") {
				return Emoticon, true
			}
		case ProfileBackground:
			if strings.Contains(typeLabel, "profile background") {
				return ProfileBackground, true
			}
		case Gems:
			if desc.Type == "Steam Gems" {
				return Gems, true
			}
		case FoilCard:
			if strings.Contains(typeLabel, "foil") {
				return FoilCard, true
			}
		case PlainCard:
			if strings.Contains(typeLabel, "trading card") {
				return PlainCard, true
			}
		}
	}

	return 0, false
}

// AppID derives the item's game application id from the prefix of its market
// hash name, up to the '-' separator.
func AppID(desc core.ItemDescription) (int, error) {
	prefix, _, _ := strings.Cut(desc.MarketHashName, "-")
	appID, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrMalformedMarketName, desc.MarketHashName)
	}
	return appID, nil
}

// Catalog is the shared item description catalog of one offer listing,
// keyed by (classid, instanceid).
type Catalog map[catalogKey]core.ItemDescription

type catalogKey struct {
	classID    string
	instanceID string
}

// NewCatalog indexes the descriptions of an offer listing response.
func NewCatalog(descriptions []core.ItemDescription) Catalog {
	catalog := make(Catalog, len(descriptions))
	for _, desc := range descriptions {
		catalog[catalogKey{desc.ClassID, desc.InstanceID}] = desc
	}
	return catalog
}

// Lookup resolves an asset's description. A missing description indicates a
// cataloging mismatch and is surfaced, never swallowed.
func (c Catalog) Lookup(classID, instanceID string) (core.ItemDescription, error) {
	desc, ok := c[catalogKey{classID, instanceID}]
	if !ok {
		return core.ItemDescription{}, fmt.Errorf("%w: classid=%s instanceid=%s",
			apperrors.ErrDescriptionNotFound, classID, instanceID)
	}
	return desc, nil
}

// FilterByCategory returns every eligible item whose classification is in
// mask, in original order. Items outside the card-game namespace are
// ignored; a missing description fails the whole call.
func FilterByCategory(items []core.Asset, catalog Catalog, mask Category) ([]core.ItemDescription, error) {
	var filtered []core.ItemDescription
	for _, item := range items {
		if item.AppID != CardGameAppID {
			continue
		}

		desc, err := catalog.Lookup(item.ClassID, item.InstanceID)
		if err != nil {
			return nil, err
		}

		if category, ok := Classify(desc); ok && mask&category != 0 {
			filtered = append(filtered, desc)
		}
	}
	return filtered, nil
}
