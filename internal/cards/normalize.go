// Package cards turns feed cards into client cards, substituting defaults for malformed fields
package cards

import (
	"regexp"
	"strings"

	"github.com/barkatlearn/learn/internal/models"
	"go.uber.org/zap"
)

// hexColorRegex validates a "#RRGGBB" card color
var hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Normalize converts a feed card into a client card.
//
// An unknown category becomes models.DefaultCategory, an unknown card type becomes models.DefaultCardType,
// a placement other than top/bottom and a color that is not "#RRGGBB" are dropped, and a missing image is replaced
// with models.DefaultCardImage. The second return value reports whether the category or card type was defaulted.
func Normalize(card models.APICard) (models.Card, bool) {
	defaulted := false

	category, ok := models.ParseCategory(string(card.Category))
	if !ok {
		category = models.DefaultCategory
		defaulted = true
	}

	cardType := models.CardType(card.CardType)
	if cardType != models.CardTypeFlash && cardType != models.CardTypeExplain {
		cardType = models.DefaultCardType
		defaulted = true
	}

	placement := string(card.IconPlacement)
	if placement != models.IconPlacementTop && placement != models.IconPlacementBottom {
		placement = ""
	}

	color := string(card.CardColor)
	if !hexColorRegex.MatchString(color) {
		color = ""
	}

	image := strings.TrimSpace(string(card.Image))
	if image == "" {
		image = models.DefaultCardImage
	}

	return models.Card{
		ID:            string(card.ID),
		Category:      category,
		CardType:      cardType,
		Title:         string(card.Title),
		ShortText:     string(card.Preview),
		FullText:      string(card.Content),
		Reference:     string(card.Reference),
		Image:         image,
		IconPlacement: placement,
		CardColor:     color,
	}, defaulted
}

// NormalizeAll normalizes every card independently so one bad record never drops the rest
func NormalizeAll(feed []models.APICard, logger *zap.Logger) []models.Card {
	out := make([]models.Card, 0, len(feed))
	for _, apiCard := range feed {
		card, defaulted := Normalize(apiCard)
		if defaulted && logger != nil {
			logger.Debug("card defaulted",
				zap.String("card_id", card.ID),
				zap.String("category", string(apiCard.Category)),
				zap.String("card_type", string(apiCard.CardType)),
			)
		}
		out = append(out, card)
	}
	return out
}

// BookmarkedIDs returns the ids of feed cards flagged as bookmarked, in feed order
func BookmarkedIDs(feed []models.APICard) []string {
	ids := make([]string, 0)
	for _, card := range feed {
		if card.IsBookmarked && card.ID != "" {
			ids = append(ids, string(card.ID))
		}
	}
	return ids
}
