package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CardType describes how a card is consumed
type CardType string

const (
	// CardTypeFlash is a short card learned by swiping
	CardTypeFlash CardType = "flash_card"
	// CardTypeExplain is a card that must be read to the end in the detail reader
	CardTypeExplain CardType = "explain_card"
)

// DefaultCardType is assigned to feed cards whose type cannot be recognised
const DefaultCardType = CardTypeFlash

// Icon placements accepted for quote-style cards
const (
	IconPlacementTop    = "top"
	IconPlacementBottom = "bottom"
)

// DefaultCardImage is shown for cards that arrive without an image
const DefaultCardImage = "assets/learn/namaz.jpg"

// Card is a learning card as the client presents it
type Card struct {
	ID            string   `json:"id"`
	Category      Category `json:"category"`
	CardType      CardType `json:"cardType"`
	Title         string   `json:"title"`
	ShortText     string   `json:"short_text"`
	FullText      string   `json:"full_text"`
	Reference     string   `json:"reference"`
	Image         string   `json:"image"`
	IconPlacement string   `json:"iconPlacement,omitempty"`
	CardColor     string   `json:"cardColor,omitempty"`
}

// APICard is the card shape exchanged with the backend.
//
// String fields use LooseString so a record with a wrongly typed field is defaulted instead of failing the whole feed.
type APICard struct {
	ID            LooseString `json:"id" yaml:"id"`
	Category      LooseString `json:"category" yaml:"category"`
	CardType      LooseString `json:"cardType" yaml:"cardType"`
	Title         LooseString `json:"title" yaml:"title"`
	Preview       LooseString `json:"preview" yaml:"preview"`
	Content       LooseString `json:"content" yaml:"content"`
	Reference     LooseString `json:"reference,omitempty" yaml:"reference"`
	Image         LooseString `json:"image,omitempty" yaml:"image"`
	IconPlacement LooseString `json:"iconPlacement,omitempty" yaml:"iconPlacement"`
	CardColor     LooseString `json:"cardColor,omitempty" yaml:"cardColor"`
	IsBookmarked  bool        `json:"isBookmarked,omitempty" yaml:"-"`
}

// LooseString decodes any JSON value, keeping only strings. Other values decode as "".
type LooseString string

// UnmarshalJSON implements json.Unmarshaler
func (s *LooseString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil
	}
	*s = LooseString(v)
	return nil
}

// FeedPage is one page of cards returned by the feed, category and bookmark endpoints
type FeedPage struct {
	Items   []APICard `json:"items"`
	Total   int       `json:"total"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
	HasMore bool      `json:"hasMore"`
}

// UnmarshalJSON accepts either a paginated object or a bare array of cards
func (p *FeedPage) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []APICard
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("invalid card list: %w", err)
		}
		*p = FeedPage{Items: items, Total: len(items), Limit: len(items)}
		return nil
	}

	type page FeedPage
	raw := struct {
		page
		Total *int `json:"total"`
	}{}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("invalid feed page: %w", err)
	}
	*p = FeedPage(raw.page)
	if raw.Total != nil {
		p.Total = *raw.Total
	} else {
		p.Total = len(p.Items)
	}
	return nil
}

// Paginate returns a FeedPage holding cards[offset:offset+limit]
func Paginate(cards []APICard, limit, offset int) FeedPage {
	if offset < 0 {
		offset = 0
	}
	if offset > len(cards) {
		offset = len(cards)
	}
	end := len(cards)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	items := make([]APICard, end-offset)
	copy(items, cards[offset:end])
	return FeedPage{
		Items:   items,
		Total:   len(cards),
		Limit:   limit,
		Offset:  offset,
		HasMore: end < len(cards),
	}
}
