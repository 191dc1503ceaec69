// Package catalog provides the bundled card set used in offline mode and served by the API
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/barkatlearn/learn/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed cards.yaml
var bundledCards []byte

// Catalog is an immutable, ordered set of cards
type Catalog struct {
	cards []models.APICard
	index map[string]int
}

type catalogFile struct {
	Cards []models.APICard `yaml:"cards"`
}

// Parse decodes a YAML catalog document.
//
// Every card must have a unique, non-empty id.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		cards: make([]models.APICard, 0, len(file.Cards)),
		index: make(map[string]int, len(file.Cards)),
	}
	for i, card := range file.Cards {
		id := strings.TrimSpace(string(card.ID))
		if id == "" {
			return nil, fmt.Errorf("card #%d has no id", i+1)
		}
		if _, exists := c.index[id]; exists {
			return nil, fmt.Errorf("duplicate card id %q", id)
		}
		card.ID = models.LooseString(id)
		c.index[id] = len(c.cards)
		c.cards = append(c.cards, card)
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog embedded in the binary
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(bundledCards)
		if err != nil {
			panic(fmt.Sprintf("bundled catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// All returns a copy of every card in catalog order
func (c *Catalog) All() []models.APICard {
	out := make([]models.APICard, len(c.cards))
	copy(out, c.cards)
	return out
}

// Len returns the number of cards
func (c *Catalog) Len() int {
	return len(c.cards)
}

// Get returns the card with the given id
func (c *Catalog) Get(id string) (models.APICard, bool) {
	i, ok := c.index[id]
	if !ok {
		return models.APICard{}, false
	}
	return c.cards[i], true
}

// Has reports whether a card with the given id exists
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// ByCategory returns the cards whose category resolves to the given one.
// Cards with an unrecognised category belong to models.DefaultCategory.
func (c *Catalog) ByCategory(category models.Category) []models.APICard {
	out := make([]models.APICard, 0)
	for _, card := range c.cards {
		if categoryOf(card) == category {
			out = append(out, card)
		}
	}
	return out
}

// CategoryOf returns the category the card with the given id belongs to
func (c *Catalog) CategoryOf(id string) (models.Category, bool) {
	card, ok := c.Get(id)
	if !ok {
		return "", false
	}
	return categoryOf(card), true
}

func categoryOf(card models.APICard) models.Category {
	if category, ok := models.ParseCategory(string(card.Category)); ok {
		return category
	}
	return models.DefaultCategory
}
