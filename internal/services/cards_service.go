package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/barkatlearn/learn/internal/catalog"
	"github.com/barkatlearn/learn/internal/models"
	"go.uber.org/zap"
)

// Bookmark mutation messages
const (
	MessageAlreadySaved = "Already saved"
	MessageCardSaved    = "Card saved"
	MessageCardRemoved  = "Card removed from saved"
)

// cardsService implements card listings and bookmarks
type cardsService struct {
	catalog      *catalog.Catalog
	progressRepo ProgressRepository
	progress     *progressService
	logger       *zap.Logger
}

// NewCardsService creates a new cards service
func NewCardsService(cards *catalog.Catalog, progressRepo ProgressRepository, logger *zap.Logger) *cardsService {
	return &cardsService{
		catalog:      cards,
		progressRepo: progressRepo,
		progress:     NewProgressService(progressRepo, cards, logger),
		logger:       logger,
	}
}

// All returns every card of the catalog
func (s *cardsService) All(ctx context.Context) []models.APICard {
	return s.catalog.All()
}

// Feed returns a page of the catalog. For a signed in user bookmarked cards are flagged.
func (s *cardsService) Feed(ctx context.Context, userID string, limit, offset int) (*models.FeedPage, error) {
	cards, err := s.flagBookmarks(ctx, userID, s.catalog.All())
	if err != nil {
		return nil, err
	}
	page := models.Paginate(cards, limit, offset)
	return &page, nil
}

// ByCategory returns a page of the cards of one category, named by slug or display name
func (s *cardsService) ByCategory(ctx context.Context, userID, category string, limit, offset int) (*models.FeedPage, error) {
	c, ok := models.ParseCategory(category)
	if !ok {
		return nil, validationError(fmt.Sprintf("Unknown category: %s", category))
	}

	cards, err := s.flagBookmarks(ctx, userID, s.catalog.ByCategory(c))
	if err != nil {
		return nil, err
	}
	page := models.Paginate(cards, limit, offset)
	return &page, nil
}

// Completed returns a page of the cards of one category the user has learned or finished
func (s *cardsService) Completed(ctx context.Context, userID, category string, limit, offset int) (*models.FeedPage, error) {
	c, ok := models.ParseCategory(category)
	if !ok {
		return nil, validationError(fmt.Sprintf("Unknown category: %s", category))
	}

	p, err := s.progress.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed := completedIDs(p)

	cards := make([]models.APICard, 0)
	for _, card := range s.catalog.ByCategory(c) {
		if _, ok := completed[string(card.ID)]; ok {
			card.IsBookmarked = slices.Contains(p.SavedCardIDs, string(card.ID))
			cards = append(cards, card)
		}
	}
	page := models.Paginate(cards, limit, offset)
	return &page, nil
}

// Bookmarks returns a page of the user's saved cards in the order they were saved.
// Saved ids that are no longer in the catalog are skipped.
func (s *cardsService) Bookmarks(ctx context.Context, userID string, limit, offset int) (*models.FeedPage, error) {
	p, err := s.progress.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	cards := make([]models.APICard, 0, len(p.SavedCardIDs))
	for _, id := range p.SavedCardIDs {
		card, ok := s.catalog.Get(id)
		if !ok {
			continue
		}
		card.IsBookmarked = true
		cards = append(cards, card)
	}
	page := models.Paginate(cards, limit, offset)
	return &page, nil
}

// AddBookmark saves a card for the user
func (s *cardsService) AddBookmark(ctx context.Context, userID, cardID string) (*models.BookmarksResponse, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, validationError("cardId is required")
	}
	if !s.catalog.Has(cardID) {
		return nil, ErrCardNotFound
	}

	message := MessageCardSaved
	p, err := s.progressRepo.Update(ctx, userID, func(p *models.ProgressSnapshot) error {
		if slices.Contains(p.SavedCardIDs, cardID) {
			message = MessageAlreadySaved
			return nil
		}
		p.SavedCardIDs = append(p.SavedCardIDs, cardID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &models.BookmarksResponse{Message: message, SavedCardIDs: p.SavedCardIDs}, nil
}

// RemoveBookmark removes a card from the user's saved cards. Removing a card that is not saved succeeds.
func (s *cardsService) RemoveBookmark(ctx context.Context, userID, cardID string) (*models.BookmarksResponse, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, validationError("cardId is required")
	}

	p, err := s.progressRepo.Update(ctx, userID, func(p *models.ProgressSnapshot) error {
		p.SavedCardIDs = slices.DeleteFunc(p.SavedCardIDs, func(id string) bool { return id == cardID })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &models.BookmarksResponse{Message: MessageCardRemoved, SavedCardIDs: p.SavedCardIDs}, nil
}

// flagBookmarks sets IsBookmarked on the cards the user saved. Guests get the cards unchanged.
func (s *cardsService) flagBookmarks(ctx context.Context, userID string, cards []models.APICard) ([]models.APICard, error) {
	if userID == "" {
		return cards, nil
	}

	p, err := s.progress.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i].IsBookmarked = slices.Contains(p.SavedCardIDs, string(cards[i].ID))
	}
	return cards, nil
}
