package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/barkatlearn/learn/internal/catalog"
	"github.com/barkatlearn/learn/internal/models"
	"github.com/barkatlearn/learn/internal/repositories"
	"go.uber.org/zap"
)

// progressService implements progress tracking and statistics
type progressService struct {
	progressRepo ProgressRepository
	catalog      *catalog.Catalog
	logger       *zap.Logger
	now          func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(progressRepo ProgressRepository, cards *catalog.Catalog, logger *zap.Logger) *progressService {
	return &progressService{
		progressRepo: progressRepo,
		catalog:      cards,
		logger:       logger,
		now:          time.Now,
	}
}

// today is the server's calendar day in UTC
func (s *progressService) today() models.Date {
	return models.DateOf(s.now().UTC())
}

// learningDay returns the client's calendar day when it is within one day of the UTC day, the UTC day otherwise.
// Every time zone's local day is inside that window.
func (s *progressService) learningDay(clientDay *models.Date) models.Date {
	today := s.today()
	if clientDay == nil || clientDay.IsZero() {
		return today
	}
	if clientDay.Before(today.AddDays(-1)) || today.AddDays(1).Before(*clientDay) {
		return today
	}
	return *clientDay
}

// GetProgress returns the user's progress, or an empty document when nothing was stored yet
func (s *progressService) GetProgress(ctx context.Context, userID string) (*models.ProgressSnapshot, error) {
	p, err := s.progressRepo.Get(ctx, userID)
	if errors.Is(err, repositories.ErrProgressNotFound) {
		return models.NewProgress(0), nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProgress replaces the fields present in patch. Id lists are deduplicated.
func (s *progressService) UpdateProgress(ctx context.Context, userID string, patch *models.ProgressPatch) (*models.ProgressSnapshot, error) {
	return s.progressRepo.Update(ctx, userID, func(p *models.ProgressSnapshot) error {
		if patch.LearnedCardIDs != nil {
			p.LearnedCardIDs = dedupIDs(patch.LearnedCardIDs)
		}
		if patch.SavedCardIDs != nil {
			p.SavedCardIDs = dedupIDs(patch.SavedCardIDs)
		}
		if patch.FinishedDetailCardIDs != nil {
			p.FinishedDetailCardIDs = dedupIDs(patch.FinishedDetailCardIDs)
		}
		if patch.DetailOpenedCardIDs != nil {
			p.DetailOpenedCardIDs = dedupIDs(patch.DetailOpenedCardIDs)
		}
		if patch.Stats != nil {
			stats := *patch.Stats
			p.Stats = &stats
		}
		if patch.LastLearningDate != nil {
			p.LastLearningDate = *patch.LastLearningDate
		}
		return nil
	})
}

// ReplaceProgress stores doc as the user's whole progress. Fields absent from doc are reset.
func (s *progressService) ReplaceProgress(ctx context.Context, userID string, doc *models.ProgressPatch) (*models.ProgressSnapshot, error) {
	full := models.ProgressPatch{
		LearnedCardIDs:        nonNilIDs(doc.LearnedCardIDs),
		SavedCardIDs:          nonNilIDs(doc.SavedCardIDs),
		FinishedDetailCardIDs: nonNilIDs(doc.FinishedDetailCardIDs),
		DetailOpenedCardIDs:   nonNilIDs(doc.DetailOpenedCardIDs),
		Stats:                 doc.Stats,
		LastLearningDate:      doc.LastLearningDate,
	}
	if full.Stats == nil {
		full.Stats = &models.UserStats{}
	}
	if full.LastLearningDate == nil {
		full.LastLearningDate = &models.Date{}
	}
	return s.UpdateProgress(ctx, userID, &full)
}

// MarkLearned records a learned card, counting it and advancing the streak the first time.
//
// "clientDay" is the learner's local calendar day. When it is nil or implausible the UTC day is used.
func (s *progressService) MarkLearned(ctx context.Context, userID, cardID string, clientDay *models.Date) (*models.ProgressSnapshot, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return nil, validationError("cardId is required")
	}
	if !s.catalog.Has(cardID) {
		return nil, ErrCardNotFound
	}

	today := s.learningDay(clientDay)
	return s.progressRepo.Update(ctx, userID, func(p *models.ProgressSnapshot) error {
		if slices.Contains(p.LearnedCardIDs, cardID) {
			return nil
		}
		p.LearnedCardIDs = append(p.LearnedCardIDs, cardID)
		p.Stats.CardsLearned++
		p.Stats.StreakDays = advanceStreak(*p.Stats, today)
		p.Stats.LastLearningDate = today
		p.LastLearningDate = today
		return nil
	})
}

// CategoryStats returns per-category totals and completions plus an overview for the user.
//
// A card is completed when it is learned or its detail view was finished.
func (s *progressService) CategoryStats(ctx context.Context, userID string) (*models.CategoryStatsResponse, error) {
	p, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	completed := completedIDs(p)
	resp := &models.CategoryStatsResponse{
		Categories: make(map[string]*models.RawCategoryStat, len(models.Categories)),
	}
	for _, category := range models.Categories {
		cards := s.catalog.ByCategory(category)
		done := 0
		for _, card := range cards {
			if _, ok := completed[string(card.ID)]; ok {
				done++
			}
		}
		resp.Categories[category.Slug()] = &models.RawCategoryStat{
			Total:     models.Int(len(cards)),
			Completed: models.Int(done),
		}
	}

	resp.Overview = &models.RawStatsOverview{
		Streak:   models.Int(currentStreak(*p.Stats, s.today())),
		Consumed: models.Int(len(completed)),
		Topic:    models.Int(p.Stats.TopicsFollowed),
	}
	return resp, nil
}

// advanceStreak returns the streak after a learning event today
func advanceStreak(stats models.UserStats, today models.Date) int {
	switch {
	case stats.LastLearningDate.Equal(today):
		return max(stats.StreakDays, 1)
	case stats.LastLearningDate.Equal(today.AddDays(-1)):
		return stats.StreakDays + 1
	default:
		return 1
	}
}

// currentStreak is the streak as of today: it is broken once a whole day passed without learning
func currentStreak(stats models.UserStats, today models.Date) int {
	if stats.LastLearningDate.Equal(today) || stats.LastLearningDate.Equal(today.AddDays(-1)) {
		return stats.StreakDays
	}
	return 0
}

func completedIDs(p *models.ProgressSnapshot) map[string]struct{} {
	ids := make(map[string]struct{}, len(p.LearnedCardIDs)+len(p.FinishedDetailCardIDs))
	for _, id := range p.LearnedCardIDs {
		ids[id] = struct{}{}
	}
	for _, id := range p.FinishedDetailCardIDs {
		ids[id] = struct{}{}
	}
	return ids
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// dedupIDs drops empty and repeated ids, keeping the first occurrence
func dedupIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
