package progress

import (
	"context"
	"maps"
	"slices"

	"github.com/barkatlearn/learn/internal/cards"
	"github.com/barkatlearn/learn/internal/models"
	"go.uber.org/zap"
)

// LoadContent reconciles local state with the backend and reloads the card feed.
//
// When signed in, the server progress overwrites local learned, finished and opened cards, stats and the daily
// date, while bookmarks are unioned. A failed feed keeps the cards already loaded and sets State.Error; the feed
// error is returned. Overlapping calls for the same session share one run, and results that arrive after the
// session changed are dropped.
func (m *Manager) LoadContent(ctx context.Context) error {
	_, err, _ := m.loads.Do("content:"+m.Token(), func() (any, error) {
		return nil, m.loadContent(ctx)
	})
	return err
}

func (m *Manager) loadContent(ctx context.Context) error {
	m.mu.Lock()
	m.state.Loading = true
	m.state.Error = ""
	token := m.state.AuthToken
	m.mu.Unlock()
	m.emit(Event{Type: EventStateChanged})

	if token != "" {
		snapshot, err := m.remote.FetchProgress(ctx, token)
		switch {
		case err != nil:
			m.logger.Warn("failed to fetch progress", zap.Error(err))
			m.endSessionIfUnauthorized(token, err)
		case snapshot != nil:
			m.applyProgress(token, snapshot)
		}
	}

	page, err := m.remote.FetchFeed(ctx, token, m.opts.FeedPageSize, 0)

	m.mu.Lock()
	if m.state.AuthToken != token {
		m.state.Loading = false
		m.mu.Unlock()
		m.emit(Event{Type: EventStateChanged})
		m.logger.Debug("session changed while loading content, feed dropped")
		return err
	}
	m.state.Loading = false
	if err != nil {
		m.state.Error = err.Error()
	} else {
		var items []models.APICard
		if page != nil {
			items = page.Items
		}
		m.state.AllCards = cards.NormalizeAll(items, m.logger)
		m.state.BookmarkedCardIDs = unionIDs(m.state.BookmarkedCardIDs, cards.BookmarkedIDs(items))
		m.state.Error = ""
		m.persistLocked()
	}
	loaded := len(m.state.AllCards)
	signedIn := m.state.AuthToken != ""
	m.mu.Unlock()
	m.emit(Event{Type: EventStateChanged})

	if err != nil {
		m.logger.Warn("failed to fetch feed", zap.Error(err))
		m.endSessionIfUnauthorized(token, err)
	} else {
		m.logger.Debug("content loaded", zap.Int("cards", loaded))
	}

	if signedIn {
		if statsErr := m.LoadCategoryStats(ctx); statsErr != nil {
			m.logger.Warn("failed to load category stats", zap.Error(statsErr))
		}
	}
	return err
}

// applyProgress merges a server snapshot fetched with token, unless the session changed meanwhile
func (m *Manager) applyProgress(token string, snapshot *models.ProgressSnapshot) {
	m.mu.Lock()
	if m.state.AuthToken != token {
		m.mu.Unlock()
		return
	}
	if snapshot.LearnedCardIDs != nil {
		m.state.LearnedCardIDs = dedupIDs(snapshot.LearnedCardIDs)
	}
	if snapshot.FinishedDetailCardIDs != nil {
		m.state.FinishedDetailCardIDs = dedupIDs(snapshot.FinishedDetailCardIDs)
	}
	if snapshot.DetailOpenedCardIDs != nil {
		m.state.DetailOpenedCardIDs = dedupIDs(snapshot.DetailOpenedCardIDs)
	}
	// Server days behind the local ones were stamped on another clock and would reopen a day already counted
	if snapshot.Stats != nil {
		stats := *snapshot.Stats
		if stats.LastLearningDate.Before(m.state.Stats.LastLearningDate) {
			stats.StreakDays = m.state.Stats.StreakDays
			stats.LastLearningDate = m.state.Stats.LastLearningDate
		}
		m.state.Stats = stats
	}
	if !snapshot.LastLearningDate.IsZero() && !snapshot.LastLearningDate.Before(m.state.LastLearningDate) {
		m.state.LastLearningDate = snapshot.LastLearningDate
	}
	m.state.BookmarkedCardIDs = unionIDs(m.state.BookmarkedCardIDs, snapshot.SavedCardIDs)
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
}

// LoadCategoryStats refreshes the per-category totals and the overview.
//
// Signed out, both are cleared. When the request fails or has no categories the previous values are kept.
func (m *Manager) LoadCategoryStats(ctx context.Context) error {
	_, err, _ := m.loads.Do("category-stats:"+m.Token(), func() (any, error) {
		return nil, m.loadCategoryStats(ctx)
	})
	return err
}

func (m *Manager) loadCategoryStats(ctx context.Context) error {
	token := m.Token()
	if token == "" {
		m.mu.Lock()
		m.state.CategoryStats = nil
		m.state.StatsOverview = nil
		m.mu.Unlock()
		m.emit(Event{Type: EventStateChanged})
		return nil
	}

	resp, err := m.remote.FetchCategoryStats(ctx, token)
	if err != nil {
		m.endSessionIfUnauthorized(token, err)
		return err
	}
	if resp == nil || resp.Categories == nil {
		return nil
	}

	categoryStats := normalizeCategoryStats(resp.Categories)
	overview := normalizeOverview(resp.Overview)

	m.mu.Lock()
	if m.state.AuthToken != token {
		m.mu.Unlock()
		return nil
	}
	m.state.CategoryStats = categoryStats
	m.state.StatsOverview = overview
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
	return nil
}

// normalizeCategoryStats maps server keys onto the fixed categories.
// Categories the server did not report, or reported under an unknown key, count as zero.
func normalizeCategoryStats(raw map[string]*models.RawCategoryStat) map[models.Category]models.CategoryStat {
	out := make(map[models.Category]models.CategoryStat, len(models.Categories))
	for _, c := range models.Categories {
		out[c] = models.CategoryStat{}
	}
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		value := raw[key]
		if value == nil {
			continue
		}
		category, ok := models.ParseCategory(key)
		if !ok {
			continue
		}
		out[category] = models.CategoryStat{
			Total:     value.Total.Value,
			Completed: value.Completed.Value,
		}
	}
	return out
}

// normalizeOverview keeps the overview only when all three fields are numbers
func normalizeOverview(raw *models.RawStatsOverview) *models.StatsOverview {
	if raw == nil || !raw.Streak.Valid || !raw.Consumed.Valid || !raw.Topic.Valid {
		return nil
	}
	return &models.StatsOverview{
		Streak:   raw.Streak.Value,
		Consumed: raw.Consumed.Value,
		Topic:    raw.Topic.Value,
	}
}

// PushProgress uploads the full local progress with PATCH /api/progress. Guests have nothing to push.
func (m *Manager) PushProgress(ctx context.Context) error {
	m.mu.Lock()
	token := m.state.AuthToken
	stats := m.state.Stats
	patch := &models.ProgressPatch{
		LearnedCardIDs:        slices.Clone(m.state.LearnedCardIDs),
		SavedCardIDs:          slices.Clone(m.state.BookmarkedCardIDs),
		FinishedDetailCardIDs: slices.Clone(m.state.FinishedDetailCardIDs),
		DetailOpenedCardIDs:   slices.Clone(m.state.DetailOpenedCardIDs),
		Stats:                 &stats,
	}
	if !m.state.LastLearningDate.IsZero() {
		date := m.state.LastLearningDate
		patch.LastLearningDate = &date
	}
	m.mu.Unlock()

	if token == "" {
		return nil
	}
	if err := m.remote.PatchProgress(ctx, token, patch); err != nil {
		m.endSessionIfUnauthorized(token, err)
		return err
	}
	return nil
}
