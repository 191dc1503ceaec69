package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/barkatlearn/learn/internal/catalog"
	"github.com/barkatlearn/learn/internal/client"
	"github.com/barkatlearn/learn/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func feedOf(cards ...models.APICard) *models.FeedPage {
	page := models.Paginate(cards, 0, 0)
	return &page
}

func TestLoadContent_BookmarkUnion(t *testing.T) {
	remote := &mockRemote{
		progress: &models.ProgressSnapshot{SavedCardIDs: []string{"b"}},
		feed:     feedOf(),
	}
	m, _, _ := setupTestManager(t, remote, Options{})
	signIn(m, "token-1")
	m.state.BookmarkedCardIDs = []string{"a"}

	err := m.LoadContent(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Snapshot().BookmarkedCardIDs)
}

func TestLoadContent_ServerProgressWins(t *testing.T) {
	serverDay := models.Date{Year: 2026, Month: time.March, Day: 9}
	remote := &mockRemote{
		progress: &models.ProgressSnapshot{
			LearnedCardIDs:        []string{"s1", "s2", "s1"},
			FinishedDetailCardIDs: []string{},
			Stats:                 &models.UserStats{CardsLearned: 12, StreakDays: 6, LastLearningDate: serverDay},
			LastLearningDate:      serverDay,
		},
		feed: feedOf(),
	}
	m, _, _ := setupTestManager(t, remote, Options{})
	signIn(m, "token-1")
	m.state.LearnedCardIDs = []string{"local"}
	m.state.FinishedDetailCardIDs = []string{"local-finished"}
	m.state.DetailOpenedCardIDs = []string{"local-opened"}

	require.NoError(t, m.LoadContent(context.Background()))

	state := m.Snapshot()
	assert.Equal(t, []string{"s1", "s2"}, state.LearnedCardIDs)
	assert.Empty(t, state.FinishedDetailCardIDs)
	assert.Equal(t, []string{"local-opened"}, state.DetailOpenedCardIDs)
	assert.Equal(t, 12, state.Stats.CardsLearned)
	assert.Equal(t, 6, state.Stats.StreakDays)
	assert.Equal(t, serverDay, state.LastLearningDate)
}

func TestLoadContent_ProgressFailureKeepsLocal(t *testing.T) {
	remote := &mockRemote{progressErr: errors.New("timeout"), feed: feedOf()}
	m, _, _ := setupTestManager(t, remote, Options{})
	signIn(m, "token-1")
	m.state.LearnedCardIDs = []string{"local"}

	require.NoError(t, m.LoadContent(context.Background()))

	assert.Equal(t, []string{"local"}, m.Snapshot().LearnedCardIDs)
}

func TestLoadContent_NormalizesFeed(t *testing.T) {
	remote := &mockRemote{feed: feedOf(
		models.APICard{ID: "h1", Category: "hadith", CardType: "weird", Title: "One", Preview: "short", Content: "long"},
		models.APICard{ID: "d1", Category: "Dua", CardType: "explain_card", Title: "Two", IsBookmarked: true, CardColor: "red"},
	)}
	m, _, _ := setupTestManager(t, remote, Options{})
	signIn(m, "token-1")

	require.NoError(t, m.LoadContent(context.Background()))

	state := m.Snapshot()
	require.Len(t, state.AllCards, 2)
	assert.Equal(t, models.CategoryHadis, state.AllCards[0].Category)
	assert.Equal(t, models.CardTypeFlash, state.AllCards[0].CardType)
	assert.Equal(t, "short", state.AllCards[0].ShortText)
	assert.Equal(t, models.CategoryDua, state.AllCards[1].Category)
	assert.Equal(t, models.CardTypeExplain, state.AllCards[1].CardType)
	assert.Empty(t, state.AllCards[1].CardColor)
	assert.Equal(t, []string{"d1"}, state.BookmarkedCardIDs)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
}

func TestLoadContent_FeedErrorKeepsCards(t *testing.T) {
	remote := &mockRemote{feedErr: errors.New("502 bad gateway")}
	m, _, _ := setupTestManager(t, remote, Options{})
	signIn(m, "token-1")
	m.state.AllCards = []models.Card{{ID: "kept"}}

	err := m.LoadContent(context.Background())

	require.Error(t, err)
	state := m.Snapshot()
	assert.Equal(t, "502 bad gateway", state.Error)
	assert.False(t, state.Loading)
	require.Len(t, state.AllCards, 1)
	assert.Equal(t, "kept", state.AllCards[0].ID)
}

func TestLoadContent_EmptyFeedClearsCards(t *testing.T) {
	remote := &mockRemote{feed: feedOf()}
	m, _, _ := setupTestManager(t, remote, Options{})
	m.state.AllCards = []models.Card{{ID: "old"}}

	require.NoError(t, m.LoadContent(context.Background()))

	assert.Empty(t, m.Snapshot().AllCards)
}

func TestLoadContent_GuestSkipsAuthenticatedCalls(t *testing.T) {
	remote := &mockRemote{
		progress: &models.ProgressSnapshot{LearnedCardIDs: []string{"server"}},
		feed:     feedOf(models.APICard{ID: "a", Category: "Dua", CardType: "flash_card"}),
	}
	m, _, _ := setupTestManager(t, remote, Options{})

	require.NoError(t, m.LoadContent(context.Background()))

	state := m.Snapshot()
	assert.Empty(t, state.LearnedCardIDs)
	assert.Len(t, state.AllCards, 1)
	assert.Equal(t, 0, remote.statsCalls)
}

func TestLoadContent_Offline(t *testing.T) {
	for _, token := range []string{"", "token-1"} {
		t.Run("token="+token, func(t *testing.T) {
			offline := client.New("", 0, catalog.Default(), zap.NewNop())
			m, _, _ := setupTestManager(t, offline, Options{})
			if token != "" {
				signIn(m, token)
			}

			err := m.LoadContent(context.Background())

			require.NoError(t, err)
			state := m.Snapshot()
			assert.Len(t, state.AllCards, catalog.Default().Len())
			assert.Empty(t, state.Error)
			assert.Nil(t, state.CategoryStats)
		})
	}
}

func TestLoadContent_CoalescesOverlappingCalls(t *testing.T) {
	release := make(chan struct{})
	remote := &mockRemote{feed: feedOf(), feedRelease: release}
	m, _, _ := setupTestManager(t, remote, Options{})

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.LoadContent(context.Background()))
		}()
	}

	assert.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return remote.feedCalls == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, remote.feedCalls)
}

func TestLoadCategoryStats(t *testing.T) {
	tests := []struct {
		name             string
		stats            *models.CategoryStatsResponse
		statsErr         error
		expectedError    bool
		expectedStats    map[models.Category]models.CategoryStat
		expectedOverview *models.StatsOverview
	}{
		{
			name: "normalizes keys and defaults missing categories",
			stats: &models.CategoryStatsResponse{
				Overview: &models.RawStatsOverview{Streak: models.Int(3), Consumed: models.Int(10), Topic: models.Int(2)},
				Categories: map[string]*models.RawCategoryStat{
					"hadith":  {Total: models.Int(10), Completed: models.Int(4)},
					"STORIES": {Total: models.Int(6), Completed: models.Int(1)},
					"poetry":  {Total: models.Int(99), Completed: models.Int(99)},
					"dua":     nil,
				},
			},
			expectedStats: map[models.Category]models.CategoryStat{
				models.CategoryHadis:          {Total: 10, Completed: 4},
				models.CategoryDua:            {},
				models.CategoryProphetStories: {Total: 6, Completed: 1},
				models.CategoryQuranSurah:     {},
				models.CategoryIslamicFacts:   {},
			},
			expectedOverview: &models.StatsOverview{Streak: 3, Consumed: 10, Topic: 2},
		},
		{
			name: "partial overview is dropped",
			stats: &models.CategoryStatsResponse{
				Overview:   &models.RawStatsOverview{Streak: models.Int(3), Consumed: models.Int(10)},
				Categories: map[string]*models.RawCategoryStat{},
			},
			expectedStats: map[models.Category]models.CategoryStat{
				models.CategoryHadis:          {},
				models.CategoryDua:            {},
				models.CategoryProphetStories: {},
				models.CategoryQuranSurah:     {},
				models.CategoryIslamicFacts:   {},
			},
		},
		{
			name:          "error keeps previous values",
			statsErr:      errors.New("boom"),
			expectedError: true,
			expectedStats: map[models.Category]models.CategoryStat{models.CategoryDua: {Total: 1}},
		},
		{
			name:          "missing categories keeps previous values",
			stats:         &models.CategoryStatsResponse{},
			expectedStats: map[models.Category]models.CategoryStat{models.CategoryDua: {Total: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &mockRemote{stats: tt.stats, statsErr: tt.statsErr}
			m, _, _ := setupTestManager(t, remote, Options{})
			signIn(m, "token-1")
			m.state.CategoryStats = map[models.Category]models.CategoryStat{models.CategoryDua: {Total: 1}}

			err := m.LoadCategoryStats(context.Background())

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			state := m.Snapshot()
			assert.Equal(t, tt.expectedStats, state.CategoryStats)
			assert.Equal(t, tt.expectedOverview, state.StatsOverview)
		})
	}
}

func TestLoadCategoryStats_GuestClears(t *testing.T) {
	remote := &mockRemote{}
	m, _, _ := setupTestManager(t, remote, Options{})
	m.state.CategoryStats = map[models.Category]models.CategoryStat{models.CategoryDua: {Total: 1}}
	m.state.StatsOverview = &models.StatsOverview{Streak: 1}

	require.NoError(t, m.LoadCategoryStats(context.Background()))

	state := m.Snapshot()
	assert.Nil(t, state.CategoryStats)
	assert.Nil(t, state.StatsOverview)
	assert.Equal(t, 0, remote.statsCalls)
}

func TestPushProgress(t *testing.T) {
	remote := &mockRemote{}
	m, clock, _ := setupTestManager(t, remote, Options{})

	require.NoError(t, m.PushProgress(context.Background()))
	assert.Empty(t, remote.patches)

	signIn(m, "token-1")
	m.MarkCardLearned("a")
	m.Bookmark("b")
	m.Wait()

	require.NoError(t, m.PushProgress(context.Background()))
	require.Len(t, remote.patches, 1)
	patch := remote.patches[0]
	assert.Equal(t, []string{"a"}, patch.LearnedCardIDs)
	assert.Equal(t, []string{"b"}, patch.SavedCardIDs)
	require.NotNil(t, patch.LastLearningDate)
	assert.Equal(t, clock.Today(), *patch.LastLearningDate)
	assert.Equal(t, 1, patch.Stats.CardsLearned)
}

func TestLoadContent_DropsFeedAfterLogout(t *testing.T) {
	release := make(chan struct{})
	remote := &mockRemote{
		feed:        feedOf(models.APICard{ID: "secret", Category: "Dua", CardType: "flash_card", Title: "Mine", IsBookmarked: true}),
		feedRelease: release,
	}
	m, _, store := setupTestManager(t, remote, Options{})
	signIn(m, "token-1")

	done := make(chan error, 1)
	go func() {
		done <- m.LoadContent(context.Background())
	}()
	assert.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return remote.feedCalls == 1
	}, time.Second, 5*time.Millisecond)

	m.Logout()
	close(release)
	require.NoError(t, <-done)

	state := m.Snapshot()
	assert.Empty(t, state.AuthToken)
	assert.Empty(t, state.BookmarkedCardIDs)
	assert.Empty(t, state.AllCards)
	assert.False(t, state.Loading)

	m.Wait()
	restored := NewManager(remote, store, zap.NewNop(), Options{})
	t.Cleanup(restored.Close)
	require.NoError(t, restored.Hydrate(context.Background()))
	assert.Empty(t, restored.Snapshot().BookmarkedCardIDs)
}

func TestLoadContent_NewSessionDoesNotJoinGuestRun(t *testing.T) {
	release := make(chan struct{})
	remote := &mockRemote{
		feed:        feedOf(),
		feedRelease: release,
		progress:    &models.ProgressSnapshot{LearnedCardIDs: []string{"server"}},
	}
	m, _, _ := setupTestManager(t, remote, Options{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, m.LoadContent(context.Background()))
	}()
	assert.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return remote.feedCalls == 1
	}, time.Second, 5*time.Millisecond)

	signIn(m, "token-1")
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, m.LoadContent(context.Background()))
	}()
	assert.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return remote.feedCalls == 2
	}, time.Second, 5*time.Millisecond)

	close(release)
	wg.Wait()

	assert.Equal(t, []string{"server"}, m.Snapshot().LearnedCardIDs)
}

func TestLoadContent_ServerDayBehindLocalDay(t *testing.T) {
	// 02:00 in UTC+5 is still the previous day in UTC
	clock := &fakeClock{now: time.Date(2026, time.March, 10, 2, 0, 0, 0, time.FixedZone("UTC+5", 5*60*60))}
	localDay := models.Date{Year: 2026, Month: time.March, Day: 10}
	utcDay := models.DateOf(clock.Now().UTC())
	require.Equal(t, localDay.AddDays(-1), utcDay)

	remote := &mockRemote{feed: feedOf()}
	m, _, _ := setupTestManager(t, remote, Options{Now: clock.Now})
	signIn(m, "token-1")

	require.True(t, m.MarkCardLearned("a"))
	m.Wait()

	remote.mu.Lock()
	remote.progress = &models.ProgressSnapshot{
		LearnedCardIDs:   []string{"a"},
		Stats:            &models.UserStats{CardsLearned: 1, StreakDays: 1, LastLearningDate: utcDay},
		LastLearningDate: utcDay,
	}
	remote.mu.Unlock()
	require.NoError(t, m.LoadContent(context.Background()))

	require.True(t, m.MarkCardLearned("b"))
	m.Wait()

	state := m.Snapshot()
	assert.Equal(t, 2, state.CardsLearnedToday)
	assert.Equal(t, 1, state.Stats.StreakDays)
	assert.Equal(t, 2, state.Stats.CardsLearned)
	assert.Equal(t, localDay, state.LastLearningDate)
	assert.Equal(t, localDay, state.Stats.LastLearningDate)
	assert.Equal(t, []models.Date{localDay, localDay}, remote.learnedDays)
}
