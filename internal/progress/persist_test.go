package progress

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/barkatlearn/learn/internal/models"
	"github.com/barkatlearn/learn/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPersist_RoundTripAcrossRestart(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	opts := Options{Now: clock.Now}

	first := NewManager(&mockRemote{}, store, zap.NewNop(), opts)
	first.SetAuth("token-1", "user@example.com")
	first.SetUserAge(25)
	first.SetPreferredLanguage(models.LanguageHindi)
	first.SetPreferences([]models.Category{models.CategoryDua})
	first.CompleteOnboarding()
	first.MarkCardLearned("a")
	first.MarkDetailFinished("b")
	first.MarkDetailOpened("b")
	first.Bookmark("c")
	first.Close()

	second := NewManager(&mockRemote{}, store, zap.NewNop(), opts)
	t.Cleanup(second.Close)
	require.NoError(t, second.Hydrate(context.Background()))

	want := first.Snapshot()
	got := second.Snapshot()
	assert.Equal(t, want.Session, got.Session)
	assert.Equal(t, want.Preferences, got.Preferences)
	assert.True(t, got.HasCompletedOnboarding)
	assert.Equal(t, []string{"a"}, got.LearnedCardIDs)
	assert.Equal(t, []string{"b"}, got.FinishedDetailCardIDs)
	assert.Equal(t, []string{"b"}, got.DetailOpenedCardIDs)
	assert.Equal(t, []string{"c"}, got.BookmarkedCardIDs)
	assert.Equal(t, want.CardsLearnedToday, got.CardsLearnedToday)
	assert.Equal(t, clock.Today(), got.LastLearningDate)
	assert.Equal(t, want.Stats, got.Stats)
}

func TestPersist_TransientFieldsAreNotWritten(t *testing.T) {
	m, _, store := setupTestManager(t, &mockRemote{}, Options{})
	m.mu.Lock()
	m.state.AllCards = []models.Card{{ID: "x"}}
	m.state.Error = "failed"
	m.state.CategoryStats = map[models.Category]models.CategoryStat{models.CategoryDua: {Total: 2}}
	m.state.StatsOverview = &models.StatsOverview{Streak: 1}
	m.persistLocked()
	m.mu.Unlock()

	data, err := store.Load(context.Background(), StorageKey)
	require.NoError(t, err)

	var env struct {
		State   map[string]json.RawMessage `json:"state"`
		Version int                        `json:"version"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, 1, env.Version)
	for _, field := range []string{"allCards", "error", "loading", "categoryStats", "statsOverview", "savedCardIds"} {
		assert.NotContains(t, env.State, field)
	}
	assert.Equal(t, "null", string(env.State["authToken"]))
	assert.Contains(t, env.State, "bookmarkedCardIds")
}

func TestDecodeState(t *testing.T) {
	tests := []struct {
		name               string
		blob               string
		expectedError      bool
		expectedBookmarks  []string
		expectedLimit      int
		expectedDate       models.Date
		expectedPreference []models.Category
	}{
		{
			name:              "legacy saved ids are migrated",
			blob:              `{"state":{"savedCardIds":["a","b","a"],"learnedCardIds":["x"]},"version":0}`,
			expectedBookmarks: []string{"a", "b"},
			expectedLimit:     DefaultDailyLimit,
		},
		{
			name:              "bookmarks win over legacy field",
			blob:              `{"state":{"savedCardIds":["old"],"bookmarkedCardIds":["new"]},"version":0}`,
			expectedBookmarks: []string{"new"},
			expectedLimit:     DefaultDailyLimit,
		},
		{
			name:              "current version ignores legacy field",
			blob:              `{"state":{"savedCardIds":["old"]},"version":1}`,
			expectedBookmarks: []string{},
			expectedLimit:     DefaultDailyLimit,
		},
		{
			name:              "legacy date string and custom limit",
			blob:              `{"state":{"dailyLimit":8,"lastLearningDate":"Tue Mar 10 2026","preferences":["Dua","hadith","nope"]},"version":1}`,
			expectedBookmarks: []string{},
			expectedLimit:     8,
			expectedDate:      models.Date{Year: 2026, Month: time.March, Day: 10},
			expectedPreference: []models.Category{
				models.CategoryDua,
				models.CategoryHadis,
			},
		},
		{
			name:          "not json",
			blob:          `{broken`,
			expectedError: true,
		},
		{
			name:          "no state",
			blob:          `{"version":1}`,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := decodeState([]byte(tt.blob), DefaultDailyLimit)

			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedBookmarks, state.BookmarkedCardIDs)
			assert.Equal(t, tt.expectedLimit, state.DailyLimit)
			assert.Equal(t, tt.expectedDate, state.LastLearningDate)
			if tt.expectedPreference != nil {
				assert.Equal(t, tt.expectedPreference, state.Preferences)
			}
		})
	}
}

func TestHydrate(t *testing.T) {
	t.Run("missing blob keeps defaults", func(t *testing.T) {
		m, _, _ := setupTestManager(t, &mockRemote{}, Options{})

		require.NoError(t, m.Hydrate(context.Background()))
		assert.False(t, m.Snapshot().Authenticated())
	})

	t.Run("corrupt blob is reported", func(t *testing.T) {
		m, _, store := setupTestManager(t, &mockRemote{}, Options{})
		require.NoError(t, store.Save(context.Background(), StorageKey, []byte("not json")))

		err := m.Hydrate(context.Background())

		assert.Error(t, err)
		assert.Empty(t, m.Snapshot().LearnedCardIDs)
	})

	t.Run("loaded cards survive", func(t *testing.T) {
		m, _, store := setupTestManager(t, &mockRemote{}, Options{})
		m.state.AllCards = []models.Card{{ID: "x"}}
		blob := `{"state":{"authToken":"t","learnedCardIds":["a"]},"version":1}`
		require.NoError(t, store.Save(context.Background(), StorageKey, []byte(blob)))

		require.NoError(t, m.Hydrate(context.Background()))

		state := m.Snapshot()
		assert.Equal(t, "t", state.AuthToken)
		assert.Equal(t, []string{"a"}, state.LearnedCardIDs)
		assert.Len(t, state.AllCards, 1)
	})
}
