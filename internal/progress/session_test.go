package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/barkatlearn/learn/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookmark_Idempotent(t *testing.T) {
	remote := &mockRemote{}
	m, _, _ := setupTestManager(t, remote, Options{})
	signIn(m, "token-1")

	m.Bookmark("a")
	m.Bookmark("a")
	m.Wait()
	assert.Equal(t, []string{"a"}, m.Snapshot().BookmarkedCardIDs)
	assert.Equal(t, []string{"a"}, remote.added)

	m.Unbookmark("a")
	m.Unbookmark("a")
	m.Wait()
	assert.Empty(t, m.Snapshot().BookmarkedCardIDs)
	assert.Equal(t, []string{"a"}, remote.removed)
}

func TestBookmark_Optimistic(t *testing.T) {
	remote := &mockRemote{bookmarkErr: errors.New("timeout")}
	m, _, _ := setupTestManager(t, remote, Options{})
	signIn(m, "token-1")

	m.Bookmark("a")
	m.Bookmark("b")
	m.Unbookmark("a")
	m.Wait()

	assert.Equal(t, []string{"b"}, m.Snapshot().BookmarkedCardIDs)
	assert.ElementsMatch(t, []string{"a", "b"}, remote.added)
	assert.Equal(t, []string{"a"}, remote.removed)
}

func TestToggleBookmark(t *testing.T) {
	m, _, _ := setupTestManager(t, &mockRemote{}, Options{})

	assert.True(t, m.ToggleBookmark("a"))
	assert.True(t, m.IsBookmarked("a"))
	assert.False(t, m.ToggleBookmark("a"))
	assert.False(t, m.IsBookmarked("a"))
	assert.False(t, m.ToggleBookmark(""))
	assert.Empty(t, m.Snapshot().BookmarkedCardIDs)
}

func TestSetPreferences(t *testing.T) {
	remote := &mockRemote{}
	m, _, _ := setupTestManager(t, remote, Options{})
	signIn(m, "token-1")
	m.SetUserAge(30)
	m.SetPreferredLanguage(models.LanguageHindi)

	m.SetPreferences([]models.Category{
		models.CategoryHadis,
		models.CategoryProphetStories,
		models.CategoryHadis,
		models.Category("Poetry"),
	})
	m.Wait()

	state := m.Snapshot()
	assert.Equal(t, []models.Category{models.CategoryHadis, models.CategoryProphetStories}, state.Preferences)
	assert.Equal(t, 2, state.Stats.TopicsFollowed)

	require.Len(t, remote.profileUpdate, 1)
	req := remote.profileUpdate[0]
	assert.Equal(t, []string{"hadith", "stories"}, req.Preferences)
	require.NotNil(t, req.Age)
	assert.Equal(t, 30, *req.Age)
	require.NotNil(t, req.Language)
	assert.Equal(t, "hindi", *req.Language)
}

func TestSetPreferences_ReplacesAndEmptySendsNoPreferences(t *testing.T) {
	remote := &mockRemote{}
	m, _, _ := setupTestManager(t, remote, Options{})
	signIn(m, "token-1")

	m.SetPreferences([]models.Category{models.CategoryDua})
	m.SetPreferences(nil)
	m.Wait()

	state := m.Snapshot()
	assert.Empty(t, state.Preferences)
	assert.Equal(t, 0, state.Stats.TopicsFollowed)

	require.Len(t, remote.profileUpdate, 2)
	last := remote.profileUpdate[1]
	assert.Nil(t, last.Preferences)
	assert.Nil(t, last.Age)
	assert.Equal(t, "english", *last.Language)
}

func TestSetPreferences_GuestIsLocalOnly(t *testing.T) {
	remote := &mockRemote{}
	m, _, _ := setupTestManager(t, remote, Options{})

	m.SetPreferences([]models.Category{models.CategoryDua})
	m.Wait()

	assert.Equal(t, []models.Category{models.CategoryDua}, m.Snapshot().Preferences)
	assert.Empty(t, remote.profileUpdate)
}

func TestLogout_ClearsState(t *testing.T) {
	m, _, store := setupTestManager(t, &mockRemote{}, Options{DailyLimit: 7})
	signIn(m, "token-1")
	m.state.AllCards = []models.Card{{ID: "x"}}

	m.Bookmark("x")
	m.MarkCardLearned("x")
	m.SetPreferences([]models.Category{models.CategoryDua, models.CategoryQuranSurah})
	m.CompleteOnboarding()
	m.SetUserAge(21)
	m.Wait()

	m.Logout()

	state := m.Snapshot()
	assert.False(t, state.Authenticated())
	assert.Empty(t, state.UserEmail)
	assert.Nil(t, state.UserAge)
	assert.Empty(t, state.LearnedCardIDs)
	assert.Empty(t, state.BookmarkedCardIDs)
	assert.Empty(t, state.Preferences)
	assert.False(t, state.HasCompletedOnboarding)
	assert.Equal(t, models.UserStats{}, state.Stats)
	assert.Equal(t, 0, state.CardsLearnedToday)
	assert.True(t, state.LastLearningDate.IsZero())
	assert.Equal(t, 7, state.DailyLimit)
	assert.Len(t, state.AllCards, 1)

	data, err := store.Load(context.Background(), StorageKey)
	require.NoError(t, err)
	restored, err := decodeState(data, DefaultDailyLimit)
	require.NoError(t, err)
	assert.False(t, restored.Authenticated())
	assert.Empty(t, restored.LearnedCardIDs)
}

func TestDeleteAccount(t *testing.T) {
	tests := []struct {
		name           string
		deleteErr      error
		expectedError  bool
		expectedSignIn bool
		expectedEvents []Event
	}{
		{
			name:           "success resets",
			expectedSignIn: false,
			expectedEvents: []Event{
				{Type: EventStateChanged},
				{Type: EventSessionEnded, Reason: ReasonAccountDeleted},
			},
		},
		{
			name:           "failure keeps session",
			deleteErr:      errors.New("server error"),
			expectedError:  true,
			expectedSignIn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &mockRemote{deleteErr: tt.deleteErr}
			m, _, _ := setupTestManager(t, remote, Options{})
			signIn(m, "token-1")
			m.Bookmark("a")
			m.Wait()

			var events []Event
			m.Subscribe(func(e Event) { events = append(events, e) })

			err := m.DeleteAccount(context.Background())

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, remote.deleted)
			assert.Equal(t, tt.expectedSignIn, m.Snapshot().Authenticated())
			assert.Equal(t, tt.expectedEvents, events)
		})
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name          string
		remote        *mockRemote
		expectedError error
		expectedToken string
		expectedEmail string
	}{
		{
			name: "success",
			remote: &mockRemote{auth: &models.AuthResponse{
				Token: "jwt",
				User:  &models.UserProfile{Email: "user@example.com"},
			}},
			expectedToken: "jwt",
			expectedEmail: "user@example.com",
		},
		{
			name:          "missing token",
			remote:        &mockRemote{auth: &models.AuthResponse{}},
			expectedError: ErrMissingToken,
		},
		{
			name:          "rejected",
			remote:        &mockRemote{authErr: errors.New("Invalid credentials")},
			expectedError: errors.New("failed to log in: Invalid credentials"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := setupTestManager(t, tt.remote, Options{})
			m.Bookmark("guest-bookmark")

			var started int
			m.Subscribe(func(e Event) {
				if e.Type == EventSessionStarted {
					started++
				}
			})

			err := m.Login(context.Background(), "User@Example.com", "secret1")

			state := m.Snapshot()
			if tt.expectedError != nil {
				require.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
				assert.False(t, state.Authenticated())
				assert.Equal(t, 0, started)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedToken, state.AuthToken)
			assert.Equal(t, tt.expectedEmail, state.UserEmail)
			assert.Equal(t, []string{"guest-bookmark"}, state.BookmarkedCardIDs)
			assert.Equal(t, 1, started)
		})
	}
}

func TestSignup_SendsPreferences(t *testing.T) {
	remote := &mockRemote{auth: &models.AuthResponse{Token: "jwt"}}
	m, _, _ := setupTestManager(t, remote, Options{})
	m.SetPreferences([]models.Category{models.CategoryQuranSurah})

	err := m.Signup(context.Background(), "new@example.com", "secret1", "New")

	require.NoError(t, err)
	require.Len(t, remote.signups, 1)
	assert.Equal(t, []string{"quran_surah"}, remote.signups[0].Preferences)
	assert.Equal(t, "new@example.com", m.Snapshot().UserEmail)
	assert.Equal(t, "jwt", m.Token())
}

func TestLoginWithApple_Offline(t *testing.T) {
	remote := &mockRemote{auth: &models.AuthResponse{User: &models.UserProfile{Email: "apple@example.com"}}}
	m, _, _ := setupTestManager(t, remote, Options{})

	err := m.LoginWithApple(context.Background(), "identity", "apple@example.com")

	require.NoError(t, err)
	state := m.Snapshot()
	assert.False(t, state.Authenticated())
	assert.Equal(t, "apple@example.com", state.UserEmail)
}

func TestSetAuth(t *testing.T) {
	m, _, _ := setupTestManager(t, &mockRemote{}, Options{})
	m.SetAuth("token-1", "a@example.com")
	m.SetAuth("token-2", "")

	state := m.Snapshot()
	assert.Equal(t, "token-2", state.AuthToken)
	assert.Equal(t, "a@example.com", state.UserEmail)
}

func TestInitSession(t *testing.T) {
	age := 40

	tests := []struct {
		name                string
		localPreferences    []models.Category
		user                *models.UserProfile
		userErr             error
		expectedPreferences []models.Category
		expectedOnboarded   bool
	}{
		{
			name:                "adopts backend preferences",
			user:                &models.UserProfile{Preferences: []string{"hadith", "stories", "unknown"}, Age: &age, Language: "hindi"},
			expectedPreferences: []models.Category{models.CategoryHadis, models.CategoryProphetStories},
			expectedOnboarded:   true,
		},
		{
			name:                "keeps local preferences",
			localPreferences:    []models.Category{models.CategoryDua},
			user:                &models.UserProfile{Preferences: []string{"quran"}},
			expectedPreferences: []models.Category{models.CategoryDua},
			expectedOnboarded:   true,
		},
		{
			name:                "no backend preferences",
			user:                &models.UserProfile{},
			expectedPreferences: []models.Category{},
			expectedOnboarded:   false,
		},
		{
			name:                "failure leaves state",
			userErr:             errors.New("offline"),
			expectedPreferences: []models.Category{},
			expectedOnboarded:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &mockRemote{user: tt.user, userErr: tt.userErr}
			m, _, _ := setupTestManager(t, remote, Options{})
			signIn(m, "token-1")
			if tt.localPreferences != nil {
				m.state.Preferences = tt.localPreferences
			}

			m.InitSession(context.Background())

			state := m.Snapshot()
			assert.Equal(t, tt.expectedPreferences, state.Preferences)
			assert.Equal(t, tt.expectedOnboarded, state.HasCompletedOnboarding)
		})
	}
}

func TestInitSession_FillsProfile(t *testing.T) {
	age := 40
	remote := &mockRemote{user: &models.UserProfile{Age: &age, Language: "hindi"}}
	m, _, _ := setupTestManager(t, remote, Options{})
	signIn(m, "token-1")

	m.InitSession(context.Background())

	state := m.Snapshot()
	require.NotNil(t, state.UserAge)
	assert.Equal(t, 40, *state.UserAge)
	assert.Equal(t, models.LanguageHindi, state.PreferredLanguage)
}

func TestResetProgress(t *testing.T) {
	m, _, _ := setupTestManager(t, &mockRemote{}, Options{})
	signIn(m, "token-1")
	m.SetPreferences([]models.Category{models.CategoryDua, models.CategoryHadis})
	m.MarkCardLearned("a")
	m.Bookmark("b")
	m.Wait()

	m.ResetProgress()

	state := m.Snapshot()
	assert.True(t, state.Authenticated())
	assert.Len(t, state.Preferences, 2)
	assert.Empty(t, state.LearnedCardIDs)
	assert.Empty(t, state.BookmarkedCardIDs)
	assert.Equal(t, models.UserStats{TopicsFollowed: 2}, state.Stats)
}
