package progress

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/barkatlearn/learn/internal/models"
	"go.uber.org/zap"
)

// ErrMissingToken is returned when the backend accepted a login but sent no session token
var ErrMissingToken = errors.New("login response has no token")

// SetAuth replaces the session token. An empty email keeps the current one.
func (m *Manager) SetAuth(token, email string) {
	m.mu.Lock()
	started := token != "" && m.state.AuthToken != token
	m.state.AuthToken = token
	if email != "" {
		m.state.UserEmail = email
	}
	m.persistLocked()
	m.mu.Unlock()

	if started {
		m.emit(Event{Type: EventStateChanged}, Event{Type: EventSessionStarted})
		return
	}
	m.emit(Event{Type: EventStateChanged})
}

// Signup creates an account and starts its session. Local progress is kept.
func (m *Manager) Signup(ctx context.Context, email, password, name string) error {
	m.mu.Lock()
	prefs := models.CategorySlugs(m.state.Preferences)
	m.mu.Unlock()

	resp, err := m.remote.Signup(ctx, &models.SignupRequest{
		Email:       email,
		Password:    password,
		Name:        name,
		Preferences: prefs,
	})
	if err != nil {
		return fmt.Errorf("failed to sign up: %w", err)
	}
	return m.startSession(resp, email)
}

// Login exchanges credentials for a session. Local progress is kept and merged on the next LoadContent.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	resp, err := m.remote.Login(ctx, &models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	return m.startSession(resp, email)
}

// LoginWithApple exchanges an Apple identity token for a session.
// Without a backend the login is local: the email is stored and the session has no token.
func (m *Manager) LoginWithApple(ctx context.Context, identityToken, email string) error {
	resp, err := m.remote.LoginWithApple(ctx, identityToken, email)
	if err != nil {
		return fmt.Errorf("failed to log in with apple: %w", err)
	}
	if resp == nil {
		resp = &models.AuthResponse{}
	}
	if resp.User != nil && resp.User.Email != "" {
		email = resp.User.Email
	}

	m.mu.Lock()
	m.state.AuthToken = resp.Token
	if email != "" {
		m.state.UserEmail = email
	}
	m.persistLocked()
	m.mu.Unlock()

	m.logger.Info("apple login", zap.Bool("synced", resp.Token != ""))
	m.emit(Event{Type: EventStateChanged}, Event{Type: EventSessionStarted})
	return nil
}

func (m *Manager) startSession(resp *models.AuthResponse, email string) error {
	if resp == nil || resp.Token == "" {
		return ErrMissingToken
	}
	if resp.User != nil && resp.User.Email != "" {
		email = resp.User.Email
	}

	m.mu.Lock()
	m.state.AuthToken = resp.Token
	m.state.UserEmail = email
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged}, Event{Type: EventSessionStarted})
	return nil
}

// InitSession pulls the signed-in user's profile.
//
// Backend preferences are adopted only when there are no local ones, and mark onboarding as done.
// Age and language fill in values missing locally. Failures are logged and leave the state unchanged.
func (m *Manager) InitSession(ctx context.Context) {
	token := m.Token()
	if token == "" {
		return
	}

	user, err := m.remote.CurrentUser(ctx, token)
	if err != nil {
		m.logger.Warn("failed to hydrate user profile", zap.Error(err))
		m.endSessionIfUnauthorized(token, err)
		return
	}
	if user == nil {
		return
	}

	mapped := models.ParseCategories(user.Preferences)
	lang, langOK := models.ParseLanguage(user.Language)

	m.mu.Lock()
	if m.state.AuthToken != token {
		m.mu.Unlock()
		return
	}
	if len(mapped) > 0 {
		if len(m.state.Preferences) == 0 {
			m.state.Preferences = mapped
		}
		m.state.HasCompletedOnboarding = true
	}
	if m.state.UserAge == nil && user.Age != nil {
		age := *user.Age
		m.state.UserAge = &age
	}
	if m.state.PreferredLanguage == "" && langOK {
		m.state.PreferredLanguage = lang
	}
	if m.state.UserEmail == "" {
		m.state.UserEmail = user.Email
	}
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
}

// SetPreferences replaces the followed categories. Unknown values and duplicates are dropped.
func (m *Manager) SetPreferences(categories []models.Category) {
	prefs := make([]models.Category, 0, len(categories))
	for _, c := range categories {
		if c.Valid() && !slices.Contains(prefs, c) {
			prefs = append(prefs, c)
		}
	}
	today := m.today()

	m.mu.Lock()
	m.state.Preferences = prefs
	m.state.updateStreak(today)
	m.persistLocked()
	token := m.state.AuthToken
	req := m.profileUpdateLocked()
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
	m.enqueue(token, syncTask{
		kind: taskUpdateProfile,
		run: func(ctx context.Context) error {
			_, err := m.remote.UpdateCurrentUser(ctx, token, req)
			return err
		},
	})
}

// profileUpdateLocked builds the profile update mirroring preferences, age and language
func (m *Manager) profileUpdateLocked() *models.UpdateUserRequest {
	language := m.state.PreferredLanguage.Slug()
	req := &models.UpdateUserRequest{Language: &language}
	if m.state.UserAge != nil {
		age := *m.state.UserAge
		req.Age = &age
	}
	if slugs := models.CategorySlugs(m.state.Preferences); len(slugs) > 0 {
		req.Preferences = slugs
	}
	return req
}

// SetUserAge stores the user's age locally
func (m *Manager) SetUserAge(age int) {
	m.mu.Lock()
	m.state.UserAge = &age
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
}

// SetPreferredLanguage stores the content language locally
func (m *Manager) SetPreferredLanguage(language models.Language) {
	m.mu.Lock()
	m.state.PreferredLanguage = language
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
}

// CompleteOnboarding marks onboarding as done
func (m *Manager) CompleteOnboarding() {
	m.mu.Lock()
	m.state.HasCompletedOnboarding = true
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
}

// ResetProgress clears local progress and stats but keeps the session and preferences. Nothing is synced.
func (m *Manager) ResetProgress() {
	m.mu.Lock()
	m.state.LearnedCardIDs = []string{}
	m.state.BookmarkedCardIDs = []string{}
	m.state.FinishedDetailCardIDs = []string{}
	m.state.DetailOpenedCardIDs = []string{}
	m.state.CardsLearnedToday = 0
	m.state.LastLearningDate = models.Date{}
	m.state.Stats = models.UserStats{TopicsFollowed: len(m.state.Preferences)}
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
}

// Logout resets the session, preferences and progress to guest defaults
func (m *Manager) Logout() {
	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()

	m.logger.Info("logged out")
	m.emit(Event{Type: EventStateChanged}, Event{Type: EventSessionEnded, Reason: ReasonLogout})
}

// DeleteAccount deletes the account on the backend, then resets like Logout.
// When the backend call fails the session is kept and the error returned.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	token := m.Token()
	if err := m.remote.DeleteAccount(ctx, token); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()

	m.logger.Info("account deleted")
	m.emit(Event{Type: EventStateChanged}, Event{Type: EventSessionEnded, Reason: ReasonAccountDeleted})
	return nil
}

// resetLocked restores guest defaults. The loaded cards and the daily limit survive. The caller must hold m.mu.
func (m *Manager) resetLocked() {
	cards := m.state.AllCards
	m.state = newState(m.state.DailyLimit)
	m.state.AllCards = cards
	m.persistLocked()
}
