package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/barkatlearn/learn/internal/models"
	"github.com/barkatlearn/learn/internal/storage"
	"go.uber.org/zap"
)

// StorageKey is the key the persisted state is stored under
const StorageKey = "barkat-learn-storage"

// persistVersion is the current layout of persistedState
const persistVersion = 1

// envelope wraps the persisted state with its layout version
type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// persistedState is the subset of State that survives restarts.
// Server snapshots and transient fields are never written.
type persistedState struct {
	AuthToken              *string           `json:"authToken"`
	UserEmail              *string           `json:"userEmail"`
	UserAge                *int              `json:"userAge"`
	PreferredLanguage      *models.Language  `json:"preferredLanguage"`
	Preferences            []string          `json:"preferences"`
	HasCompletedOnboarding bool              `json:"hasCompletedOnboarding"`
	LearnedCardIDs         []string          `json:"learnedCardIds"`
	BookmarkedCardIDs      []string          `json:"bookmarkedCardIds"`
	FinishedDetailCardIDs  []string          `json:"finishedDetailCardIds"`
	DetailOpenedCardIDs    []string          `json:"detailOpenedCardIds"`
	DailyLimit             int               `json:"dailyLimit"`
	CardsLearnedToday      int               `json:"cardsLearnedToday"`
	LastLearningDate       models.Date       `json:"lastLearningDate"`
	Stats                  *models.UserStats `json:"stats"`

	// SavedCardIDs is the name bookmarks were stored under before version 1
	SavedCardIDs []string `json:"savedCardIds,omitempty"`
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// encodeState builds the persisted blob for s
func encodeState(s State) ([]byte, error) {
	p := persistedState{
		AuthToken:              optionalString(s.AuthToken),
		UserEmail:              optionalString(s.UserEmail),
		UserAge:                s.UserAge,
		Preferences:            make([]string, 0, len(s.Preferences)),
		HasCompletedOnboarding: s.HasCompletedOnboarding,
		LearnedCardIDs:         s.LearnedCardIDs,
		BookmarkedCardIDs:      s.BookmarkedCardIDs,
		FinishedDetailCardIDs:  s.FinishedDetailCardIDs,
		DetailOpenedCardIDs:    s.DetailOpenedCardIDs,
		DailyLimit:             s.DailyLimit,
		CardsLearnedToday:      s.CardsLearnedToday,
		LastLearningDate:       s.LastLearningDate,
		Stats:                  &s.Stats,
	}
	if s.PreferredLanguage != "" {
		lang := s.PreferredLanguage
		p.PreferredLanguage = &lang
	}
	for _, c := range s.Preferences {
		p.Preferences = append(p.Preferences, string(c))
	}

	state, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return json.Marshal(envelope{State: state, Version: persistVersion})
}

// decodeState restores a State from a persisted blob, migrating older layouts
func decodeState(data []byte, defaultDailyLimit int) (State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return State{}, fmt.Errorf("invalid persisted blob: %w", err)
	}
	if len(env.State) == 0 {
		return State{}, errors.New("persisted blob has no state")
	}

	var p persistedState
	if err := json.Unmarshal(env.State, &p); err != nil {
		return State{}, fmt.Errorf("invalid persisted state: %w", err)
	}
	migrate(&p, env.Version)

	s := newState(defaultDailyLimit)
	if p.AuthToken != nil {
		s.AuthToken = *p.AuthToken
	}
	if p.UserEmail != nil {
		s.UserEmail = *p.UserEmail
	}
	s.UserAge = p.UserAge
	if p.PreferredLanguage != nil {
		if lang, ok := models.ParseLanguage(string(*p.PreferredLanguage)); ok {
			s.PreferredLanguage = lang
		}
	}
	s.Preferences = models.ParseCategories(p.Preferences)
	s.HasCompletedOnboarding = p.HasCompletedOnboarding
	s.LearnedCardIDs = dedupIDs(p.LearnedCardIDs)
	s.BookmarkedCardIDs = dedupIDs(p.BookmarkedCardIDs)
	s.FinishedDetailCardIDs = dedupIDs(p.FinishedDetailCardIDs)
	s.DetailOpenedCardIDs = dedupIDs(p.DetailOpenedCardIDs)
	if p.DailyLimit > 0 {
		s.DailyLimit = p.DailyLimit
	}
	s.CardsLearnedToday = max(p.CardsLearnedToday, 0)
	s.LastLearningDate = p.LastLearningDate
	if p.Stats != nil {
		s.Stats = *p.Stats
	}
	return s, nil
}

// migrate upgrades a persisted state written by an older version
func migrate(p *persistedState, version int) {
	if version < 1 && p.BookmarkedCardIDs == nil && p.SavedCardIDs != nil {
		p.BookmarkedCardIDs = p.SavedCardIDs
	}
	p.SavedCardIDs = nil
}

// persistLocked writes the persisted subset of the state. The caller must hold m.mu.
// Failures are logged only; the in-memory state stays authoritative.
func (m *Manager) persistLocked() {
	if m.store == nil {
		return
	}
	data, err := encodeState(m.state)
	if err != nil {
		m.logger.Error("failed to encode state", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.SyncTimeout)
	defer cancel()
	if err := m.store.Save(ctx, m.opts.StorageKey, data); err != nil {
		m.logger.Error("failed to persist state", zap.Error(err))
	}
}

// Hydrate loads the persisted state, replacing the in-memory one.
//
// A missing blob leaves guest defaults in place. A corrupt blob is reported and ignored.
func (m *Manager) Hydrate(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	data, err := m.store.Load(ctx, m.opts.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load persisted state: %w", err)
	}

	restored, err := decodeState(data, m.opts.DailyLimit)
	if err != nil {
		m.logger.Warn("discarding unreadable persisted state", zap.Error(err))
		return fmt.Errorf("failed to decode persisted state: %w", err)
	}

	m.mu.Lock()
	restored.AllCards = m.state.AllCards
	m.state = restored
	m.persistLocked()
	m.mu.Unlock()

	m.logger.Debug("state hydrated",
		zap.Bool("authenticated", restored.Authenticated()),
		zap.Int("learned", len(restored.LearnedCardIDs)),
		zap.Int("bookmarked", len(restored.BookmarkedCardIDs)),
	)
	m.emit(Event{Type: EventStateChanged})
	return nil
}
