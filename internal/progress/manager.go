// Package progress owns the learner's progress, bookmarks, streak and session, and mirrors changes to the backend.
//
// Every mutation is applied locally first and persisted as one blob. When a session token is present the matching
// backend call is started in the background; its failure is logged and never rolls the local change back.
package progress

import (
	"sync"
	"time"

	"github.com/barkatlearn/learn/internal/client"
	"github.com/barkatlearn/learn/internal/models"
	"github.com/barkatlearn/learn/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Options tunes a Manager. Zero values select the defaults.
type Options struct {
	// DailyLimit caps flash cards learned per calendar day (default 5)
	DailyLimit int
	// FeedPageSize is the number of cards requested by LoadContent (default 10)
	FeedPageSize int
	// SyncTimeout bounds each background backend call and each storage write (default 15s)
	SyncTimeout time.Duration
	// StorageKey overrides the key of the persisted blob
	StorageKey string
	// CountRepeatFinishes makes MarkDetailFinished bump the daily counter for cards finished before
	CountRepeatFinishes bool
	// LogoutOnUnauthorized ends the session when a backend call answers 401
	LogoutOnUnauthorized bool
	// Now returns the device-local time; defaults to time.Now
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.DailyLimit <= 0 {
		o.DailyLimit = DefaultDailyLimit
	}
	if o.FeedPageSize <= 0 {
		o.FeedPageSize = 10
	}
	if o.SyncTimeout <= 0 {
		o.SyncTimeout = client.DefaultTimeout
	}
	if o.StorageKey == "" {
		o.StorageKey = StorageKey
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Manager is the single owner of the client state
type Manager struct {
	mu     sync.Mutex
	state  State
	remote Remote
	store  storage.Store
	queue  *syncQueue
	loads  singleflight.Group
	logger *zap.Logger
	opts   Options

	listenersMu  sync.Mutex
	listeners    map[int]func(Event)
	nextListener int
}

// NewManager creates a manager holding guest defaults. Call Hydrate to restore the persisted state.
// store may be nil, in which case nothing is persisted.
func NewManager(remote Remote, store storage.Store, logger *zap.Logger, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()

	m := &Manager{
		state:     newState(opts.DailyLimit),
		remote:    remote,
		store:     store,
		logger:    logger,
		opts:      opts,
		listeners: make(map[int]func(Event)),
	}
	m.queue = newSyncQueue(opts.SyncTimeout, logger, m.handleSyncError)
	return m
}

// today returns the device-local calendar day
func (m *Manager) today() models.Date {
	return models.DateOf(m.opts.Now())
}

// Snapshot returns a copy of the current state
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Token returns the current session token, empty in guest mode
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.AuthToken
}

// AvailableCards returns the loaded cards in the followed categories.
// With no preferences, or when no card matches them, every loaded card is returned.
func (m *Manager) AvailableCards() []models.Card {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.state.Preferences) == 0 {
		return cloneCards(m.state.AllCards)
	}
	filtered := make([]models.Card, 0)
	for _, card := range m.state.AllCards {
		for _, preference := range m.state.Preferences {
			if card.Category == preference {
				filtered = append(filtered, card)
				break
			}
		}
	}
	if len(filtered) == 0 && len(m.state.AllCards) > 0 {
		return cloneCards(m.state.AllCards)
	}
	return filtered
}

// BookmarkedCards returns the loaded cards that are bookmarked, in feed order
func (m *Manager) BookmarkedCards() []models.Card {
	m.mu.Lock()
	defer m.mu.Unlock()

	bookmarked := make(map[string]struct{}, len(m.state.BookmarkedCardIDs))
	for _, id := range m.state.BookmarkedCardIDs {
		bookmarked[id] = struct{}{}
	}
	out := make([]models.Card, 0, len(bookmarked))
	for _, card := range m.state.AllCards {
		if _, ok := bookmarked[card.ID]; ok {
			out = append(out, card)
		}
	}
	return out
}

func cloneCards(cards []models.Card) []models.Card {
	out := make([]models.Card, len(cards))
	copy(out, cards)
	return out
}

// Wait blocks until all background sync calls started so far have finished
func (m *Manager) Wait() {
	m.queue.Wait()
}

// Close waits for running background calls and stops starting new ones.
// Local mutations keep working after Close; they are just no longer mirrored.
func (m *Manager) Close() {
	m.queue.Close()
}

// enqueue schedules a background call when token is set
func (m *Manager) enqueue(token string, task syncTask) {
	if token == "" {
		return
	}
	task.token = token
	m.queue.enqueue(task)
}

// handleSyncError ends the session on 401 when configured to, as long as the failing token is still current
func (m *Manager) handleSyncError(task syncTask, err error) {
	m.endSessionIfUnauthorized(task.token, err)
}

func (m *Manager) endSessionIfUnauthorized(token string, err error) {
	if !m.opts.LogoutOnUnauthorized || !client.IsUnauthorized(err) {
		return
	}

	m.mu.Lock()
	if token == "" || m.state.AuthToken != token {
		m.mu.Unlock()
		return
	}
	m.resetLocked()
	m.mu.Unlock()

	m.logger.Info("session ended after unauthorized response")
	m.emit(Event{Type: EventStateChanged}, Event{Type: EventSessionEnded, Reason: ReasonUnauthorized})
}
