package progress

import (
	"context"
	"slices"
)

// Bookmark saves a card. Already bookmarked cards are left alone.
func (m *Manager) Bookmark(cardID string) {
	if cardID == "" {
		return
	}

	m.mu.Lock()
	var added bool
	m.state.BookmarkedCardIDs, added = addID(m.state.BookmarkedCardIDs, cardID)
	if !added {
		m.mu.Unlock()
		return
	}
	m.persistLocked()
	token := m.state.AuthToken
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
	m.enqueue(token, syncTask{
		kind:   taskAddBookmark,
		cardID: cardID,
		run: func(ctx context.Context) error {
			_, err := m.remote.AddBookmark(ctx, token, cardID)
			return err
		},
	})
}

// Unbookmark removes a saved card. Cards that are not bookmarked are left alone.
func (m *Manager) Unbookmark(cardID string) {
	m.mu.Lock()
	var removed bool
	m.state.BookmarkedCardIDs, removed = removeID(m.state.BookmarkedCardIDs, cardID)
	if !removed {
		m.mu.Unlock()
		return
	}
	m.persistLocked()
	token := m.state.AuthToken
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
	m.enqueue(token, syncTask{
		kind:   taskRemoveBookmark,
		cardID: cardID,
		run: func(ctx context.Context) error {
			_, err := m.remote.RemoveBookmark(ctx, token, cardID)
			return err
		},
	})
}

// ToggleBookmark flips the bookmark of a card and returns whether it is bookmarked afterwards
func (m *Manager) ToggleBookmark(cardID string) bool {
	if m.IsBookmarked(cardID) {
		m.Unbookmark(cardID)
		return false
	}
	m.Bookmark(cardID)
	return cardID != ""
}

// IsBookmarked reports whether the card is bookmarked
func (m *Manager) IsBookmarked(cardID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.state.BookmarkedCardIDs, cardID)
}
