package progress

import (
	"context"

	"github.com/barkatlearn/learn/internal/models"
	"go.uber.org/zap"
)

// MarkCardLearned records a flash card swipe.
//
// The card is silently not recorded when the daily limit is reached or when it was learned before.
// Returns whether the card was recorded.
func (m *Manager) MarkCardLearned(cardID string) bool {
	if cardID == "" {
		return false
	}
	today := m.today()

	m.mu.Lock()
	rolled := !m.state.LastLearningDate.Equal(today)
	m.state.rollover(today)

	if m.state.CardsLearnedToday >= m.state.DailyLimit {
		if rolled {
			m.persistLocked()
		}
		m.mu.Unlock()
		m.logger.Debug("daily limit reached", zap.String("card_id", cardID))
		if rolled {
			m.emit(Event{Type: EventStateChanged})
		}
		return false
	}

	var added bool
	m.state.LearnedCardIDs, added = addID(m.state.LearnedCardIDs, cardID)
	if !added {
		if rolled {
			m.persistLocked()
		}
		m.mu.Unlock()
		if rolled {
			m.emit(Event{Type: EventStateChanged})
		}
		return false
	}

	m.state.CardsLearnedToday++
	m.state.Stats.CardsLearned++
	m.state.LastLearningDate = today
	m.state.updateStreak(today)
	m.persistLocked()
	token := m.state.AuthToken
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
	m.enqueueMarkLearned(token, cardID, today)
	return true
}

// MarkDetailFinished records that the full text of a card was read to the end.
//
// The first finish of a card counts towards stats.CardsLearned and the daily counter. The daily limit is not
// enforced here. Returns whether this was the first finish of the card.
func (m *Manager) MarkDetailFinished(cardID string) bool {
	if cardID == "" {
		return false
	}
	today := m.today()

	m.mu.Lock()
	var first bool
	m.state.FinishedDetailCardIDs, first = addID(m.state.FinishedDetailCardIDs, cardID)
	if first {
		m.state.Stats.CardsLearned++
	}

	m.state.rollover(today)
	if first || m.opts.CountRepeatFinishes {
		m.state.CardsLearnedToday++
	}
	m.state.updateStreak(today)
	m.persistLocked()
	token := m.state.AuthToken
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
	m.enqueueMarkLearned(token, cardID, today)
	return first
}

// MarkDetailOpened remembers that the detail view of a card was opened. It is never synced.
func (m *Manager) MarkDetailOpened(cardID string) {
	if cardID == "" {
		return
	}

	m.mu.Lock()
	var added bool
	m.state.DetailOpenedCardIDs, added = addID(m.state.DetailOpenedCardIDs, cardID)
	if added {
		m.persistLocked()
	}
	m.mu.Unlock()

	if added {
		m.emit(Event{Type: EventStateChanged})
	}
}

// ResetDailyLimit starts a fresh daily counter when the calendar day changed
func (m *Manager) ResetDailyLimit() {
	today := m.today()

	m.mu.Lock()
	if m.state.LastLearningDate.Equal(today) {
		m.mu.Unlock()
		return
	}
	m.state.rollover(today)
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Type: EventStateChanged})
}

// RemainingToday returns how many flash cards can still be learned today
func (m *Manager) RemainingToday() int {
	today := m.today()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.LastLearningDate.Equal(today) {
		return m.state.DailyLimit
	}
	return max(m.state.DailyLimit-m.state.CardsLearnedToday, 0)
}

func (m *Manager) enqueueMarkLearned(token, cardID string, day models.Date) {
	m.enqueue(token, syncTask{
		kind:   taskMarkLearned,
		cardID: cardID,
		run: func(ctx context.Context) error {
			_, err := m.remote.MarkLearned(ctx, token, cardID, day)
			return err
		},
	})
}
