package progress

import "github.com/barkatlearn/learn/internal/models"

// nextStats applies the streak rule after a learning event or a preference change.
//
// The streak moves only when today already has activity (lastLearningDate is today): it grows by one when the
// previous streak day was yesterday, restarts at 1 when it was any other day, and holds when today was already
// counted. A missed day is detected lazily on the next activity, so the streak never drops to 0.
// stats.LastLearningDate is always set to today and TopicsFollowed to the number of followed topics.
func nextStats(stats models.UserStats, lastLearningDate, today models.Date, topics int) models.UserStats {
	streak := stats.StreakDays
	if lastLearningDate.Equal(today) {
		switch {
		case stats.LastLearningDate.Equal(today.AddDays(-1)):
			streak = stats.StreakDays + 1
		case !stats.LastLearningDate.Equal(today):
			streak = 1
		}
	}

	stats.StreakDays = streak
	stats.LastLearningDate = today
	stats.TopicsFollowed = topics
	return stats
}

// rollover resets the daily counter when the calendar day changed since the last learning activity
func (s *State) rollover(today models.Date) {
	if !s.LastLearningDate.Equal(today) {
		s.CardsLearnedToday = 0
		s.LastLearningDate = today
	}
}

// updateStreak recomputes s.Stats for today
func (s *State) updateStreak(today models.Date) {
	s.Stats = nextStats(s.Stats, s.LastLearningDate, today, len(s.Preferences))
}
