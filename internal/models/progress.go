package models

import (
	"bytes"
	"encoding/json"
)

// UserStats is the aggregate learning statistics of one user
type UserStats struct {
	CardsLearned     int  `json:"cardsLearned"`
	StreakDays       int  `json:"streakDays"`
	LastLearningDate Date `json:"lastLearningDate"`
	TopicsFollowed   int  `json:"topicsFollowed"`
}

// ProgressSnapshot is the progress document served by GET /api/progress.
//
// Nil slices mean the field was absent from the payload, which is different from an empty list.
type ProgressSnapshot struct {
	LearnedCardIDs        []string   `json:"learnedCardIds"`
	SavedCardIDs          []string   `json:"savedCardIds"`
	FinishedDetailCardIDs []string   `json:"finishedDetailCardIds"`
	DetailOpenedCardIDs   []string   `json:"detailOpenedCardIds"`
	Stats                 *UserStats `json:"stats"`
	LastLearningDate      Date       `json:"lastLearningDate"`
}

// ProgressPatch is a partial progress update for PATCH /api/progress. Nil fields are left unchanged.
type ProgressPatch struct {
	LearnedCardIDs        []string   `json:"learnedCardIds,omitempty"`
	SavedCardIDs          []string   `json:"savedCardIds,omitempty"`
	FinishedDetailCardIDs []string   `json:"finishedDetailCardIds,omitempty"`
	DetailOpenedCardIDs   []string   `json:"detailOpenedCardIds,omitempty"`
	Stats                 *UserStats `json:"stats,omitempty"`
	LastLearningDate      *Date      `json:"lastLearningDate,omitempty"`
}

// CardIDRequest is the body of the learned and bookmark endpoints.
// Date is the sender's calendar day and is only read by POST /api/progress/learned.
type CardIDRequest struct {
	CardID string `json:"cardId"`
	Date   *Date  `json:"date,omitempty"`
}

// BookmarksResponse is returned by the bookmark mutation endpoints
type BookmarksResponse struct {
	Message      string   `json:"message,omitempty"`
	SavedCardIDs []string `json:"savedCardIds"`
}

// CategoryStat holds the total and completed card counts of one category
type CategoryStat struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// StatsOverview is the server computed summary of a user's progress
type StatsOverview struct {
	Streak   int `json:"streak"`
	Consumed int `json:"consumed"`
	Topic    int `json:"topic"`
}

// RawCategoryStat is a per-category entry as sent by the server
type RawCategoryStat struct {
	Total     LooseInt `json:"total"`
	Completed LooseInt `json:"completed"`
}

// RawStatsOverview is the overview as sent by the server
type RawStatsOverview struct {
	Streak   LooseInt `json:"streak"`
	Consumed LooseInt `json:"consumed"`
	Topic    LooseInt `json:"topic"`
}

// LooseInt decodes a JSON number. Missing, null or non-numeric values leave it invalid.
type LooseInt struct {
	Value int
	Valid bool
}

// Int returns a valid LooseInt holding v
func Int(v int) LooseInt {
	return LooseInt{Value: v, Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler
func (n *LooseInt) UnmarshalJSON(data []byte) error {
	*n = LooseInt{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	*n = LooseInt{Value: int(f), Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler
func (n LooseInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// CategoryStatsResponse is the body of GET /api/progress/user-progress-stats
type CategoryStatsResponse struct {
	Overview   *RawStatsOverview           `json:"overview,omitempty"`
	Categories map[string]*RawCategoryStat `json:"categories"`
}

// NewProgress returns the progress document of a user who has not learned anything yet
func NewProgress(topicsFollowed int) *ProgressSnapshot {
	return &ProgressSnapshot{
		LearnedCardIDs:        []string{},
		SavedCardIDs:          []string{},
		FinishedDetailCardIDs: []string{},
		DetailOpenedCardIDs:   []string{},
		Stats:                 &UserStats{TopicsFollowed: topicsFollowed},
	}
}

// Clone returns a deep copy of p. Nil lists and stats are replaced with empty values.
func (p *ProgressSnapshot) Clone() *ProgressSnapshot {
	out := NewProgress(0)
	out.LearnedCardIDs = append(out.LearnedCardIDs, p.LearnedCardIDs...)
	out.SavedCardIDs = append(out.SavedCardIDs, p.SavedCardIDs...)
	out.FinishedDetailCardIDs = append(out.FinishedDetailCardIDs, p.FinishedDetailCardIDs...)
	out.DetailOpenedCardIDs = append(out.DetailOpenedCardIDs, p.DetailOpenedCardIDs...)
	if p.Stats != nil {
		stats := *p.Stats
		out.Stats = &stats
	}
	out.LastLearningDate = p.LastLearningDate
	return out
}
