package progress

import (
	"maps"
	"slices"

	"github.com/barkatlearn/learn/internal/models"
)

// DefaultDailyLimit is the number of flash cards that can be learned per calendar day
const DefaultDailyLimit = 5

// Session identifies the signed-in user. An empty AuthToken means guest mode.
type Session struct {
	AuthToken         string
	UserEmail         string
	UserAge           *int
	PreferredLanguage models.Language
}

// Authenticated reports whether a session token is present
func (s Session) Authenticated() bool {
	return s.AuthToken != ""
}

// State is the full client state owned by a Manager.
//
// Id lists keep insertion order and hold each id at most once.
type State struct {
	Session
	Preferences            []models.Category
	HasCompletedOnboarding bool

	LearnedCardIDs        []string
	BookmarkedCardIDs     []string
	FinishedDetailCardIDs []string
	DetailOpenedCardIDs   []string

	DailyLimit        int
	CardsLearnedToday int
	LastLearningDate  models.Date
	Stats             models.UserStats

	// Server snapshots, nil until the first successful fetch while authenticated
	CategoryStats map[models.Category]models.CategoryStat
	StatsOverview *models.StatsOverview

	// Transient, never persisted
	Loading  bool
	Error    string
	AllCards []models.Card
}

// newState returns the defaults of a first-time guest
func newState(dailyLimit int) State {
	return State{
		Preferences:           []models.Category{},
		LearnedCardIDs:        []string{},
		BookmarkedCardIDs:     []string{},
		FinishedDetailCardIDs: []string{},
		DetailOpenedCardIDs:   []string{},
		DailyLimit:            dailyLimit,
		AllCards:              []models.Card{},
	}
}

// clone returns a deep copy so callers cannot mutate the manager's state
func (s State) clone() State {
	out := s
	if s.UserAge != nil {
		age := *s.UserAge
		out.UserAge = &age
	}
	out.Preferences = slices.Clone(s.Preferences)
	out.LearnedCardIDs = slices.Clone(s.LearnedCardIDs)
	out.BookmarkedCardIDs = slices.Clone(s.BookmarkedCardIDs)
	out.FinishedDetailCardIDs = slices.Clone(s.FinishedDetailCardIDs)
	out.DetailOpenedCardIDs = slices.Clone(s.DetailOpenedCardIDs)
	out.AllCards = slices.Clone(s.AllCards)
	if s.CategoryStats != nil {
		out.CategoryStats = maps.Clone(s.CategoryStats)
	}
	if s.StatsOverview != nil {
		overview := *s.StatsOverview
		out.StatsOverview = &overview
	}
	return out
}

// addID appends id unless it is already present
func addID(ids []string, id string) ([]string, bool) {
	if slices.Contains(ids, id) {
		return ids, false
	}
	return append(ids, id), true
}

// removeID drops id, reporting whether it was present
func removeID(ids []string, id string) ([]string, bool) {
	i := slices.Index(ids, id)
	if i < 0 {
		return ids, false
	}
	return slices.Delete(slices.Clone(ids), i, i+1), true
}

// unionIDs appends the ids of extra missing from base, keeping base order first
func unionIDs(base []string, extra []string) []string {
	out := slices.Clone(base)
	if out == nil {
		out = []string{}
	}
	for _, id := range extra {
		if id == "" {
			continue
		}
		out, _ = addID(out, id)
	}
	return out
}

// dedupIDs returns ids without duplicates or empty values
func dedupIDs(ids []string) []string {
	return unionIDs(nil, ids)
}
