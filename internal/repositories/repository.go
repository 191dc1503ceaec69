// Package repositories provides storage for users and their progress: an in-memory store and MySQL repositories
package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/barkatlearn/learn/internal/models"
	"github.com/go-sql-driver/mysql"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when creating a user whose email is already registered
	ErrEmailTaken = errors.New("email already registered")
	// ErrProgressNotFound is returned when a user has no stored progress yet
	ErrProgressNotFound = errors.New("progress not found")
)

// mysqlDuplicateEntry is the MySQL error number for a unique key violation
const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// cloneUser returns a copy of u that shares no memory with it
func cloneUser(u *models.User) *models.User {
	out := *u
	out.Preferences = slices.Clone(u.Preferences)
	if out.Preferences == nil {
		out.Preferences = []string{}
	}
	if u.Age != nil {
		age := *u.Age
		out.Age = &age
	}
	return &out
}

// encodeIDs stores an id list as a JSON array column
func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode id list: %w", err)
	}
	return string(data), nil
}

// decodeIDs reads a JSON array column. NULL or empty columns decode as an empty list.
func decodeIDs(data []byte) ([]string, error) {
	ids := []string{}
	if len(data) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode id list: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// dateValue converts a date to a DATE column value
func dateValue(d models.Date) any {
	if d.IsZero() {
		return nil
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// dateFromColumn converts a DATE column to a date
func dateFromColumn(t sql.NullTime) models.Date {
	if !t.Valid {
		return models.Date{}
	}
	return models.DateOf(t.Time)
}
