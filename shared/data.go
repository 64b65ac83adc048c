package shared

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// DateOnly is the format used for dates in query params and stats output
	DateOnly = "2006-01-02"
	// DateDisplay is the human-readable calendar format used in API responses,
	// e.g. "Mon May 15 2023"
	DateDisplay = "Mon Jan 02 2006"
)

type User struct {
	// Store-assigned uuid by default. A client-supplied id on creation is
	// honored when present.
	ID        string    `json:"_id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"-"`
}

type Exercise struct {
	ID uint `json:"-" gorm:"primaryKey"`
	// Copied from the owning User at creation time and never updated, even if
	// the User's username later changes. Log queries join on this field.
	Username    string    `json:"username" gorm:"not null"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Date        time.Time `json:"date"`
}

// LogEntry is the projection of an Exercise returned by log queries. Date is
// pre-rendered as a DateDisplay calendar string.
type LogEntry struct {
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Date        string  `json:"date"`
}

type LogEntries []LogEntry

func (l *LogEntries) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		if s, isStr := value.(string); isStr {
			bytes = []byte(s)
		} else {
			return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
		}
	}

	result := LogEntries{}
	err := json.Unmarshal(bytes, &result)
	*l = result
	return err
}

func (l LogEntries) Value() (driver.Value, error) {
	return json.Marshal(l)
}

type ExerciseResponse struct {
	UserID      string  `json:"_id"`
	Username    string  `json:"username"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Date        string  `json:"date"`
}

type LogResponse struct {
	UserID   string     `json:"_id"`
	Username string     `json:"username"`
	Count    int        `json:"count"`
	Log      LogEntries `json:"log"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
