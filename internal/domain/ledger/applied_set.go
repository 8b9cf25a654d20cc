package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// AppliedEntrySet tracks which journal entries have contributed to a general
// ledger bucket. Stored as a JSONB array of entry IDs; the set is expected to
// stay small because buckets are per period.
// Implements GORM Scanner/Valuer for JSONB storage.
type AppliedEntrySet []uuid.UUID

// Contains reports whether the entry ID is in the set
func (s AppliedEntrySet) Contains(entryID uuid.UUID) bool {
	for _, id := range s {
		if id == entryID {
			return true
		}
	}
	return false
}

// Add inserts the entry ID if not already present
func (s *AppliedEntrySet) Add(entryID uuid.UUID) {
	if s.Contains(entryID) {
		return
	}
	*s = append(*s, entryID)
}

// Value implements driver.Valuer interface for GORM to store as JSONB
func (s AppliedEntrySet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (s *AppliedEntrySet) Scan(value interface{}) error {
	if value == nil {
		*s = AppliedEntrySet{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan AppliedEntrySet: unsupported type")
	}

	if len(bytes) == 0 {
		*s = AppliedEntrySet{}
		return nil
	}

	return json.Unmarshal(bytes, s)
}
