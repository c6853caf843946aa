package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ehr/homecare/internal/domain/roster"
)

// ErrNotFound is returned when no draft is stored under a key.
var ErrNotFound = errors.New("draft not found")

// FlagAutosave names the persisted autosave setting.
const FlagAutosave = "autosave"

const keySeparator = ":"

// Key identifies a draft. An empty Date addresses the patient's assessment
// draft; a non-empty Date addresses the visit note draft for that day.
type Key struct {
	PatientID string      `json:"patientId"`
	Date      string      `json:"date,omitempty"`
	Role      roster.Role `json:"role"`
}

// Validate checks that the key names a patient and a known role.
func (k Key) Validate() error {
	if strings.TrimSpace(k.PatientID) == "" {
		return fmt.Errorf("draft key: patient id is required")
	}
	if !k.Role.Valid() {
		return fmt.Errorf("draft key: invalid role %q", k.Role)
	}
	return nil
}

// IsVisitNote reports whether the key addresses a visit note draft.
func (k Key) IsVisitNote() bool {
	return k.Date != ""
}

// StorageKey encodes the key as a flat string. Every component is escaped, so
// a separator inside a patient id cannot collide with another key.
func (k Key) StorageKey() string {
	return strings.Join([]string{
		url.QueryEscape(k.PatientID),
		url.QueryEscape(k.Date),
		url.QueryEscape(string(k.Role)),
	}, keySeparator)
}

// ParseStorageKey reverses StorageKey.
func ParseStorageKey(s string) (Key, error) {
	parts := strings.Split(s, keySeparator)
	if len(parts) != 3 {
		return Key{}, fmt.Errorf("malformed draft storage key %q", s)
	}
	var out [3]string
	for i, p := range parts {
		v, err := url.QueryUnescape(p)
		if err != nil {
			return Key{}, fmt.Errorf("malformed draft storage key %q: %w", s, err)
		}
		out[i] = v
	}
	return Key{PatientID: out[0], Date: out[1], Role: roster.Role(out[2])}, nil
}

// Draft is an unsaved form. Data is the form content as entered.
type Draft struct {
	Key        Key             `json:"key"`
	Data       json.RawMessage `json:"data"`
	IsComplete bool            `json:"isComplete"`
	SavedAt    time.Time       `json:"savedAt"`
}
