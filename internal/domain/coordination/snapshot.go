package coordination

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ehr/homecare/internal/domain/roster"
	"github.com/ehr/homecare/internal/domain/visit"
)

// ErrInvalidSnapshot is returned when an import payload is rejected.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is the export/import form of State. Patients and Filters must be
// present for an import to take effect.
type Snapshot struct {
	Patients      []roster.Patient      `json:"patients"`
	Staff         []roster.Staff        `json:"staff"`
	Areas         []string              `json:"areas"`
	Teams         []roster.Team         `json:"teams"`
	CriticalCases *roster.CriticalCases `json:"criticalCases,omitempty"`
	Filters       *roster.Filters       `json:"filters"`
	Selection     []string              `json:"selection"`
	Visits        []visit.Visit         `json:"visits"`
	CustomLists   []CustomList          `json:"customLists"`
	CurrentRole   roster.Role           `json:"currentRole"`
	LoadWarning   string                `json:"loadWarning,omitempty"`
	ExportedAt    *time.Time            `json:"exportedAt,omitempty"`
}

// Export converts s into its snapshot form.
func Export(s State, now time.Time) Snapshot {
	filters := s.Filters
	cc := s.CriticalCases
	ts := now.UTC()
	return Snapshot{
		Patients:      s.Patients,
		Staff:         s.Staff,
		Areas:         s.Areas,
		Teams:         s.Teams,
		CriticalCases: &cc,
		Filters:       &filters,
		Selection:     []string(s.Selection),
		Visits:        s.Visits,
		CustomLists:   s.CustomLists,
		CurrentRole:   s.CurrentRole,
		LoadWarning:   s.LoadWarning,
		ExportedAt:    &ts,
	}
}

// ExportFileName names an export file by the local calendar date.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("homecare-%s.json", now.Format("2006-01-02"))
}

// DecodeSnapshot parses and validates a user supplied export. Besides the
// required patients and filters it rejects blank or duplicate patient IDs and
// duplicate visits.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Validate checks the invariants an imported snapshot must hold.
func (snap *Snapshot) Validate() error {
	if snap.Patients == nil {
		return fmt.Errorf("%w: patients is required", ErrInvalidSnapshot)
	}
	if snap.Filters == nil {
		return fmt.Errorf("%w: filters is required", ErrInvalidSnapshot)
	}
	seen := make(map[string]struct{}, len(snap.Patients))
	for i, p := range snap.Patients {
		if p.ID == "" {
			return fmt.Errorf("%w: patient at index %d has no id", ErrInvalidSnapshot, i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate patient id %q", ErrInvalidSnapshot, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	keys := make(map[visit.Key]struct{}, len(snap.Visits))
	for _, v := range snap.Visits {
		k := v.Key()
		if _, dup := keys[k]; dup {
			return fmt.Errorf("%w: duplicate visit for patient %q on %s", ErrInvalidSnapshot, k.PatientID, k.Date)
		}
		keys[k] = struct{}{}
	}
	return nil
}

// ready reports whether the snapshot carries the fields an import requires.
func (snap *Snapshot) ready() bool {
	return snap.Patients != nil && snap.Filters != nil
}
