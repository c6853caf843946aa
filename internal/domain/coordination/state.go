package coordination

import (
	"github.com/ehr/homecare/internal/domain/roster"
	"github.com/ehr/homecare/internal/domain/visit"
)

// State is the whole coordination state. Transitions never modify a State in
// place: every changed collection is a new slice.
type State struct {
	Patients      []roster.Patient     `json:"patients"`
	Staff         []roster.Staff       `json:"staff"`
	Areas         []string             `json:"areas"`
	Teams         []roster.Team        `json:"teams"`
	CriticalCases roster.CriticalCases `json:"criticalCases"`
	Filters       roster.Filters       `json:"filters"`
	Selection     Selection            `json:"selection"`
	Visits        []visit.Visit        `json:"visits"`
	CustomLists   []CustomList         `json:"customLists"`
	CurrentRole   roster.Role          `json:"currentRole"`
	Loading       bool                 `json:"loading"`
	LoadWarning   string               `json:"loadWarning,omitempty"`

	// patientsRev changes whenever Patients is replaced.
	patientsRev uint64
}

// CustomList is a named snapshot of patient IDs taken from a selection. It is
// not re-evaluated when the roster changes.
type CustomList struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	PatientIDs []string `json:"patientIds"`
}

// InitialState is the state before the bundle has loaded.
func InitialState() State {
	return State{
		Patients:      []roster.Patient{},
		Staff:         []roster.Staff{},
		Areas:         []string{},
		Teams:         []roster.Team{},
		CriticalCases: roster.EmptyCriticalCases(),
		Filters:       roster.EmptyFilters(),
		Selection:     Selection{},
		Visits:        []visit.Visit{},
		CustomLists:   []CustomList{},
		CurrentRole:   roster.RoleDoctor,
		Loading:       true,
	}
}

// Patient looks up a patient by national ID.
func (s State) Patient(id string) (roster.Patient, bool) {
	for _, p := range s.Patients {
		if p.ID == id {
			return p, true
		}
	}
	return roster.Patient{}, false
}

// Visit looks up a visit by key.
func (s State) Visit(k visit.Key) (visit.Visit, bool) {
	for _, v := range s.Visits {
		if v.Key() == k {
			return v, true
		}
	}
	return visit.Visit{}, false
}

// Team looks up a team by id.
func (s State) Team(id string) (roster.Team, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return roster.Team{}, false
}

// Selection is an ordered set of patient IDs.
type Selection []string

// NewSelection builds a selection from ids, dropping duplicates while keeping
// first-seen order.
func NewSelection(ids []string) Selection {
	seen := make(map[string]struct{}, len(ids))
	out := make(Selection, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Has reports whether id is selected.
func (s Selection) Has(id string) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

// Toggle returns a new selection with id removed when present, added when
// absent.
func (s Selection) Toggle(id string) Selection {
	return Selection(roster.Toggle([]string(s), id))
}

// Set returns the selection as a set, for order-insensitive comparison.
func (s Selection) Set() map[string]struct{} {
	m := make(map[string]struct{}, len(s))
	for _, id := range s {
		m[id] = struct{}{}
	}
	return m
}
