package coordination

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/homecare/internal/domain/roster"
	"github.com/ehr/homecare/internal/domain/visit"
)

// Reducer applies actions to a State. It never panics on a payload and
// returns the input unchanged for actions it does not recognize.
type Reducer struct {
	NewID func() string
	Now   func() time.Time
}

// NewReducer returns a reducer using random UUIDs and the wall clock.
func NewReducer() *Reducer {
	return &Reducer{NewID: uuid.NewString, Now: time.Now}
}

// Reduce returns the state that follows s after a.
func (r *Reducer) Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetSearch:
		s.Filters = s.Filters.Normalize()
		s.Filters.Search = a.Text
	case ToggleAreaFilter:
		s.Filters = s.Filters.Normalize()
		s.Filters.Areas = roster.Toggle(s.Filters.Areas, a.Area)
	case ToggleTagFilter:
		s.Filters = s.Filters.Normalize()
		s.Filters.Tags = roster.Toggle(s.Filters.Tags, a.Tag)
	case ToggleSexFilter:
		s.Filters = s.Filters.Normalize()
		s.Filters.Sex = roster.Toggle(s.Filters.Sex, a.Sex)
	case ToggleRiskFilter:
		s.Filters = s.Filters.Normalize()
		s.Filters.Risk = roster.Toggle(s.Filters.Risk, a.Risk)
	case ClearFilters:
		s.Filters = roster.EmptyFilters()
	case TogglePatientSelection:
		s.Selection = s.Selection.Toggle(a.PatientID)
	case ClearSelections:
		s.Selection = Selection{}
	case SelectAllFiltered:
		s.Selection = NewSelection(a.PatientIDs)
	case SetRole:
		s.CurrentRole = a.Role
	case AssignToVisits:
		s = r.assignToVisits(s, a)
	case SaveVisitNote:
		s = r.saveVisitNote(s, a)
	case SaveAssessment:
		s = r.saveAssessment(s, a)
	case LogContactAttempt:
		s = updatePatient(s, a.PatientID, func(p roster.Patient) roster.Patient {
			attempts := make([]roster.ContactAttempt, 0, len(p.ContactAttempts)+1)
			attempts = append(attempts, a.ContactAttempt)
			p.ContactAttempts = append(attempts, p.ContactAttempts...)
			return p
		})
	case CancelVisit:
		s = cancelVisit(s, visit.Key{PatientID: a.PatientID, Date: a.Date})
	case ImportState:
		s = importState(s, a.Snapshot)
	case CreateCustomList:
		s = r.createCustomList(s, a)
	case DeleteCustomList:
		s = deleteCustomList(s, a.ID)
	case ApplyCustomList:
		for _, l := range s.CustomLists {
			if l.ID == a.ID {
				s.Selection = NewSelection(l.PatientIDs)
				break
			}
		}
	case AddPatient:
		s = addPatient(s, a.Patient)
	case SetPatientStatus:
		if a.Status != roster.StatusActive && a.Status != roster.StatusDeceased {
			return s
		}
		s = updatePatient(s, a.PatientID, func(p roster.Patient) roster.Patient {
			p.Status = a.Status
			return p
		})
	}
	return s
}

func (r *Reducer) assignToVisits(s State, a AssignToVisits) State {
	existing := visit.KeySet(s.Visits)
	visits := make([]visit.Visit, len(s.Visits), len(s.Visits)+len(a.PatientIDs))
	copy(visits, s.Visits)
	for _, id := range a.PatientIDs {
		k := visit.Key{PatientID: id, Date: a.Date}
		if _, scheduled := existing[k]; scheduled {
			continue
		}
		existing[k] = struct{}{}
		visits = append(visits, visit.New(id, a.Date, a.TeamID))
	}
	s.Visits = visits
	s.Selection = Selection{}
	return s
}

func (r *Reducer) saveVisitNote(s State, a SaveVisitNote) State {
	k := a.Key()
	idx := -1
	for i := range s.Visits {
		if s.Visits[i].Key() == k {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}
	note := a.Note
	if note.SavedAt.IsZero() {
		note.SavedAt = r.Now().UTC()
	}
	visits := make([]visit.Visit, len(s.Visits))
	copy(visits, s.Visits)
	visits[idx] = visits[idx].WithNote(a.Role, note, a.User)
	s.Visits = visits
	return s
}

func (r *Reducer) saveAssessment(s State, a SaveAssessment) State {
	asm := a.Assessment
	if asm.ID == "" {
		asm.ID = r.NewID()
	}
	if asm.CreatedAt.IsZero() {
		asm.CreatedAt = r.Now().UTC()
	}
	return updatePatient(s, a.PatientID, func(p roster.Patient) roster.Patient {
		list := make([]roster.Assessment, 0, len(p.Assessments)+1)
		list = append(list, asm)
		p.Assessments = append(list, p.Assessments...)
		if score, ok := asm.NurseBradenScore(); ok {
			p.BradenScore = &score
		}
		return p
	})
}

func (r *Reducer) createCustomList(s State, a CreateCustomList) State {
	name := strings.TrimSpace(a.Name)
	if name == "" || len(s.Selection) == 0 {
		return s
	}
	ids := make([]string, len(s.Selection))
	copy(ids, s.Selection)
	lists := make([]CustomList, len(s.CustomLists), len(s.CustomLists)+1)
	copy(lists, s.CustomLists)
	s.CustomLists = append(lists, CustomList{ID: r.NewID(), Name: name, PatientIDs: ids})
	return s
}

func deleteCustomList(s State, id string) State {
	lists := make([]CustomList, 0, len(s.CustomLists))
	for _, l := range s.CustomLists {
		if l.ID != id {
			lists = append(lists, l)
		}
	}
	s.CustomLists = lists
	return s
}

func cancelVisit(s State, k visit.Key) State {
	visits := make([]visit.Visit, 0, len(s.Visits))
	for _, v := range s.Visits {
		if v.Key() != k {
			visits = append(visits, v)
		}
	}
	if len(visits) == len(s.Visits) {
		return s
	}
	s.Visits = visits
	return s
}

func addPatient(s State, p roster.Patient) State {
	if strings.TrimSpace(p.ID) == "" {
		return s
	}
	if _, exists := s.Patient(p.ID); exists {
		return s
	}
	patients := make([]roster.Patient, len(s.Patients), len(s.Patients)+1)
	copy(patients, s.Patients)
	s.Patients = append(patients, roster.Normalize(p))
	s.patientsRev++
	return s
}

// updatePatient rewrites the patient with the given id through fn. The
// state is returned unchanged when no patient matches.
func updatePatient(s State, id string, fn func(roster.Patient) roster.Patient) State {
	idx := -1
	for i := range s.Patients {
		if s.Patients[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}
	patients := make([]roster.Patient, len(s.Patients))
	copy(patients, s.Patients)
	p := fn(roster.Normalize(patients[idx]))
	p.ID = id
	patients[idx] = roster.Normalize(p)
	s.Patients = patients
	s.patientsRev++
	return s
}

func importState(s State, snap Snapshot) State {
	if !snap.ready() {
		return s
	}
	next := State{
		Patients:    roster.NormalizeAll(snap.Patients),
		Staff:       orEmpty(snap.Staff),
		Areas:       orEmpty(snap.Areas),
		Teams:       orEmpty(snap.Teams),
		Filters:     snap.Filters.Normalize(),
		Selection:   NewSelection(snap.Selection),
		Visits:      orEmpty(snap.Visits),
		CustomLists: orEmpty(snap.CustomLists),
		CurrentRole: snap.CurrentRole,
		LoadWarning: snap.LoadWarning,
		patientsRev: s.patientsRev + 1,
	}
	if snap.CriticalCases != nil {
		next.CriticalCases = normalizeCohorts(*snap.CriticalCases)
	} else {
		next.CriticalCases = roster.ComputeCriticalCases(next.Patients)
	}
	if next.CurrentRole == "" {
		next.CurrentRole = s.CurrentRole
	}
	return next
}

func normalizeCohorts(cc roster.CriticalCases) roster.CriticalCases {
	cc.Catheter = orEmpty(cc.Catheter)
	cc.PressureSore = orEmpty(cc.PressureSore)
	cc.TubeFeeding = orEmpty(cc.TubeFeeding)
	cc.FallRisk = orEmpty(cc.FallRisk)
	cc.IVTherapy = orEmpty(cc.IVTherapy)
	cc.Ventilation = orEmpty(cc.Ventilation)
	return cc
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
