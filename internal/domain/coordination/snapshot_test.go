package coordination

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ehr/homecare/internal/domain/roster"
	"github.com/ehr/homecare/internal/domain/visit"
)

func TestExportImportRoundTrip(t *testing.T) {
	r := newTestReducer()
	s := seededState()
	s = r.Reduce(s, ToggleAreaFilter{Area: "North"})
	s = r.Reduce(s, AssignToVisits{PatientIDs: []string{"p1", "p2"}, Date: "2026-05-21", TeamID: "t1"})
	s = r.Reduce(s, SaveVisitNote{PatientID: "p1", Date: "2026-05-21", Role: roster.RoleDoctor, Note: visit.Note{Text: "stable"}, User: "dr"})
	s = r.Reduce(s, SelectAllFiltered{PatientIDs: []string{"p3", "p1"}})
	s = r.Reduce(s, CreateCustomList{Name: "Follow up"})
	s = r.Reduce(s, SetRole{Role: roster.RoleNurse})
	s = r.Reduce(s, SaveAssessment{PatientID: "p2", Assessment: roster.Assessment{
		Role: roster.RoleNurse, Date: "2026-05-19", AssessorName: "Sara", Plan: "turn every 2h",
		Nurse: &roster.NurseAssessment{BradenScore: "14"},
	}})
	s = r.Reduce(s, LogContactAttempt{PatientID: "p3", ContactAttempt: roster.ContactAttempt{Date: "2026-05-19", Type: "phone", StaffName: "Sara"}})

	data, err := json.Marshal(Export(s, fixedNow))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := r.Reduce(InitialState(), ImportState{Snapshot: snap})

	if !reflect.DeepEqual(got.Selection.Set(), s.Selection.Set()) {
		t.Errorf("selection: expected %v, got %v", s.Selection, got.Selection)
	}
	if !got.Filters.Equal(s.Filters) {
		t.Errorf("filters: expected %+v, got %+v", s.Filters, got.Filters)
	}
	if got.CurrentRole != roster.RoleNurse {
		t.Errorf("expected role nurse, got %s", got.CurrentRole)
	}
	if !reflect.DeepEqual(got.Patients, s.Patients) {
		t.Errorf("patients differ:\nexpected %+v\ngot      %+v", s.Patients, got.Patients)
	}
	if !reflect.DeepEqual(got.Visits, s.Visits) {
		t.Errorf("visits differ:\nexpected %+v\ngot      %+v", s.Visits, got.Visits)
	}
	if len(got.CustomLists) != 1 {
		t.Errorf("expected 1 custom list, got %d", len(got.CustomLists))
	}
	p2, _ := got.Patient("p2")
	if p2.BradenScore == nil || *p2.BradenScore != 14 || len(p2.Assessments) != 1 || p2.Assessments[0].Nurse == nil {
		t.Errorf("assessment not restored: %+v", p2)
	}
	p3, _ := got.Patient("p3")
	if len(p3.ContactAttempts) != 1 || p3.ContactAttempts[0].Type != "phone" {
		t.Errorf("contact attempt not restored: %+v", p3.ContactAttempts)
	}
	v, ok := got.Visit(visit.Key{PatientID: "p1", Date: "2026-05-21"})
	if !ok || v.Status != visit.StatusDoctorCompleted || v.DoctorNote == nil || v.DoctorNote.Text != "stable" {
		t.Errorf("visit not restored: %+v", v)
	}
	if got.Loading {
		t.Error("expected loading false after import")
	}
}

func TestExportFileName(t *testing.T) {
	got := ExportFileName(time.Date(2026, 3, 7, 23, 0, 0, 0, time.UTC))
	if got != "homecare-2026-03-07.json" {
		t.Errorf("expected homecare-2026-03-07.json, got %s", got)
	}
}

func TestDecodeSnapshot_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"patients":`,
		"no patients":     `{"filters":{}}`,
		"no filters":      `{"patients":[]}`,
		"blank id":        `{"patients":[{"id":""}],"filters":{}}`,
		"duplicate id":    `{"patients":[{"id":"a"},{"id":"a"}],"filters":{}}`,
		"duplicate visit": `{"patients":[{"id":"a"}],"filters":{},"visits":[{"patientId":"a","date":"2026-01-01"},{"patientId":"a","date":"2026-01-01"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(body))
			if !errors.Is(err, ErrInvalidSnapshot) {
				t.Errorf("expected ErrInvalidSnapshot, got %v", err)
			}
		})
	}
}

func TestDecodeSnapshot_MinimalIsAccepted(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"patients":[],"filters":{}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := newTestReducer().Reduce(seededState(), ImportState{Snapshot: snap})
	if len(s.Patients) != 0 {
		t.Errorf("expected empty roster, got %d", len(s.Patients))
	}
	if s.CurrentRole != roster.RoleDoctor {
		t.Errorf("expected role kept as doctor, got %s", s.CurrentRole)
	}
	if s.Filters.Areas == nil || s.CriticalCases.Catheter == nil {
		t.Error("expected normalized filters and cohorts")
	}
}
