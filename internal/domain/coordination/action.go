package coordination

import (
	"encoding/json"
	"fmt"

	"github.com/ehr/homecare/internal/domain/roster"
	"github.com/ehr/homecare/internal/domain/visit"
)

// Kind is the tag carried by every action.
type Kind string

const (
	KindSetSearch              Kind = "SET_SEARCH"
	KindToggleAreaFilter       Kind = "TOGGLE_AREA_FILTER"
	KindToggleTagFilter        Kind = "TOGGLE_TAG_FILTER"
	KindToggleSexFilter        Kind = "TOGGLE_SEX_FILTER"
	KindToggleRiskFilter       Kind = "TOGGLE_RISK_FILTER"
	KindClearFilters           Kind = "CLEAR_FILTERS"
	KindTogglePatientSelection Kind = "TOGGLE_PATIENT_SELECTION"
	KindClearSelections        Kind = "CLEAR_SELECTIONS"
	KindSelectAllFiltered      Kind = "SELECT_ALL_FILTERED"
	KindSetRole                Kind = "SET_ROLE"
	KindAssignToVisits         Kind = "ASSIGN_TO_VISITS"
	KindSaveVisitNote          Kind = "SAVE_VISIT_NOTE"
	KindSaveAssessment         Kind = "SAVE_ASSESSMENT"
	KindLogContactAttempt      Kind = "LOG_CONTACT_ATTEMPT"
	KindCancelVisit            Kind = "CANCEL_VISIT"
	KindImportState            Kind = "IMPORT_STATE"
	KindCreateCustomList       Kind = "CREATE_CUSTOM_LIST"
	KindDeleteCustomList       Kind = "DELETE_CUSTOM_LIST"
	KindApplyCustomList        Kind = "APPLY_CUSTOM_LIST"
	KindAddPatient             Kind = "ADD_PATIENT"
	KindSetPatientStatus       Kind = "SET_PATIENT_STATUS"
)

// Action is one state transition request.
type Action interface {
	Kind() Kind
}

type SetSearch struct{ Text string }

type ToggleAreaFilter struct{ Area string }

type ToggleTagFilter struct{ Tag string }

type ToggleSexFilter struct{ Sex string }

type ToggleRiskFilter struct{ Risk roster.Risk }

type ClearFilters struct{}

type TogglePatientSelection struct{ PatientID string }

type ClearSelections struct{}

// SelectAllFiltered replaces the selection with PatientIDs. The caller
// computes the filtered set.
type SelectAllFiltered struct{ PatientIDs []string }

type SetRole struct{ Role roster.Role }

type AssignToVisits struct {
	PatientIDs []string `json:"patientIds"`
	Date       string   `json:"date"`
	TeamID     string   `json:"teamId"`
}

// SaveVisitNote targets a visit by PatientID and Date. VisitID is the legacy
// flat id and is only consulted when PatientID is empty.
type SaveVisitNote struct {
	VisitID   string      `json:"visitId,omitempty"`
	PatientID string      `json:"patientId,omitempty"`
	Date      string      `json:"date,omitempty"`
	Role      roster.Role `json:"role"`
	Note      visit.Note  `json:"note"`
	User      string      `json:"user"`
}

// Key resolves the target visit.
func (a SaveVisitNote) Key() visit.Key {
	if a.PatientID != "" {
		return visit.Key{PatientID: a.PatientID, Date: a.Date}
	}
	k, _ := visit.ParseLegacyID(a.VisitID)
	return k
}

type SaveAssessment struct {
	PatientID  string            `json:"patientId"`
	Assessment roster.Assessment `json:"assessment"`
}

type LogContactAttempt struct {
	PatientID      string                `json:"patientId"`
	ContactAttempt roster.ContactAttempt `json:"contactAttempt"`
}

type CancelVisit struct {
	PatientID string `json:"patientId"`
	Date      string `json:"date"`
}

// ImportState replaces the state with Snapshot.
type ImportState struct{ Snapshot Snapshot }

type CreateCustomList struct {
	Name string `json:"name"`
}

type DeleteCustomList struct {
	ID string `json:"id"`
}

type ApplyCustomList struct {
	ID string `json:"id"`
}

type AddPatient struct{ Patient roster.Patient }

type SetPatientStatus struct {
	PatientID string `json:"patientId"`
	Status    string `json:"status"`
}

// Unknown carries an unrecognized tag. The reducer ignores it.
type Unknown struct{ Type string }

func (SetSearch) Kind() Kind              { return KindSetSearch }
func (ToggleAreaFilter) Kind() Kind       { return KindToggleAreaFilter }
func (ToggleTagFilter) Kind() Kind        { return KindToggleTagFilter }
func (ToggleSexFilter) Kind() Kind        { return KindToggleSexFilter }
func (ToggleRiskFilter) Kind() Kind       { return KindToggleRiskFilter }
func (ClearFilters) Kind() Kind           { return KindClearFilters }
func (TogglePatientSelection) Kind() Kind { return KindTogglePatientSelection }
func (ClearSelections) Kind() Kind        { return KindClearSelections }
func (SelectAllFiltered) Kind() Kind      { return KindSelectAllFiltered }
func (SetRole) Kind() Kind                { return KindSetRole }
func (AssignToVisits) Kind() Kind         { return KindAssignToVisits }
func (SaveVisitNote) Kind() Kind          { return KindSaveVisitNote }
func (SaveAssessment) Kind() Kind         { return KindSaveAssessment }
func (LogContactAttempt) Kind() Kind      { return KindLogContactAttempt }
func (CancelVisit) Kind() Kind            { return KindCancelVisit }
func (ImportState) Kind() Kind            { return KindImportState }
func (CreateCustomList) Kind() Kind       { return KindCreateCustomList }
func (DeleteCustomList) Kind() Kind       { return KindDeleteCustomList }
func (ApplyCustomList) Kind() Kind        { return KindApplyCustomList }
func (AddPatient) Kind() Kind             { return KindAddPatient }
func (SetPatientStatus) Kind() Kind       { return KindSetPatientStatus }
func (u Unknown) Kind() Kind              { return Kind(u.Type) }

// Envelope is the wire form of an action.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeAction parses an action envelope. Unrecognized types decode to
// Unknown; a payload that does not fit its type is an error.
func DecodeAction(data []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("action type is required")
	}
	return decodePayload(Kind(env.Type), env.Payload)
}

func decodePayload(kind Kind, payload json.RawMessage) (Action, error) {
	var (
		a      Action
		target interface{}
	)
	switch kind {
	case KindSetSearch:
		v := &SetSearch{}
		a, target = v, &v.Text
	case KindToggleAreaFilter:
		v := &ToggleAreaFilter{}
		a, target = v, &v.Area
	case KindToggleTagFilter:
		v := &ToggleTagFilter{}
		a, target = v, &v.Tag
	case KindToggleSexFilter:
		v := &ToggleSexFilter{}
		a, target = v, &v.Sex
	case KindToggleRiskFilter:
		v := &ToggleRiskFilter{}
		a, target = v, &v.Risk
	case KindClearFilters:
		return ClearFilters{}, nil
	case KindTogglePatientSelection:
		v := &TogglePatientSelection{}
		a, target = v, &v.PatientID
	case KindClearSelections:
		return ClearSelections{}, nil
	case KindSelectAllFiltered:
		v := &SelectAllFiltered{}
		a, target = v, &v.PatientIDs
	case KindSetRole:
		v := &SetRole{}
		a, target = v, &v.Role
	case KindAssignToVisits:
		v := &AssignToVisits{}
		a, target = v, v
	case KindSaveVisitNote:
		v := &SaveVisitNote{}
		a, target = v, v
	case KindSaveAssessment:
		v := &SaveAssessment{}
		a, target = v, v
	case KindLogContactAttempt:
		v := &LogContactAttempt{}
		a, target = v, v
	case KindCancelVisit:
		v := &CancelVisit{}
		a, target = v, v
	case KindImportState:
		v := &ImportState{}
		a, target = v, &v.Snapshot
	case KindCreateCustomList:
		v := &CreateCustomList{}
		a, target = v, v
	case KindDeleteCustomList:
		v := &DeleteCustomList{}
		a, target = v, v
	case KindApplyCustomList:
		v := &ApplyCustomList{}
		a, target = v, v
	case KindAddPatient:
		v := &AddPatient{}
		a, target = v, &v.Patient
	case KindSetPatientStatus:
		v := &SetPatientStatus{}
		a, target = v, v
	default:
		return Unknown{Type: string(kind)}, nil
	}
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
	}
	return deref(a), nil
}

// deref turns the pointer used for decoding back into the value action type.
func deref(a Action) Action {
	switch v := a.(type) {
	case *SetSearch:
		return *v
	case *ToggleAreaFilter:
		return *v
	case *ToggleTagFilter:
		return *v
	case *ToggleSexFilter:
		return *v
	case *ToggleRiskFilter:
		return *v
	case *TogglePatientSelection:
		return *v
	case *SelectAllFiltered:
		return *v
	case *SetRole:
		return *v
	case *AssignToVisits:
		return *v
	case *SaveVisitNote:
		return *v
	case *SaveAssessment:
		return *v
	case *LogContactAttempt:
		return *v
	case *CancelVisit:
		return *v
	case *ImportState:
		return *v
	case *CreateCustomList:
		return *v
	case *DeleteCustomList:
		return *v
	case *ApplyCustomList:
		return *v
	case *AddPatient:
		return *v
	case *SetPatientStatus:
		return *v
	}
	return a
}
