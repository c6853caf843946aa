package visit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ehr/homecare/internal/domain/roster"
)

// Status is derived from which of the doctor and nurse notes are present.
type Status string

const (
	StatusScheduled       Status = "Scheduled"
	StatusDoctorCompleted Status = "DoctorCompleted"
	StatusNurseCompleted  Status = "NurseCompleted"
	StatusCompleted       Status = "Completed"
)

// Key identifies a visit. A patient has at most one visit per date.
type Key struct {
	PatientID string `json:"patientId"`
	Date      string `json:"date"`
}

// LegacyIDSeparator joins patient ID and date in the flat visit id format.
const LegacyIDSeparator = "_"

// LegacyID renders the key in the flat "patientId_date" format used by older
// clients. It is not reversible when PatientID contains the separator.
func (k Key) LegacyID() string {
	return k.PatientID + LegacyIDSeparator + k.Date
}

// ParseLegacyID splits a flat visit id on its first separator.
func ParseLegacyID(id string) (Key, bool) {
	patientID, date, ok := strings.Cut(id, LegacyIDSeparator)
	if !ok {
		return Key{PatientID: id}, false
	}
	return Key{PatientID: patientID, Date: date}, true
}

// Note is one clinician's record for a visit.
type Note struct {
	Text    string            `json:"text"`
	Fields  map[string]string `json:"fields,omitempty"`
	SavedAt time.Time         `json:"savedAt"`
}

// UnmarshalJSON accepts either a note object or a bare string, which is
// taken as the note text.
func (n *Note) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*n = Note{Text: text}
		return nil
	}
	type plain Note
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*n = Note(p)
	return nil
}

// Visit is a scheduled care encounter accumulating one note per role.
type Visit struct {
	PatientID       string `json:"patientId"`
	Date            string `json:"date"`
	TeamID          string `json:"teamId"`
	Status          Status `json:"status"`
	DoctorNote      *Note  `json:"doctorNote,omitempty"`
	NurseNote       *Note  `json:"nurseNote,omitempty"`
	PTNote          *Note  `json:"ptNote,omitempty"`
	SWNote          *Note  `json:"swNote,omitempty"`
	DoctorSignature string `json:"doctorSignature,omitempty"`
	NurseSignature  string `json:"nurseSignature,omitempty"`
	PTSignature     string `json:"ptSignature,omitempty"`
	SWSignature     string `json:"swSignature,omitempty"`
}

// New returns a Scheduled visit with no notes.
func New(patientID, date, teamID string) Visit {
	return Visit{PatientID: patientID, Date: date, TeamID: teamID, Status: StatusScheduled}
}

// Key returns the visit's identity.
func (v *Visit) Key() Key {
	return Key{PatientID: v.PatientID, Date: v.Date}
}

// DeriveStatus computes the status from the doctor and nurse notes only.
// Physical therapy and social work notes do not advance the status.
func DeriveStatus(v *Visit) Status {
	switch {
	case v.DoctorNote != nil && v.NurseNote != nil:
		return StatusCompleted
	case v.DoctorNote != nil:
		return StatusDoctorCompleted
	case v.NurseNote != nil:
		return StatusNurseCompleted
	default:
		return StatusScheduled
	}
}

// WithNote returns a copy of v with the role's note and signature set and the
// status recomputed. Unknown roles leave v unchanged apart from the status.
func (v Visit) WithNote(role roster.Role, note Note, signedBy string) Visit {
	n := note
	switch role {
	case roster.RoleDoctor:
		v.DoctorNote, v.DoctorSignature = &n, signedBy
	case roster.RoleNurse:
		v.NurseNote, v.NurseSignature = &n, signedBy
	case roster.RolePhysicalTherapist:
		v.PTNote, v.PTSignature = &n, signedBy
	case roster.RoleSocialWorker:
		v.SWNote, v.SWSignature = &n, signedBy
	}
	v.Status = DeriveStatus(&v)
	return v
}

// NoteFor returns the note saved by role, if any.
func (v *Visit) NoteFor(role roster.Role) *Note {
	switch role {
	case roster.RoleDoctor:
		return v.DoctorNote
	case roster.RoleNurse:
		return v.NurseNote
	case roster.RolePhysicalTherapist:
		return v.PTNote
	case roster.RoleSocialWorker:
		return v.SWNote
	}
	return nil
}

// KeySet indexes visits by key.
func KeySet(visits []Visit) map[Key]struct{} {
	set := make(map[Key]struct{}, len(visits))
	for i := range visits {
		set[visits[i].Key()] = struct{}{}
	}
	return set
}

// OnDate returns the visits scheduled for date, in list order.
func OnDate(visits []Visit, date string) []Visit {
	out := make([]Visit, 0)
	for _, v := range visits {
		if v.Date == date {
			out = append(out, v)
		}
	}
	return out
}
