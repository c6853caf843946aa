package roster

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role identifies the clinical discipline behind an assessment, a visit note
// or a draft.
type Role string

const (
	RoleDoctor            Role = "doctor"
	RoleNurse             Role = "nurse"
	RolePhysicalTherapist Role = "pt"
	RoleSocialWorker      Role = "sw"
)

// Roles lists every clinical role in display order.
var Roles = []Role{RoleDoctor, RoleNurse, RolePhysicalTherapist, RoleSocialWorker}

// Valid reports whether r is one of the known clinical roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDoctor, RoleNurse, RolePhysicalTherapist, RoleSocialWorker:
		return true
	}
	return false
}

const (
	StatusActive   = "active"
	StatusDeceased = "deceased"
)

// Patient is one entry of the home-care roster. ID is the national ID and is
// never changed once the patient exists.
type Patient struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Phone           string           `json:"phone,omitempty"`
	Area            string           `json:"area,omitempty"`
	Sex             string           `json:"sex,omitempty"`
	Status          string           `json:"status"`
	HasCatheter     bool             `json:"hasCatheter"`
	HasTube         bool             `json:"hasTube"`
	FallRisk        bool             `json:"fallRisk"`
	IVTherapy       bool             `json:"ivTherapy"`
	Ventilation     bool             `json:"ventilation"`
	Wounds          WoundSummary     `json:"wounds"`
	BradenScore     *int             `json:"bradenScore"`
	AdmissionDate   string           `json:"admissionDate,omitempty"`
	Tags            []string         `json:"tags"`
	Assessments     []Assessment     `json:"assessments"`
	ContactAttempts []ContactAttempt `json:"contactAttempts"`
}

// WoundSummary holds wound counts taken from the latest nursing review.
type WoundSummary struct {
	PressureSores int `json:"pressureSores"`
	Other         int `json:"other"`
}

// IsDeceased reports whether the patient is excluded from the working roster.
func (p *Patient) IsDeceased() bool {
	return p.Status == StatusDeceased
}

// HasTag reports whether tag is attached to the patient.
func (p *Patient) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Normalize returns p with its collection fields defaulted to empty slices.
func Normalize(p Patient) Patient {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Assessments == nil {
		p.Assessments = []Assessment{}
	}
	if p.ContactAttempts == nil {
		p.ContactAttempts = []ContactAttempt{}
	}
	return p
}

// NormalizeAll normalizes every patient into a fresh slice.
func NormalizeAll(patients []Patient) []Patient {
	out := make([]Patient, len(patients))
	for i, p := range patients {
		out[i] = Normalize(p)
	}
	return out
}

// Staff is reference data loaded once with the bundle.
type Staff struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Profession string `json:"profession"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Team is a visiting crew composed at startup.
type Team struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Members []Staff `json:"members"`
}

// ContactAttempt records one attempt to reach the patient or family.
type ContactAttempt struct {
	Date      string `json:"date"`
	Type      string `json:"type"`
	StaffName string `json:"staffName"`
}

// Assessment is a saved clinical record. Exactly one of the role payloads is
// set, matching Role.
type Assessment struct {
	ID           string                `json:"id"`
	Role         Role                  `json:"role"`
	Date         string                `json:"date"`
	AssessorID   string                `json:"assessorId,omitempty"`
	AssessorName string                `json:"assessorName,omitempty"`
	Status       string                `json:"status,omitempty"`
	Plan         string                `json:"plan,omitempty"`
	Doctor       *DoctorAssessment     `json:"doctor,omitempty"`
	Nurse        *NurseAssessment      `json:"nurse,omitempty"`
	PT           *TherapyAssessment    `json:"pt,omitempty"`
	SW           *SocialWorkAssessment `json:"sw,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// Vitals are the bedside measurements shared by doctor and nurse forms.
// Values are kept as entered.
type Vitals struct {
	BloodPressure    string `json:"bloodPressure,omitempty"`
	HeartRate        string `json:"heartRate,omitempty"`
	RespiratoryRate  string `json:"respiratoryRate,omitempty"`
	Temperature      string `json:"temperature,omitempty"`
	OxygenSaturation string `json:"oxygenSaturation,omitempty"`
	BloodGlucose     string `json:"bloodGlucose,omitempty"`
}

type DoctorAssessment struct {
	Vitals        Vitals   `json:"vitals"`
	Diagnosis     string   `json:"diagnosis,omitempty"`
	Examination   string   `json:"examination,omitempty"`
	Medications   []string `json:"medications,omitempty"`
	Investigation string   `json:"investigation,omitempty"`
}

type WoundDetail struct {
	Location string `json:"location"`
	Stage    string `json:"stage,omitempty"`
	Size     string `json:"size,omitempty"`
	Dressing string `json:"dressing,omitempty"`
}

type NurseAssessment struct {
	Vitals      Vitals        `json:"vitals"`
	Wounds      []WoundDetail `json:"wounds,omitempty"`
	BradenScore string        `json:"bradenScore,omitempty"`
	Catheter    string        `json:"catheter,omitempty"`
	Feeding     string        `json:"feeding,omitempty"`
	Education   string        `json:"education,omitempty"`
}

type TherapyAssessment struct {
	Mobility        string `json:"mobility,omitempty"`
	BarthelIndex    *int   `json:"barthelIndex,omitempty"`
	BalanceScore    *int   `json:"balanceScore,omitempty"`
	AssistiveDevice string `json:"assistiveDevice,omitempty"`
	Exercises       string `json:"exercises,omitempty"`
}

type SocialWorkAssessment struct {
	LivingSituation string `json:"livingSituation,omitempty"`
	Caregiver       string `json:"caregiver,omitempty"`
	FinancialStatus string `json:"financialStatus,omitempty"`
	Psychosocial    string `json:"psychosocial,omitempty"`
	Referrals       string `json:"referrals,omitempty"`
}

// Validate checks that the role is known and that the payload matches it.
func (a *Assessment) Validate() error {
	if !a.Role.Valid() {
		return fmt.Errorf("invalid assessment role: %q", a.Role)
	}
	set := 0
	for _, present := range []bool{a.Doctor != nil, a.Nurse != nil, a.PT != nil, a.SW != nil} {
		if present {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("assessment carries %d role payloads, want at most 1", set)
	}
	var ok bool
	switch a.Role {
	case RoleDoctor:
		ok = set == 0 || a.Doctor != nil
	case RoleNurse:
		ok = set == 0 || a.Nurse != nil
	case RolePhysicalTherapist:
		ok = set == 0 || a.PT != nil
	case RoleSocialWorker:
		ok = set == 0 || a.SW != nil
	}
	if !ok {
		return fmt.Errorf("assessment payload does not match role %q", a.Role)
	}
	return nil
}

// NurseBradenScore returns the Braden score recorded on a nurse assessment.
// ok is false for other roles, a missing score or a value that is not an
// integer.
func (a *Assessment) NurseBradenScore() (score int, ok bool) {
	if a.Role != RoleNurse || a.Nurse == nil {
		return 0, false
	}
	raw := strings.TrimSpace(a.Nurse.BradenScore)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
