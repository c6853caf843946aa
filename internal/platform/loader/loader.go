package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/homecare/internal/domain/coordination"
	"github.com/ehr/homecare/internal/domain/roster"
)

// FallbackWarning is shown when the bundle could not be loaded.
const FallbackWarning = "Patient data could not be loaded. Showing an empty roster; reload to try again."

// Bundle is the startup document. Its top-level keys are Arabic.
type Bundle struct {
	Patients []roster.Patient `json:"المرضى"`
	Staff    []roster.Staff   `json:"طاقم"`
	Areas    []string         `json:"الأحياء"`
}

// Dataset is a normalized bundle ready to seed the store.
type Dataset struct {
	Patients      []roster.Patient
	Staff         []roster.Staff
	Areas         []string
	Teams         []roster.Team
	CriticalCases roster.CriticalCases
	Warning       string
}

// Empty is the dataset used when loading fails.
func Empty(warning string) Dataset {
	return Dataset{
		Patients:      []roster.Patient{},
		Staff:         []roster.Staff{},
		Areas:         []string{},
		Teams:         []roster.Team{},
		CriticalCases: roster.EmptyCriticalCases(),
		Warning:       warning,
	}
}

type Loader struct {
	src    Source
	logger zerolog.Logger
	newID  func() string
}

func New(src Source, logger zerolog.Logger) *Loader {
	return &Loader{src: src, logger: logger, newID: uuid.NewString}
}

// Load fetches and decodes the bundle. It never fails: any fetch or parse
// error is logged and yields an empty dataset carrying FallbackWarning. There
// is no retry.
func (l *Loader) Load(ctx context.Context) Dataset {
	raw, err := l.src.Fetch(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Str("source", l.src.String()).Msg("bundle fetch failed, using empty dataset")
		return Empty(FallbackWarning)
	}
	b, err := Decode(raw)
	if err != nil {
		l.logger.Warn().Err(err).Str("source", l.src.String()).Msg("bundle parse failed, using empty dataset")
		return Empty(FallbackWarning)
	}
	ds := l.build(b)
	l.logger.Info().
		Int("patients", len(ds.Patients)).
		Int("staff", len(ds.Staff)).
		Int("teams", len(ds.Teams)).
		Str("source", l.src.String()).
		Msg("bundle loaded")
	return ds
}

// Decode parses a bundle document.
func Decode(raw []byte) (Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return Bundle{}, fmt.Errorf("decode bundle: %w", err)
	}
	return b, nil
}

func (l *Loader) build(b Bundle) Dataset {
	ds := Empty("")
	seen := make(map[string]struct{}, len(b.Patients))
	for _, p := range b.Patients {
		if strings.TrimSpace(p.ID) == "" {
			l.logger.Warn().Str("name", p.Name).Msg("skipping patient without id")
			continue
		}
		if _, dup := seen[p.ID]; dup {
			l.logger.Warn().Str("patient_id", p.ID).Msg("skipping duplicate patient id")
			continue
		}
		seen[p.ID] = struct{}{}
		ds.Patients = append(ds.Patients, roster.Normalize(p))
	}
	if b.Staff != nil {
		ds.Staff = b.Staff
	}
	if b.Areas != nil {
		ds.Areas = b.Areas
	}
	ds.Teams = roster.BuildTeams(ds.Staff, l.newID)
	ds.CriticalCases = roster.ComputeCriticalCases(ds.Patients)
	return ds
}

// Snapshot converts the dataset into the import that seeds the store.
func (ds Dataset) Snapshot() coordination.Snapshot {
	filters := roster.EmptyFilters()
	cc := ds.CriticalCases
	return coordination.Snapshot{
		Patients:      ds.Patients,
		Staff:         ds.Staff,
		Areas:         ds.Areas,
		Teams:         ds.Teams,
		CriticalCases: &cc,
		Filters:       &filters,
		Selection:     []string{},
		LoadWarning:   ds.Warning,
	}
}
