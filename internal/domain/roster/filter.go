package roster

import (
	"slices"
	"strings"
	"time"
)

// Filters is the roster filter set. Areas, Sex and Risk each match any of
// their values; Tags requires every selected tag. All non-empty criteria must
// hold together.
type Filters struct {
	Search string   `json:"search"`
	Areas  []string `json:"areas"`
	Tags   []string `json:"tags"`
	Sex    []string `json:"sex"`
	Risk   []Risk   `json:"risk"`
}

// EmptyFilters returns a filter set with every list non-nil and empty.
func EmptyFilters() Filters {
	return Filters{Areas: []string{}, Tags: []string{}, Sex: []string{}, Risk: []Risk{}}
}

// Normalize replaces nil lists with empty ones.
func (f Filters) Normalize() Filters {
	if f.Areas == nil {
		f.Areas = []string{}
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}
	if f.Sex == nil {
		f.Sex = []string{}
	}
	if f.Risk == nil {
		f.Risk = []Risk{}
	}
	return f
}

// Equal reports whether both filter sets hold the same values in the same order.
func (f Filters) Equal(o Filters) bool {
	return f.Search == o.Search &&
		slices.Equal(f.Areas, o.Areas) &&
		slices.Equal(f.Tags, o.Tags) &&
		slices.Equal(f.Sex, o.Sex) &&
		slices.Equal(f.Risk, o.Risk)
}

// IsZero reports whether no criterion is active.
func (f Filters) IsZero() bool {
	return f.Search == "" && len(f.Areas) == 0 && len(f.Tags) == 0 && len(f.Sex) == 0 && len(f.Risk) == 0
}

// Toggle returns a copy of values with v removed when present, or appended
// when absent.
func Toggle[T comparable](values []T, v T) []T {
	out := make([]T, 0, len(values)+1)
	found := false
	for _, x := range values {
		if x == v {
			found = true
			continue
		}
		out = append(out, x)
	}
	if !found {
		out = append(out, v)
	}
	return out
}

// FilterPatients returns the living patients matching f, in input order.
func FilterPatients(patients []Patient, f Filters, now time.Time) []Patient {
	search := strings.ToLower(f.Search)
	out := make([]Patient, 0, len(patients))
	for i := range patients {
		p := &patients[i]
		if p.IsDeceased() {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(p.ID, f.Search) {
			continue
		}
		if len(f.Areas) > 0 && !slices.Contains(f.Areas, p.Area) {
			continue
		}
		if len(f.Tags) > 0 && !hasAllTags(p, f.Tags) {
			continue
		}
		if len(f.Sex) > 0 && !slices.Contains(f.Sex, p.Sex) {
			continue
		}
		if len(f.Risk) > 0 && !slices.Contains(f.Risk, ClassifyRisk(p.AdmissionDate, now)) {
			continue
		}
		out = append(out, *p)
	}
	return out
}

func hasAllTags(p *Patient, tags []string) bool {
	for _, t := range tags {
		if !p.HasTag(t) {
			return false
		}
	}
	return true
}
