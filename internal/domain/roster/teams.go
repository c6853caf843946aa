package roster

import (
	"fmt"
	"strings"
)

var (
	doctorLabels = []string{"doctor", "physician", "طبيب", "طبيبة"}
	nurseLabels  = []string{"nurse", "ممرض", "ممرضة", "تمريض"}
)

// IsDoctor reports whether the profession label names a physician.
func (s *Staff) IsDoctor() bool { return matchesLabel(s.Profession, doctorLabels) }

// IsNurse reports whether the profession label names a nurse.
func (s *Staff) IsNurse() bool { return matchesLabel(s.Profession, nurseLabels) }

func matchesLabel(profession string, labels []string) bool {
	p := strings.ToLower(profession)
	for _, l := range labels {
		if strings.Contains(p, l) {
			return true
		}
	}
	return false
}

// BuildTeams pairs the i-th doctor with the i-th nurse, in staff order, until
// either pool runs out. Unpaired staff stay off the teams.
func BuildTeams(staff []Staff, newID func() string) []Team {
	var doctors, nurses []Staff
	for _, s := range staff {
		switch {
		case s.IsDoctor():
			doctors = append(doctors, s)
		case s.IsNurse():
			nurses = append(nurses, s)
		}
	}
	n := min(len(doctors), len(nurses))
	teams := make([]Team, 0, n)
	for i := 0; i < n; i++ {
		teams = append(teams, Team{
			ID:      newID(),
			Name:    fmt.Sprintf("Team %d", i+1),
			Members: []Staff{doctors[i], nurses[i]},
		})
	}
	return teams
}
