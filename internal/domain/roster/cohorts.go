package roster

// CriticalCases groups patient IDs by high-attention clinical flag. Cohorts
// are independent and a patient may appear in several.
type CriticalCases struct {
	Catheter     []string `json:"catheter"`
	PressureSore []string `json:"pressureSore"`
	TubeFeeding  []string `json:"tubeFeeding"`
	FallRisk     []string `json:"fallRisk"`
	IVTherapy    []string `json:"ivTherapy"`
	Ventilation  []string `json:"ventilation"`
}

// EmptyCriticalCases returns cohorts with every list non-nil.
func EmptyCriticalCases() CriticalCases {
	return CriticalCases{
		Catheter:     []string{},
		PressureSore: []string{},
		TubeFeeding:  []string{},
		FallRisk:     []string{},
		IVTherapy:    []string{},
		Ventilation:  []string{},
	}
}

// Cohort pairs a display name with a member list, in report order.
type Cohort struct {
	Name       string
	PatientIDs []string
}

// Cohorts lists the critical cohorts in report order.
func (c CriticalCases) Cohorts() []Cohort {
	return []Cohort{
		{Name: "Catheter", PatientIDs: c.Catheter},
		{Name: "Pressure sore", PatientIDs: c.PressureSore},
		{Name: "Tube feeding", PatientIDs: c.TubeFeeding},
		{Name: "Fall risk", PatientIDs: c.FallRisk},
		{Name: "IV therapy", PatientIDs: c.IVTherapy},
		{Name: "Ventilation", PatientIDs: c.Ventilation},
	}
}

// ComputeCriticalCases builds every cohort in a single pass over patients.
func ComputeCriticalCases(patients []Patient) CriticalCases {
	cc := EmptyCriticalCases()
	for i := range patients {
		p := &patients[i]
		if p.HasCatheter {
			cc.Catheter = append(cc.Catheter, p.ID)
		}
		if p.Wounds.PressureSores > 0 {
			cc.PressureSore = append(cc.PressureSore, p.ID)
		}
		if p.HasTube {
			cc.TubeFeeding = append(cc.TubeFeeding, p.ID)
		}
		if p.FallRisk {
			cc.FallRisk = append(cc.FallRisk, p.ID)
		}
		if p.IVTherapy {
			cc.IVTherapy = append(cc.IVTherapy, p.ID)
		}
		if p.Ventilation {
			cc.Ventilation = append(cc.Ventilation, p.ID)
		}
	}
	return cc
}
