package coordination

// TopicState receives every change.
const TopicState = "state"

// PatientTopic is the per-patient notification topic.
func PatientTopic(patientID string) string {
	return "patients/" + patientID
}

// Topics lists the notification topics a dispatched action touches.
func Topics(a Action) []string {
	topics := []string{TopicState}
	add := func(id string) {
		if id != "" {
			topics = append(topics, PatientTopic(id))
		}
	}
	switch a := a.(type) {
	case AssignToVisits:
		for _, id := range a.PatientIDs {
			add(id)
		}
	case SaveVisitNote:
		add(a.Key().PatientID)
	case SaveAssessment:
		add(a.PatientID)
	case LogContactAttempt:
		add(a.PatientID)
	case CancelVisit:
		add(a.PatientID)
	case AddPatient:
		add(a.Patient.ID)
	case SetPatientStatus:
		add(a.PatientID)
	}
	return topics
}
