package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/homecare/internal/domain/coordination"
)

const patientTopicPrefix = "patients/"

// Forward publishes every store change to pub and returns a function that
// stops forwarding. Patient topics carry the patient's current record.
func Forward(store *coordination.Store, pub EventPublisher, now func() time.Time, logger zerolog.Logger) (stop func()) {
	return store.Subscribe(func(c coordination.Change) {
		ts := now().UTC()
		for _, topic := range coordination.Topics(c.Action) {
			ev := Event{
				Type:      string(c.Action.Kind()),
				Topic:     topic,
				Timestamp: ts,
			}
			if id, ok := strings.CutPrefix(topic, patientTopicPrefix); ok {
				ev.PatientID = id
				if p, found := c.State.Patient(id); found {
					data, err := json.Marshal(p)
					if err != nil {
						logger.Warn().Err(err).Str("patient_id", id).Msg("failed to marshal patient for websocket event")
					} else {
						ev.Data = data
					}
				}
			}
			if err := pub.Publish(context.Background(), ev); err != nil {
				logger.Warn().Err(err).Str("topic", topic).Str("type", ev.Type).Msg("failed to publish store change")
			}
		}
	})
}
