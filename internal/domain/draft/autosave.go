package draft

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type pendingDraft struct {
	timer      *time.Timer
	data       json.RawMessage
	isComplete bool
}

// Autosaver debounces draft writes per key. Each Touch cancels the key's
// pending write and schedules a new one delay later, so a draft is written
// once its form has been idle for delay.
type Autosaver struct {
	svc    *Service
	delay  time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	pending map[Key]*pendingDraft
	stopped bool
}

func NewAutosaver(svc *Service, delay time.Duration, logger zerolog.Logger) *Autosaver {
	return &Autosaver{
		svc:     svc,
		delay:   delay,
		logger:  logger,
		pending: make(map[Key]*pendingDraft),
	}
}

// Touch records an edit. It returns false without scheduling anything when
// autosave is turned off or the autosaver is stopped.
func (a *Autosaver) Touch(ctx context.Context, k Key, data json.RawMessage, isComplete bool) (bool, error) {
	if err := k.Validate(); err != nil {
		return false, err
	}
	enabled, err := a.svc.AutosaveEnabled(ctx)
	if err != nil {
		return false, err
	}
	if !enabled {
		return false, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return false, nil
	}
	if p, ok := a.pending[k]; ok {
		p.timer.Stop()
	}
	p := &pendingDraft{data: append(json.RawMessage(nil), data...), isComplete: isComplete}
	p.timer = time.AfterFunc(a.delay, func() { a.fire(k, p) })
	a.pending[k] = p
	return true, nil
}

// Pending returns the number of scheduled writes.
func (a *Autosaver) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

func (a *Autosaver) fire(k Key, p *pendingDraft) {
	a.mu.Lock()
	if a.pending[k] != p {
		// rescheduled or flushed in the meantime
		a.mu.Unlock()
		return
	}
	delete(a.pending, k)
	a.mu.Unlock()

	if _, err := a.svc.Save(context.Background(), k, p.data, p.isComplete); err != nil {
		a.logger.Error().Err(err).Str("patient_id", k.PatientID).Str("role", string(k.Role)).Msg("autosave failed")
		return
	}
	a.logger.Debug().Str("patient_id", k.PatientID).Str("role", string(k.Role)).Msg("draft autosaved")
}

// Flush writes every pending draft immediately.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	batch := a.pending
	a.pending = make(map[Key]*pendingDraft)
	a.mu.Unlock()

	var errs []error
	for k, p := range batch {
		p.timer.Stop()
		if _, err := a.svc.Save(ctx, k, p.data, p.isComplete); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop cancels every pending write. Later Touch calls are ignored.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	for k, p := range a.pending {
		p.timer.Stop()
		delete(a.pending, k)
	}
}
