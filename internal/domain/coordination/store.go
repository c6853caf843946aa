package coordination

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/homecare/internal/domain/roster"
)

// Change is delivered to subscribers after every dispatch.
type Change struct {
	Action Action
	State  State
}

// Listener receives changes in dispatch order. A listener must not call
// Dispatch on the store that notified it.
type Listener func(Change)

// Store owns the canonical state. Dispatches run one at a time; each runs to
// completion, including subscriber notification, before the next starts.
type Store struct {
	reducer *Reducer
	logger  zerolog.Logger
	now     func() time.Time

	dispatchMu sync.Mutex

	mu    sync.RWMutex
	state State

	subMu     sync.Mutex
	listeners map[uint64]Listener
	nextSub   uint64

	memoMu sync.Mutex
	memo   filteredMemo
}

type filteredMemo struct {
	valid      bool
	patientRev uint64
	filters    roster.Filters
	day        string
	patients   []roster.Patient
}

// NewStore creates a store holding initial.
func NewStore(initial State, reducer *Reducer, logger zerolog.Logger) *Store {
	if reducer == nil {
		reducer = NewReducer()
	}
	now := reducer.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		reducer:   reducer,
		logger:    logger,
		now:       now,
		state:     initial,
		listeners: make(map[uint64]Listener),
	}
}

// State returns the current state. Callers must treat it as read-only.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies a and notifies subscribers. It returns the new state.
func (s *Store) Dispatch(a Action) State {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	next := s.reducer.Reduce(s.state, a)
	s.state = next
	s.mu.Unlock()

	s.logger.Debug().Str("action", string(a.Kind())).Msg("action dispatched")

	for _, l := range s.snapshotListeners() {
		l(Change{Action: a, State: next})
	}
	return next
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) snapshotListeners() []Listener {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = s.listeners[id]
	}
	return out
}

// FilteredPatients returns the visible roster for the current filters. The
// result is recomputed only when the patients, the filters or the calendar
// day change.
func (s *Store) FilteredPatients() []roster.Patient {
	st := s.State()
	now := s.now()
	day := now.Format("2006-01-02")

	s.memoMu.Lock()
	defer s.memoMu.Unlock()
	if s.memo.valid && s.memo.patientRev == st.patientsRev && s.memo.day == day && s.memo.filters.Equal(st.Filters) {
		return s.memo.patients
	}
	result := roster.FilterPatients(st.Patients, st.Filters, now)
	s.memo = filteredMemo{
		valid:      true,
		patientRev: st.patientsRev,
		filters:    st.Filters,
		day:        day,
		patients:   result,
	}
	return result
}

// FilteredIDs returns the IDs of FilteredPatients, ready for SelectAllFiltered.
func (s *Store) FilteredIDs() []string {
	patients := s.FilteredPatients()
	ids := make([]string, len(patients))
	for i, p := range patients {
		ids[i] = p.ID
	}
	return ids
}
