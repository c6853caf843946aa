package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Save writes the draft under k, stamped with the current time. data must be
// a JSON document.
func (s *Service) Save(ctx context.Context, k Key, data json.RawMessage, isComplete bool) (*Draft, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("draft data is not valid JSON")
	}
	d := &Draft{
		Key:        k,
		Data:       data,
		IsComplete: isComplete,
		SavedAt:    s.now().UTC(),
	}
	if err := s.repo.Put(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns the draft stored under k or ErrNotFound.
func (s *Service) Get(ctx context.Context, k Key) (*Draft, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, k)
}

// Delete removes the draft under k. Deleting a missing draft is not an error.
func (s *Service) Delete(ctx context.Context, k Key) error {
	if err := k.Validate(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, k)
}

// Sweep removes every draft saved more than maxAge ago.
func (s *Service) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, fmt.Errorf("sweep max age must be positive, got %s", maxAge)
	}
	return s.repo.DeleteOlderThan(ctx, s.now().Add(-maxAge))
}

// AutosaveEnabled reports the autosave setting. It is on until turned off.
func (s *Service) AutosaveEnabled(ctx context.Context) (bool, error) {
	v, ok, err := s.repo.GetFlag(ctx, FlagAutosave)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return v, nil
}

func (s *Service) SetAutosave(ctx context.Context, enabled bool) error {
	return s.repo.SetFlag(ctx, FlagAutosave, enabled)
}
