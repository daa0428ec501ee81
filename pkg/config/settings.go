package config

import (
	"sync"

	"github.com/pkg/errors"
)

var ErrLocked = errors.New("config is locked while the loop is running")

// Editable config guarded against edits while a run is in progress.
type Settings struct {
	mx     sync.RWMutex
	cfg    Config
	locked func() bool
}

// The locked func reports whether edits are currently rejected.
func NewSettings(cfg Config, locked func() bool) *Settings {
	if locked == nil {
		locked = func() bool { return false }
	}
	return &Settings{
		cfg:    cfg,
		locked: locked,
	}
}

// Returns a snapshot of the config.
func (s *Settings) Get() Config {
	s.mx.RLock()
	defer s.mx.RUnlock()

	return s.cfg
}

func (s *Settings) Set(key, value string) (Config, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	if s.locked() {
		return s.cfg, ErrLocked
	}

	cfg, err := s.cfg.With(key, value)
	if err != nil {
		return s.cfg, err
	}

	s.cfg = cfg
	return cfg, nil
}

func (s *Settings) Replace(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	if s.locked() {
		return ErrLocked
	}

	s.cfg = cfg
	return nil
}
