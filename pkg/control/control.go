// Package control exposes operator commands of the poll loop to the bot and web surfaces.
package control

import (
	"context"
	"log"

	"sub_trigger_bot/pkg/config"
	"sub_trigger_bot/pkg/effect"
	"sub_trigger_bot/pkg/looper"
)

// Point in time view of the daemon.
type Status struct {
	State  string        `json:"state"`
	Count  *uint64       `json:"count"`
	Config config.Config `json:"config"`
}

type Controller interface {
	// Starts the loop with the stored config, variant overrides the stored effect when not empty.
	Start(ctx context.Context, variant string) error
	Stop()
	Status() Status
	// Changes one stored config key, rejected while the loop is not Idle.
	Set(key, value string) (config.Config, error)
}

// Loop is the subset of *looper.Loop driven by the service.
type Loop interface {
	Start(ctx context.Context, cfg config.Config) error
	Stop()
	State() looper.State
	Count() (uint64, bool)
	Config() (config.Config, bool)
}

type Service struct {
	loop     Loop
	settings *config.Settings
	path     string // config file edits are saved to, empty disables saving
}

func NewService(loop Loop, settings *config.Settings, path string) *Service {
	return &Service{
		loop:     loop,
		settings: settings,
		path:     path,
	}
}

func (s *Service) Start(ctx context.Context, variant string) error {
	cfg := s.settings.Get()

	if variant != "" {
		v, err := effect.ParseVariant(variant)
		if err != nil {
			return err
		}
		cfg.Effect = v
	}

	return s.loop.Start(ctx, cfg)
}

func (s *Service) Stop() {
	s.loop.Stop()
}

func (s *Service) Status() Status {
	status := Status{
		State:  s.loop.State().String(),
		Config: s.settings.Get(),
	}

	if cfg, ok := s.loop.Config(); ok {
		status.Config = cfg
	}
	if count, ok := s.loop.Count(); ok {
		status.Count = &count
	}

	return status
}

func (s *Service) Set(key, value string) (config.Config, error) {
	cfg, err := s.settings.Set(key, value)
	if err != nil {
		return cfg, err
	}

	if s.path != "" {
		if err := config.Save(s.path, cfg); err != nil {
			log.Printf("failed to save config %s, error %v\n", s.path, err)
		}
	}

	return cfg, nil
}
