package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sub_trigger_bot/pkg/effect"
	"sub_trigger_bot/pkg/id"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultChannelID     id.ChannelID = "UCPW8jTlTN-ihPfhsEJdABDQ"
	DefaultCheckInterval              = 2
	DefaultEffect                     = effect.VariantTNT
)

var (
	ErrInvalid    = errors.New("invalid config")
	ErrUnknownKey = errors.New("unknown config key")
)

// Run configuration, read once when the poll loop starts.
type Config struct {
	ChannelID     id.ChannelID   `yaml:"channel_id" json:"channel_id"`
	CheckInterval int            `yaml:"check_interval" json:"check_interval"` // seconds
	Headless      bool           `yaml:"selenium_headless" json:"selenium_headless"`
	Effect        effect.Variant `yaml:"effect" json:"effect"`
}

func Default() Config {
	return Config{
		ChannelID:     DefaultChannelID,
		CheckInterval: DefaultCheckInterval,
		Effect:        DefaultEffect,
	}
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.CheckInterval) * time.Second
}

func (c Config) Validate() error {
	if c.CheckInterval <= 0 {
		return errors.WithMessagef(ErrInvalid, "check_interval %d must be positive", c.CheckInterval)
	}
	if _, err := effect.ParseVariant(string(c.Effect)); err != nil {
		return errors.WithMessage(ErrInvalid, err.Error())
	}
	if err := c.ChannelID.Validate(); err != nil {
		return errors.WithMessage(ErrInvalid, err.Error())
	}
	return nil
}

// Returns a copy with one key changed, keys as in the config file.
func (c Config) With(key, value string) (Config, error) {
	value = strings.TrimSpace(value)

	switch strings.ToLower(strings.TrimSpace(key)) {
	case "channel_id", "channel":
		c.ChannelID = id.ChannelID(value)
	case "check_interval", "interval":
		v, err := strconv.Atoi(value)
		if err != nil {
			return c, errors.WithMessagef(ErrInvalid, "check_interval %q", value)
		}
		c.CheckInterval = v
	case "selenium_headless", "headless":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return c, errors.WithMessagef(ErrInvalid, "selenium_headless %q", value)
		}
		c.Headless = v
	case "effect":
		v, err := effect.ParseVariant(value)
		if err != nil {
			return c, errors.WithMessage(ErrInvalid, err.Error())
		}
		c.Effect = v
	default:
		return c, errors.WithMessagef(ErrUnknownKey, "%q", key)
	}

	return c, c.Validate()
}

// Reads config file, keys missing in the file keep their defaults.
// JSON files are accepted as they are valid YAML.
func Read(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), errors.Wrapf(err, "failed to parse %s", path)
	}

	return cfg, nil
}

// Reads config file and falls back to defaults when it is missing or malformed.
func Load(path string) Config {
	cfg, err := Read(path)

	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("config %s does not exist, using defaults\n", path)
	case err != nil:
		log.Printf("config %s is malformed, using defaults, error %v\n", path, err)
	default:
		log.Printf("config loaded from %s\n", path)
	}

	return cfg
}

// Writes config file, JSON for .json files and YAML otherwise.
func Save(path string, cfg Config) error {
	var (
		data []byte
		err  error
	)

	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(cfg, "", "    ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
