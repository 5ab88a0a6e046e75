// Package config implements the configuration mirror (C8): a serializable
// view of store-wide and per-priority-group caps, loaded from a JSON file
// with viper and validated with go-playground/validator, that writes
// itself back on mutation unless NoUpdate suppresses it. Ported from the
// original implementation's config.rs/api/configuration.rs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// GroupDefault is one entry of the "groups" array: the cap applied to a
// priority group at the moment it is first created.
type GroupDefault struct {
	Priority    uint32  `mapstructure:"priority" json:"priority" validate:"required"`
	MaxByteSize *uint64 `mapstructure:"maxByteSize" json:"maxByteSize,omitempty"`
}

// Config is the full configuration mirror, §6. Every field is optional;
// zero values fall back to the defaults set in New.
type Config struct {
	Host            string         `mapstructure:"host" json:"host"`
	Port            int            `mapstructure:"port" json:"port" validate:"min=0,max=65535"`
	NodeId          uint16         `mapstructure:"nodeId" json:"nodeId"`
	Database        string         `mapstructure:"database" json:"database" validate:"oneof=mem sqlite redis postgres"`
	LevelDBPath     string         `mapstructure:"leveldbPath" json:"leveldbPath"`
	FileStorage     bool           `mapstructure:"fileStorage" json:"fileStorage"`
	FileStoragePath string         `mapstructure:"fileStoragePath" json:"fileStoragePath"`
	MaxByteSize     *uint64        `mapstructure:"maxByteSize" json:"maxByteSize,omitempty"`
	Groups          []GroupDefault `mapstructure:"groups" json:"groups,omitempty"`
	NoUpdate        bool           `mapstructure:"noUpdate" json:"noUpdate"`

	path     string
	mu       sync.Mutex
	validate *validator.Validate
}

// New returns a Config with the original implementation's defaults:
// host 127.0.0.1, port 8080, database "mem", file storage disabled.
func New() *Config {
	return &Config{
		Host:     "127.0.0.1",
		Port:     8080,
		Database: "mem",
		NoUpdate: false,
		validate: validator.New(),
	}
}

// Open loads configuration from path (if it exists) over New's defaults,
// using viper so environment variables (MSGSTORE_<FIELD>) can override
// individual fields, then validates the result. A missing file is not an
// error: defaults apply.
func Open(path string) (*Config, error) {
	cfg := New()
	cfg.path = path

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("msgstore")
	v.AutomaticEnv()

	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("database", cfg.Database)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, &Error{Kind: KindCouldNotReadFile, Path: path, Cause: err}
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, &Error{Kind: KindCouldNotParse, Path: path, Cause: err}
	}
	cfg.validate = validator.New()

	if err := cfg.validate.Struct(cfg); err != nil {
		return nil, &Error{Kind: KindCouldNotParse, Path: path, Cause: err}
	}
	return cfg, nil
}

// ToJSON renders the live mirror as pretty-printed JSON, independent of
// the on-disk write-back path — a read-only export for diagnostics.
func (c *Config) ToJSON() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", &Error{Kind: KindCouldNotConvertToJSON, Cause: err}
	}
	return string(data), nil
}

// MarshalMirror is an alias for ToJSON, named to match the original
// implementation's configuration export entry point.
func (c *Config) MarshalMirror() (string, error) {
	return c.ToJSON()
}

// writeBack persists the mirror to c.path, pretty-printed, unless
// NoUpdate suppresses it. Callers hold c.mu while calling this.
func (c *Config) writeBack() error {
	if c.NoUpdate || c.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return &Error{Kind: KindCouldNotConvertToJSON, Cause: err}
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return &Error{Kind: KindCouldNotWriteToFile, Path: c.path, Cause: err}
	}
	return nil
}

// UpdateMaxByteSize sets the store-wide cap in the mirror and writes it
// back (unless NoUpdate).
func (c *Config) UpdateMaxByteSize(max *uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MaxByteSize = max
	return c.writeBack()
}

// UpdateGroupDefault upserts one priority's group default in the mirror
// and writes it back.
func (c *Config) UpdateGroupDefault(priority uint32, maxByteSize *uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, g := range c.Groups {
		if g.Priority == priority {
			c.Groups[i].MaxByteSize = maxByteSize
			return c.writeBack()
		}
	}
	c.Groups = append(c.Groups, GroupDefault{Priority: priority, MaxByteSize: maxByteSize})
	return c.writeBack()
}

// RemoveGroupDefault deletes priority's entry from the mirror, if present.
func (c *Config) RemoveGroupDefault(priority uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, g := range c.Groups {
		if g.Priority == priority {
			c.Groups = append(c.Groups[:i], c.Groups[i+1:]...)
			return c.writeBack()
		}
	}
	return nil
}

// WithNoUpdate temporarily suppresses write-back for the duration of fn,
// for bulk restart replays that should not thrash the config file.
func (c *Config) WithNoUpdate(fn func()) {
	c.mu.Lock()
	prior := c.NoUpdate
	c.NoUpdate = true
	c.mu.Unlock()

	fn()

	c.mu.Lock()
	c.NoUpdate = prior
	c.mu.Unlock()
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{host=%s port=%d database=%s fileStorage=%t}", c.Host, c.Port, c.Database, c.FileStorage)
}
