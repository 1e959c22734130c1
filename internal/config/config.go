package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tasksnap/focusd/internal/session"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Session      SessionConfig      `yaml:"session"`
	Gamification GamificationConfig `yaml:"gamification"`
	History      HistoryConfig      `yaml:"history"`
	Privacy      PrivacyConfig      `yaml:"privacy"`
	Rooms        RoomsConfig        `yaml:"rooms"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AuthToken      string   `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type SessionConfig struct {
	TickInterval      time.Duration `yaml:"tick_interval"`
	AllowedMinutes    []int         `yaml:"allowed_minutes"`
	AllowCustom       bool          `yaml:"allow_custom"`
	MaxConcurrent     int           `yaml:"max_concurrent"`
	RetainTerminal    time.Duration `yaml:"retain_terminal"`
	SnapshotInterval  time.Duration `yaml:"snapshot_interval"`
	BroadcastThrottle time.Duration `yaml:"broadcast_throttle"`
}

type GamificationConfig struct {
	StateDir     string        `yaml:"state_dir"`
	SaveInterval time.Duration `yaml:"save_interval"`
}

type HistoryConfig struct {
	DBPath string `yaml:"db_path"`
}

type PrivacyConfig struct {
	MaskLabels     bool     `yaml:"mask_labels"`
	MaskSessionIDs bool     `yaml:"mask_session_ids"`
	HiddenRooms    []string `yaml:"hidden_rooms"`
}

type RoomConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
}

type RoomsConfig struct {
	Rooms            []RoomConfig  `yaml:"rooms"`
	SimulatePresence bool          `yaml:"simulate_presence"`
	PresenceInterval time.Duration `yaml:"presence_interval"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8484,
			Host: "127.0.0.1",
		},
		Session: SessionConfig{
			TickInterval:      time.Second,
			AllowedMinutes:    []int{15, 25, 45, 60},
			AllowCustom:       false,
			MaxConcurrent:     3,
			RetainTerminal:    2 * time.Minute,
			SnapshotInterval:  5 * time.Second,
			BroadcastThrottle: 100 * time.Millisecond,
		},
		Gamification: GamificationConfig{
			SaveInterval: 30 * time.Second,
		},
		Rooms: RoomsConfig{
			Rooms: []RoomConfig{
				{ID: "library", Name: "The Library", Capacity: 8},
				{ID: "studio", Name: "Night Studio", Capacity: 6},
			},
			SimulatePresence: true,
			PresenceInterval: 15 * time.Second,
		},
	}
}

// Load reads the YAML file at path over the defaults. If path is empty the
// defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but a missing file is not an error; the
// defaults are used instead. Parse errors in an existing file still fail.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// NewPrivacyFilter converts the config section into a session filter.
func (pc PrivacyConfig) NewPrivacyFilter() *session.PrivacyFilter {
	return &session.PrivacyFilter{
		MaskLabels:     pc.MaskLabels,
		MaskSessionIDs: pc.MaskSessionIDs,
		HiddenRooms:    pc.HiddenRooms,
	}
}

// GenerateToken returns a random hex token for the server's auth_token.
func GenerateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Session.TickInterval <= 0 {
		return fmt.Errorf("session.tick_interval must be positive")
	}
	if c.Session.RetainTerminal < 0 {
		return fmt.Errorf("session.retain_terminal must not be negative")
	}
	if len(c.Session.AllowedMinutes) == 0 && !c.Session.AllowCustom {
		return fmt.Errorf("session.allowed_minutes empty with allow_custom disabled")
	}
	for _, m := range c.Session.AllowedMinutes {
		if m <= 0 {
			return fmt.Errorf("session.allowed_minutes contains %d", m)
		}
	}
	seen := make(map[string]bool, len(c.Rooms.Rooms))
	for _, r := range c.Rooms.Rooms {
		if r.ID == "" {
			return fmt.Errorf("room with empty id")
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate room id %q", r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}
