package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath overrides the config file path.
const EnvPath = "MAGELING_CONFIG"

// DefaultPath is used when EnvPath is unset.
const DefaultPath = "config/mageling.toml"

type Config struct {
	Session  SessionConfig  `toml:"session"`
	Network  NetworkConfig  `toml:"network"`
	Movement MovementConfig `toml:"movement"`
	Round    RoundConfig    `toml:"round"`
	Data     DataConfig     `toml:"data"`
	Logging  LoggingConfig  `toml:"logging"`
	Database DatabaseConfig `toml:"database"`
}

type SessionConfig struct {
	Players        int `toml:"players"`
	MaxPrediction  int `toml:"max_prediction"`
	InputDelay     int `toml:"input_delay"`
	FPS            int `toml:"fps"`
	DesyncInterval int `toml:"desync_interval"` // 0 disables checksum exchange
	CheckDistance  int `toml:"check_distance"`  // sync test rollback depth, 0 = off
}

type NetworkConfig struct {
	Mode         string        `toml:"mode"` // "loopback" or "websocket"
	RelayURL     string        `toml:"relay_url"`
	BindAddress  string        `toml:"bind_address"` // relay listen address
	OutQueueSize int           `toml:"out_queue_size"`
	MaxRoomSize  int           `toml:"max_room_size"`
	DialTimeout  time.Duration `toml:"dial_timeout"`
}

type MovementConfig struct {
	Speed        float64 `toml:"speed"`
	DashPower    float64 `toml:"dash_power"`
	DashDuration float64 `toml:"dash_duration"`
	DashCooldown float64 `toml:"dash_cooldown"`
	ActorSize    float64 `toml:"actor_size"`
	MaxHealth    int     `toml:"max_health"`
}

type RoundConfig struct {
	BetweenRoundFrames int `toml:"between_round_frames"`
	RoundFrames        int `toml:"round_frames"` // 0 = no time limit
	ScoreLimit         int `toml:"score_limit"`  // 0 = no score limit
	Rounds             int `toml:"rounds"`
}

type DataConfig struct {
	Level      string `toml:"level"`
	Abilities  string `toml:"abilities"`
	BotScripts string `toml:"bot_scripts"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty disables match history
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	WriteQueueSize  int           `toml:"write_queue_size"`
}

// Error reports an invalid setting.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Path returns the config path from the environment or the default.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Players:        2,
			MaxPrediction:  8,
			InputDelay:     1,
			FPS:            60,
			DesyncInterval: 60,
		},
		Network: NetworkConfig{
			Mode:         "loopback",
			RelayURL:     "ws://127.0.0.1:3536/mageling?next=2",
			BindAddress:  "0.0.0.0:3536",
			OutQueueSize: 256,
			MaxRoomSize:  8,
			DialTimeout:  10 * time.Second,
		},
		Movement: MovementConfig{
			Speed:        160,
			DashPower:    3,
			DashDuration: 0.15,
			DashCooldown: 1.15,
			ActorSize:    14,
			MaxHealth:    100,
		},
		Round: RoundConfig{
			BetweenRoundFrames: 120,
			RoundFrames:        60 * 60,
			ScoreLimit:         5,
			Rounds:             3,
		},
		Data: DataConfig{
			Level:      "data/level.yaml",
			Abilities:  "data/abilities.yaml",
			BotScripts: "scripts/bot",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			WriteQueueSize:  16,
		},
	}
}

func (c *Config) Validate() error {
	s := c.Session
	switch {
	case s.Players < 1:
		return &Error{"session.players", "must be at least 1"}
	case s.MaxPrediction < 1:
		return &Error{"session.max_prediction", "must be at least 1"}
	case s.InputDelay < 0:
		return &Error{"session.input_delay", "must not be negative"}
	case s.FPS < 1:
		return &Error{"session.fps", "must be at least 1"}
	case s.DesyncInterval < 0:
		return &Error{"session.desync_interval", "must not be negative"}
	case s.CheckDistance < 0 || (s.CheckDistance > 0 && s.CheckDistance >= s.MaxPrediction):
		return &Error{"session.check_distance", "must be below max_prediction"}
	}

	switch strings.ToLower(c.Network.Mode) {
	case "loopback":
	case "websocket":
		if c.Network.RelayURL == "" {
			return &Error{"network.relay_url", "required in websocket mode"}
		}
	default:
		return &Error{"network.mode", fmt.Sprintf("unknown mode %q", c.Network.Mode)}
	}
	if c.Network.OutQueueSize < 1 {
		return &Error{"network.out_queue_size", "must be at least 1"}
	}
	if c.Network.MaxRoomSize < 1 {
		return &Error{"network.max_room_size", "must be at least 1"}
	}

	m := c.Movement
	switch {
	case m.Speed <= 0:
		return &Error{"movement.speed", "must be positive"}
	case m.DashPower <= 0:
		return &Error{"movement.dash_power", "must be positive"}
	case m.DashDuration < 0 || m.DashCooldown < 0:
		return &Error{"movement.dash_duration", "dash timers must not be negative"}
	case m.ActorSize <= 0:
		return &Error{"movement.actor_size", "must be positive"}
	}

	r := c.Round
	if r.BetweenRoundFrames < 0 || r.RoundFrames < 0 || r.ScoreLimit < 0 {
		return &Error{"round", "frame counts and score limit must not be negative"}
	}
	if r.Rounds < 1 {
		return &Error{"round.rounds", "must be at least 1"}
	}
	if r.RoundFrames == 0 && r.ScoreLimit == 0 {
		return &Error{"round", "round_frames or score_limit must end a round"}
	}

	if c.Data.Level == "" || c.Data.Abilities == "" {
		return &Error{"data", "level and abilities paths are required"}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return &Error{"logging.format", fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	if c.Database.DSN != "" && c.Database.WriteQueueSize < 1 {
		return &Error{"database.write_queue_size", "must be at least 1"}
	}
	return nil
}
