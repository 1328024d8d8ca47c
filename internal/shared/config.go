package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Remote backends
const (
	RemoteMongo  = "mongo"
	RemoteMemory = "memory"
)

// Notifier kinds
const (
	NotifierRedis  = "redis"
	NotifierMongo  = "mongo"
	NotifierMemory = "memory"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Remote   RemoteConfig   `toml:"remote"`
	Notifier NotifierConfig `toml:"notifier"`
	Fetch    FetchConfig    `toml:"fetch"`
	Auth     AuthConfig     `toml:"auth"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains on-device database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RemoteConfig selects and configures the remote document store.
type RemoteConfig struct {
	Backend                  string   `toml:"backend"`
	MongoURI                 string   `toml:"mongo_uri"`
	Database                 string   `toml:"database"`
	PlaylistsCollection      string   `toml:"playlists_collection"`
	ProfilesCollection       string   `toml:"profiles_collection"`
	FriendRequestsCollection string   `toml:"friend_requests_collection"`
	GoalsCollection          string   `toml:"goals_collection"`
	Timeout                  Duration `toml:"timeout"`
}

// NotifierConfig selects how collection changes are pushed to subscribers.
type NotifierConfig struct {
	Kind          string `toml:"kind"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// FetchConfig configures the playlist metadata proxy client.
type FetchConfig struct {
	ProxyURL          string   `toml:"proxy_url"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	CacheTTL          Duration `toml:"cache_ttl"`
}

// AuthConfig contains sign-in provider credentials.
type AuthConfig struct {
	Google GoogleConfig `toml:"google"`
}

// GoogleConfig contains Google OAuth client credentials.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a [time.Duration] that decodes from TOML strings like "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file fall back to the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Remote.Backend {
	case RemoteMongo, RemoteMemory:
	default:
		return fmt.Errorf("%w: remote backend %q", ErrInvalidConfig, c.Remote.Backend)
	}

	switch c.Notifier.Kind {
	case NotifierRedis, NotifierMongo, NotifierMemory:
	default:
		return fmt.Errorf("%w: notifier kind %q", ErrInvalidConfig, c.Notifier.Kind)
	}

	if c.Notifier.Kind == NotifierMongo && c.Remote.Backend != RemoteMongo {
		return fmt.Errorf("%w: mongo notifier requires the mongo backend", ErrInvalidConfig)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
