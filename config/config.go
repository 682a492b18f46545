package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Buffer backends
const (
	BufferMemory = "memory"
	BufferRedis  = "redis"
)

// NodePlaceholder is replaced by the node id in Topics.Commands
const NodePlaceholder = "{node}"

// Config represents the complete client configuration
type Config struct {
	Client    ClientConfig    `json:"client"`
	NATS      NATSConfig      `json:"nats"`
	Topics    TopicsConfig    `json:"topics"`
	Transport TransportConfig `json:"transport"`
	Buffer    BufferConfig    `json:"buffer"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// ClientConfig identifies the client and sizes its internals
type ClientConfig struct {
	// Name is the initiator identity stamped on every command. Heartbeat
	// entries initiated by another name are ignored.
	Name           string        `json:"name"`
	Fleet          []string      `json:"fleet,omitempty"`
	WarmUp         bool          `json:"warm_up"`
	OnlineWindow   time.Duration `json:"online_window"`
	PayloadWorkers int           `json:"payload_workers"`
	PayloadQueue   int           `json:"payload_queue"`
	EventBuffer    int           `json:"event_buffer"`
}

// NATSConfig holds broker connection settings
type NATSConfig struct {
	URLs             []string      `json:"urls"`
	MaxReconnects    int           `json:"max_reconnects"`
	ReconnectWait    time.Duration `json:"reconnect_wait"`
	ConnectTimeout   time.Duration `json:"connect_timeout"`
	Username         string        `json:"username,omitempty"`
	Password         string        `json:"password,omitempty"`
	Token            string        `json:"token,omitempty"`
	CircuitThreshold int           `json:"circuit_threshold"`
}

// TopicsConfig names the broker subjects
type TopicsConfig struct {
	Heartbeats    string `json:"heartbeats"`
	Notifications string `json:"notifications"`
	Payloads      string `json:"payloads"`
	// Commands is a subject template; NodePlaceholder is replaced by the node id.
	Commands string `json:"commands"`
}

// CommandSubject returns the command subject of node
func (t TopicsConfig) CommandSubject(node string) string {
	return strings.ReplaceAll(t.Commands, NodePlaceholder, node)
}

// TransportConfig limits outbound traffic per node
type TransportConfig struct {
	RatePerNode float64 `json:"rate_per_node"` // commands per second, 0 disables limiting
	Burst       int     `json:"burst"`
}

// BufferConfig selects the warm-up store
type BufferConfig struct {
	Backend       string `json:"backend"`
	Capacity      int    `json:"capacity"`
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db"`
	RedisPrefix   string `json:"redis_prefix,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// Defaults returns the configuration used before any layer is applied
func Defaults() *Config {
	return &Config{
		Client: ClientConfig{
			Name:           "tsclient",
			WarmUp:         true,
			OnlineWindow:   30 * time.Second,
			PayloadWorkers: 4,
			PayloadQueue:   256,
			EventBuffer:    128,
		},
		NATS: NATSConfig{
			URLs:             []string{"nats://localhost:4222"},
			MaxReconnects:    -1,
			ReconnectWait:    2 * time.Second,
			ConnectTimeout:   5 * time.Second,
			CircuitThreshold: 5,
		},
		Topics: TopicsConfig{
			Heartbeats:    "aixp.heartbeats",
			Notifications: "aixp.notifications",
			Payloads:      "aixp.payloads",
			Commands:      "aixp.commands." + NodePlaceholder,
		},
		Transport: TransportConfig{
			RatePerNode: 10,
			Burst:       20,
		},
		Buffer: BufferConfig{
			Backend:     BufferMemory,
			Capacity:    1024,
			RedisPrefix: "tsclient:buffer:",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Clone returns a deep copy
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil
	}
	return &clone
}

// Validate checks if the config is usable
func (c *Config) Validate() error {
	if c.Client.Name == "" {
		return errors.New("client.name is required")
	}
	for _, node := range c.Client.Fleet {
		if !isValidNATSSubjectPart(node) {
			return fmt.Errorf("client.fleet entry '%s' is not valid for NATS subjects", node)
		}
	}
	if c.Client.OnlineWindow < 0 {
		return errors.New("client.online_window cannot be negative")
	}

	if len(c.NATS.URLs) == 0 {
		return errors.New("nats.urls requires at least one url")
	}

	subjects := map[string]string{
		"topics.heartbeats":    c.Topics.Heartbeats,
		"topics.notifications": c.Topics.Notifications,
		"topics.payloads":      c.Topics.Payloads,
	}
	for name, subject := range subjects {
		if !isValidSubject(subject) {
			return fmt.Errorf("%s '%s' is not a valid NATS subject", name, subject)
		}
	}
	if !strings.Contains(c.Topics.Commands, NodePlaceholder) {
		return fmt.Errorf("topics.commands must contain %s", NodePlaceholder)
	}
	if !isValidSubject(c.Topics.CommandSubject("node")) {
		return fmt.Errorf("topics.commands '%s' is not a valid NATS subject", c.Topics.Commands)
	}

	if c.Transport.RatePerNode < 0 {
		return errors.New("transport.rate_per_node cannot be negative")
	}
	if c.Transport.RatePerNode > 0 && c.Transport.Burst <= 0 {
		return errors.New("transport.burst must be positive when rate limiting is enabled")
	}

	switch c.Buffer.Backend {
	case BufferMemory:
		if c.Buffer.Capacity <= 0 {
			return errors.New("buffer.capacity must be positive")
		}
	case BufferRedis:
		if c.Buffer.RedisAddr == "" {
			return errors.New("buffer.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("buffer.backend '%s' must be %s or %s", c.Buffer.Backend, BufferMemory, BufferRedis)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port %d out of range", c.Metrics.Port)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return errors.New("metrics.path must start with /")
		}
	}

	return nil
}

// isValidNATSSubjectPart checks if a string is valid for use as one subject token.
// Valid characters are alphanumeric, dashes and underscores.
func isValidNATSSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// isValidSubject accepts dot-separated tokens, where a token may also be a
// wildcard (* or a trailing >).
func isValidSubject(s string) bool {
	if s == "" {
		return false
	}
	tokens := strings.Split(s, ".")
	for i, tok := range tokens {
		switch {
		case tok == "*":
		case tok == ">" && i == len(tokens)-1:
		case isValidNATSSubjectPart(tok):
		default:
			return false
		}
	}
	return true
}

// String returns a redacted summary suitable for logs
func (c *Config) String() string {
	return fmt.Sprintf("Config{client=%s fleet=%d nats=%v buffer=%s metrics=%t}",
		c.Client.Name, len(c.Client.Fleet), c.NATS.URLs, c.Buffer.Backend, c.Metrics.Enabled)
}
