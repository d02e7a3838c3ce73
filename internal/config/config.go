package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

// Defaults for a single-line floor deployment.
const (
	DefaultRedisURL         = "redis://localhost:6379"
	DefaultLedgerPath       = "floor.db"
	DefaultSafetyTag        = "WISE4050:PB_EMG"
	DefaultHealthAddr       = ":8080"
	DefaultMachineID        = "machine_01"
	DefaultWatchdogInterval = 10 * time.Second
	DefaultReconnectInitial = 5 * time.Second
	DefaultReconnectMax     = 30 * time.Second
	DefaultLedgerWait       = 2 * time.Minute
	DefaultQueueCapacity    = 1024
	DefaultPollTimeout      = time.Second
)

// Queue overflow policies for the ingest hand-off queue.
const (
	OverflowBlock      = "block"
	OverflowDropOldest = "drop_oldest"
	OverflowReject     = "reject"
)

// Environment variables that override file settings.
const (
	EnvRedisURL   = "FLOOR_REDIS_URL"
	EnvLedgerPath = "FLOOR_LEDGER_PATH"
	EnvMachineID  = "FLOOR_MACHINE_ID"
	EnvHealthAddr = "FLOOR_HEALTH_ADDR"
)

// FloorConfig represents the top-level floor.yml configuration
type FloorConfig struct {
	Version     string            `yaml:"version"`
	Bus         BusConfig         `yaml:"bus"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Ingest      IngestConfig      `yaml:"ingest"`
}

// BusConfig specifies the broker connection and topic table
type BusConfig struct {
	RedisURL         string          `yaml:"redis_url"`
	Topics           floorbus.Topics `yaml:"topics"`
	WatchdogInterval time.Duration   `yaml:"watchdog_interval"`
	ReconnectInitial time.Duration   `yaml:"reconnect_initial_interval"`
	ReconnectMax     time.Duration   `yaml:"reconnect_max_interval"`
}

// RetryPolicy returns the bus reconnect backoff bounds.
func (b BusConfig) RetryPolicy() floorbus.RetryPolicy {
	return floorbus.RetryPolicy{InitialInterval: b.ReconnectInitial, MaxInterval: b.ReconnectMax}
}

// LedgerConfig specifies the SQLite ledger file
type LedgerConfig struct {
	Path string `yaml:"path"`
	// WaitTimeout bounds how long a process retries opening the ledger on start.
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

// CoordinatorConfig specifies validation engine settings
type CoordinatorConfig struct {
	SafetyTag  string `yaml:"safety_tag"`
	HealthAddr string `yaml:"health_addr"` // "off" disables the health server
}

// HealthEnabled reports whether the health server should be started.
func (c CoordinatorConfig) HealthEnabled() bool {
	return c.HealthAddr != "off"
}

// IngestConfig specifies telemetry ingestion settings
type IngestConfig struct {
	MachineID        string        `yaml:"machine_id"`
	QueueCapacity    int           `yaml:"queue_capacity"`
	OverflowPolicy   string        `yaml:"overflow_policy"` // block, drop_oldest or reject
	PollTimeout      time.Duration `yaml:"poll_timeout"`
	ReconnectInitial time.Duration `yaml:"reconnect_initial_interval"`
	ReconnectMax     time.Duration `yaml:"reconnect_max_interval"`
}

// RetryPolicy returns the storage reconnect backoff bounds.
func (i IngestConfig) RetryPolicy() floorbus.RetryPolicy {
	return floorbus.RetryPolicy{InitialInterval: i.ReconnectInitial, MaxInterval: i.ReconnectMax}
}

// Default returns a validated configuration with every default applied.
func Default() *FloorConfig {
	c := &FloorConfig{Version: "1.0"}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return c
}

// Validate applies defaults and performs strict validation on the configuration
func (c *FloorConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	c.applyDefaults()

	if c.Bus.WatchdogInterval < 0 || c.Bus.ReconnectInitial < 0 || c.Bus.ReconnectMax < 0 {
		return fmt.Errorf("bus: intervals must be positive")
	}
	if c.Bus.ReconnectMax < c.Bus.ReconnectInitial {
		return fmt.Errorf("bus.reconnect_max_interval (%s) must be >= reconnect_initial_interval (%s)",
			c.Bus.ReconnectMax, c.Bus.ReconnectInitial)
	}

	if c.Ledger.WaitTimeout < 0 {
		return fmt.Errorf("ledger.wait_timeout must be >= 0, got %s", c.Ledger.WaitTimeout)
	}

	if c.Ingest.QueueCapacity < 1 {
		return fmt.Errorf("ingest.queue_capacity must be >= 1, got %d", c.Ingest.QueueCapacity)
	}
	switch c.Ingest.OverflowPolicy {
	case OverflowBlock, OverflowDropOldest, OverflowReject:
	default:
		return fmt.Errorf("invalid ingest.overflow_policy: %s (must be 'block', 'drop_oldest', or 'reject')", c.Ingest.OverflowPolicy)
	}
	if c.Ingest.PollTimeout < 0 {
		return fmt.Errorf("ingest.poll_timeout must be positive, got %s", c.Ingest.PollTimeout)
	}
	if c.Ingest.ReconnectMax < c.Ingest.ReconnectInitial {
		return fmt.Errorf("ingest.reconnect_max_interval (%s) must be >= reconnect_initial_interval (%s)",
			c.Ingest.ReconnectMax, c.Ingest.ReconnectInitial)
	}

	// Topics must be distinct so a feedback message is never read back as an event
	seen := make(map[string]string)
	for name, topic := range map[string]string{
		"operator_events":   c.Bus.Topics.OperatorEvents,
		"product_events":    c.Bus.Topics.ProductEvents,
		"raw_tag_telemetry": c.Bus.Topics.RawTagTelemetry,
		"batch_telemetry":   c.Bus.Topics.BatchTelemetry,
		"operator_feedback": c.Bus.Topics.OperatorFeedback,
		"product_feedback":  c.Bus.Topics.ProductFeedback,
		"machine_commands":  c.Bus.Topics.MachineCommands,
	} {
		if other, exists := seen[topic]; exists {
			return fmt.Errorf("bus.topics: %s and %s share topic '%s'", other, name, topic)
		}
		seen[topic] = name
	}

	return nil
}

func (c *FloorConfig) applyDefaults() {
	setString := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	setDuration := func(v *time.Duration, def time.Duration) {
		if *v == 0 {
			*v = def
		}
	}

	setString(&c.Bus.RedisURL, DefaultRedisURL)
	c.Bus.Topics = c.Bus.Topics.WithDefaults()
	setDuration(&c.Bus.WatchdogInterval, DefaultWatchdogInterval)
	setDuration(&c.Bus.ReconnectInitial, DefaultReconnectInitial)
	setDuration(&c.Bus.ReconnectMax, DefaultReconnectMax)

	setString(&c.Ledger.Path, DefaultLedgerPath)
	setDuration(&c.Ledger.WaitTimeout, DefaultLedgerWait)

	setString(&c.Coordinator.SafetyTag, DefaultSafetyTag)
	setString(&c.Coordinator.HealthAddr, DefaultHealthAddr)

	setString(&c.Ingest.MachineID, DefaultMachineID)
	if c.Ingest.QueueCapacity == 0 {
		c.Ingest.QueueCapacity = DefaultQueueCapacity
	}
	setString(&c.Ingest.OverflowPolicy, OverflowDropOldest)
	setDuration(&c.Ingest.PollTimeout, DefaultPollTimeout)
	setDuration(&c.Ingest.ReconnectInitial, DefaultReconnectInitial)
	setDuration(&c.Ingest.ReconnectMax, DefaultReconnectMax)
}

// ApplyEnv overrides file settings from the environment. getenv is usually os.Getenv.
func (c *FloorConfig) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvRedisURL); v != "" {
		c.Bus.RedisURL = v
	}
	if v := getenv(EnvLedgerPath); v != "" {
		c.Ledger.Path = v
	}
	if v := getenv(EnvMachineID); v != "" {
		c.Ingest.MachineID = v
	}
	if v := getenv(EnvHealthAddr); v != "" {
		c.Coordinator.HealthAddr = v
	}
}

// Load reads floor.yml from the specified path, applies environment overrides
// and validates the result
func Load(path string) (*FloorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config FloorConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyEnv(os.Getenv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads path if it exists, otherwise returns the defaults with
// environment overrides applied.
func LoadOrDefault(path string) (*FloorConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := &FloorConfig{Version: "1.0"}
		config.ApplyEnv(os.Getenv)
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return config, nil
	}
	return Load(path)
}
