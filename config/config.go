// Package config loads the runtime-wide RuntimeConfig from YAML, per
// SPEC_FULL.md §4.9. It follows the teacher's config-loading shape seen in
// EdgeComet-engine/internal/common/config: a typed struct with yaml tags,
// defaults applied after decode, and an explicit Validate step — rather than
// the teacher's own multi-file/hosts-include machinery, which this module
// has no equivalent for.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML decoding of strings like "30s".
// A simplified cousin of the teacher's types.Duration: only the formats
// time.ParseDuration itself understands are accepted, since nothing here
// needs day/week units.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Get returns the wrapped time.Duration.
func (d Duration) Get() time.Duration { return time.Duration(d) }

// RuntimeConfig is the root configuration for one pageruntime process,
// per SPEC_FULL.md §4.9.
type RuntimeConfig struct {
	Arena     ArenaConfig     `yaml:"arena"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	HTTP      HTTPConfig      `yaml:"http"`
	Robots    RobotsConfig    `yaml:"robots"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ArenaConfig holds page-lifetime pool sizes. Session reads only
// TransferArenaRetainCap; the factory and script-buffer fields are
// validated but not applied (scriptmgr builds its buffer pool with fixed
// sizes).
type ArenaConfig struct {
	FactoryBaseCapacity    int `yaml:"factory_base_capacity"`
	FactoryMaxCapacity     int `yaml:"factory_max_capacity"`
	ScriptBufferBase       int `yaml:"script_buffer_base"`
	ScriptBufferMax        int `yaml:"script_buffer_max"`
	ResizeThreshold        int `yaml:"resize_threshold"`
	TransferArenaRetainCap int `yaml:"transfer_arena_retain_capacity"`
}

// SchedulerConfig holds the scheduler tick budget. It is validated but not
// read by Session.Wait.
type SchedulerConfig struct {
	TickBudget Duration `yaml:"tick_budget"`
}

// HTTPConfig configures the concrete fasthttp client adapter.
type HTTPConfig struct {
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	TickTimeout  Duration `yaml:"tick_timeout"`
}

// RobotsConfig names the user-agent used for both the robots.txt matcher
// and outgoing requests.
type RobotsConfig struct {
	UserAgent string `yaml:"user_agent"`
}

// LoggingConfig configures pagelog's zap/lumberjack setup.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	File     string `yaml:"file"`
	MaxSizeMB int   `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
}

// Default returns a RuntimeConfig with the same baseline values used
// throughout this module's own tests and cmd/pageshell's zero-flag run.
func Default() RuntimeConfig {
	return RuntimeConfig{
		Arena: ArenaConfig{
			FactoryBaseCapacity:    8,
			FactoryMaxCapacity:     256,
			ScriptBufferBase:       8,
			ScriptBufferMax:        64,
			ResizeThreshold:        4,
			TransferArenaRetainCap: 256,
		},
		Scheduler: SchedulerConfig{
			TickBudget: Duration(50 * time.Millisecond),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
			TickTimeout:  Duration(200 * time.Millisecond),
		},
		Robots: RobotsConfig{
			UserAgent: "pageruntime",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// Load reads and decodes path, applying Default()'s values wherever the
// YAML leaves a field at its zero value, then validates the result.
func Load(path string) (RuntimeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes raw YAML bytes into a RuntimeConfig, applying defaults and
// validating. Exposed separately from Load so tests can exercise it
// without touching the filesystem.
func Parse(data []byte) (RuntimeConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return RuntimeConfig{}, err
	}
	return cfg, nil
}

// Validate checks invariants Default() alone can't guarantee once a user
// has overridden fields via YAML.
func (c *RuntimeConfig) Validate() error {
	if c.Arena.FactoryBaseCapacity <= 0 {
		return fmt.Errorf("config: arena.factory_base_capacity must be > 0")
	}
	if c.Arena.FactoryMaxCapacity < c.Arena.FactoryBaseCapacity {
		return fmt.Errorf("config: arena.factory_max_capacity must be >= factory_base_capacity")
	}
	if c.Arena.ScriptBufferBase <= 0 {
		return fmt.Errorf("config: arena.script_buffer_base must be > 0")
	}
	if c.Arena.ScriptBufferMax < c.Arena.ScriptBufferBase {
		return fmt.Errorf("config: arena.script_buffer_max must be >= script_buffer_base")
	}
	if c.Arena.ResizeThreshold <= 0 {
		return fmt.Errorf("config: arena.resize_threshold must be > 0")
	}
	if c.Scheduler.TickBudget.Get() <= 0 {
		return fmt.Errorf("config: scheduler.tick_budget must be > 0")
	}
	if c.HTTP.TickTimeout.Get() <= 0 {
		return fmt.Errorf("config: http.tick_timeout must be > 0")
	}
	if c.Robots.UserAgent == "" {
		return fmt.Errorf("config: robots.user_agent must not be empty")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q is not one of debug|info|warn|error", c.Logging.Level)
	}
	return nil
}
