// Package config handles configuration loading, validation, and change
// notification for the keyboard.
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"maliitkeyboard/internal/logging"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete keyboard configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Keyboard holds the composition settings.
	Keyboard KeyboardConfig `toml:"keyboard" json:"keyboard" yaml:"keyboard"`

	// Engines maps a base language tag to an engine kind: "default", "cjk" or
	// "none". Languages not listed use the default engine.
	Engines map[string]string `toml:"engines" json:"engines" yaml:"engines"`

	// Dictionary configures the reference correction engine.
	Dictionary DictionaryConfig `toml:"dictionary" json:"dictionary" yaml:"dictionary"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// IBus configuration for the D-Bus text sink.
	IBus IBusConfig `toml:"ibus" json:"ibus" yaml:"ibus"`

	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// KeyboardConfig holds the settings the composition core mirrors onto the
// correction engines.
type KeyboardConfig struct {
	// CorrectionEnabled turns word correction and completion on together.
	CorrectionEnabled bool `toml:"correction_enabled" json:"correction_enabled" yaml:"correction_enabled"`

	// CorrectionWithSpace accepts the highlighted correction when space is pressed.
	CorrectionWithSpace bool `toml:"correction_with_space" json:"correction_with_space" yaml:"correction_with_space"`

	// NextWordPrediction suggests words after a commit.
	NextWordPrediction bool `toml:"next_word_prediction" json:"next_word_prediction" yaml:"next_word_prediction"`

	// FuzzyMatching enables fuzzy pinyin matching for CJK engines.
	FuzzyMatching bool `toml:"fuzzy_matching" json:"fuzzy_matching" yaml:"fuzzy_matching"`

	// ScriptPriority selects the Han script preferred by CJK engines:
	// "simplified" or "traditional".
	ScriptPriority string `toml:"script_priority" json:"script_priority" yaml:"script_priority"`

	// AutoCaps capitalizes the first letter of a sentence.
	AutoCaps bool `toml:"auto_caps" json:"auto_caps" yaml:"auto_caps"`

	// ActiveLanguage is the language tag selected at startup.
	ActiveLanguage string `toml:"active_language" json:"active_language" yaml:"active_language"`

	// EnabledLanguages are the tags the user can switch between.
	EnabledLanguages []string `toml:"enabled_languages" json:"enabled_languages" yaml:"enabled_languages"`

	// CycleTimeoutMs commits a pending multi-tap character after this delay.
	CycleTimeoutMs int `toml:"cycle_timeout_ms" json:"cycle_timeout_ms" yaml:"cycle_timeout_ms"`

	// BackspaceDelayMs is the hold time before backspace starts repeating.
	BackspaceDelayMs int `toml:"backspace_delay_ms" json:"backspace_delay_ms" yaml:"backspace_delay_ms"`

	// BackspaceRepeatMs is the interval between repeated deletions.
	BackspaceRepeatMs int `toml:"backspace_repeat_ms" json:"backspace_repeat_ms" yaml:"backspace_repeat_ms"`
}

// DictionaryConfig configures the reference correction engine.
type DictionaryConfig struct {
	// DataDir holds the per-language "<lang>.words" lists.
	DataDir string `toml:"data_dir" json:"data_dir" yaml:"data_dir"`

	// UserDBPath is the SQLite file that stores learned words. Use ":memory:"
	// to keep nothing across restarts.
	UserDBPath string `toml:"user_db_path" json:"user_db_path" yaml:"user_db_path"`

	// CacheTTLSec bounds how long candidate lists are memoized.
	CacheTTLSec int `toml:"cache_ttl_sec" json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is where logs go: "stdout", "stderr", "file", "both" or "discard".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file path when Output includes a file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
}

// IBusConfig configures the IBus engine export.
type IBusConfig struct {
	// Address is the IBus bus address. Empty means the session bus.
	Address string `toml:"address" json:"address" yaml:"address"`

	// EngineName is the name announced to the IBus daemon.
	EngineName string `toml:"engine_name" json:"engine_name" yaml:"engine_name"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dataDir := DataDir()
	return &Config{
		Version: Version,
		Keyboard: KeyboardConfig{
			CorrectionEnabled:   true,
			CorrectionWithSpace: true,
			NextWordPrediction:  true,
			FuzzyMatching:       false,
			ScriptPriority:      ScriptSimplified,
			AutoCaps:            true,
			ActiveLanguage:      "en",
			EnabledLanguages:    []string{"en"},
			CycleTimeoutMs:      1000,
			BackspaceDelayMs:    500,
			BackspaceRepeatMs:   200,
		},
		Engines: map[string]string{
			"zh": EngineCJK,
			"ja": EngineCJK,
			"ko": EngineNone,
		},
		Dictionary: DictionaryConfig{
			DataDir:     filepath.Join(dataDir, "dictionaries"),
			UserDBPath:  filepath.Join(dataDir, "user.db"),
			CacheTTLSec: 60,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   logging.DefaultLogPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		IBus: IBusConfig{
			EngineName: "maliit",
		},
	}
}

// Engine kinds accepted in Config.Engines.
const (
	EngineDefault = "default"
	EngineCJK     = "cjk"
	EngineNone    = "none"
)

// Script priorities accepted in KeyboardConfig.ScriptPriority.
const (
	ScriptSimplified  = "simplified"
	ScriptTraditional = "traditional"
)

// ConfigDir returns the directory holding config.toml. MALIIT_KEYBOARD_CONFIG_DIR
// overrides the XDG location.
func ConfigDir() string {
	if dir := os.Getenv("MALIIT_KEYBOARD_CONFIG_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "maliit-keyboard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "maliit-keyboard")
}

// DataDir returns the directory holding dictionaries and the user database.
// MALIIT_KEYBOARD_DATA_DIR overrides the XDG location.
func DataDir() string {
	if dir := os.Getenv("MALIIT_KEYBOARD_DATA_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "maliit-keyboard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "maliit-keyboard")
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies MALIIT_KEYBOARD_* environment overrides.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := os.Getenv("MALIIT_KEYBOARD_LANGUAGE"); v != "" {
		c.Keyboard.ActiveLanguage = v
	}
	if v, ok := envBool("MALIIT_KEYBOARD_CORRECTION"); ok {
		c.Keyboard.CorrectionEnabled = v
	}
	if v, ok := envBool("MALIIT_KEYBOARD_PREDICTION"); ok {
		c.Keyboard.NextWordPrediction = v
	}
	if v := os.Getenv("MALIIT_KEYBOARD_DICTIONARY_DIR"); v != "" {
		c.Dictionary.DataDir = v
	}
	if v := os.Getenv("MALIIT_KEYBOARD_USER_DB"); v != "" {
		c.Dictionary.UserDBPath = v
	}
	if v := os.Getenv("MALIIT_KEYBOARD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MALIIT_KEYBOARD_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("MALIIT_KEYBOARD_IBUS_ADDRESS"); v != "" {
		c.IBus.Address = v
	}
}

func envBool(name string) (bool, bool) {
	switch os.Getenv(name) {
	case "1", "true", "on", "yes":
		return true, true
	case "0", "false", "off", "no":
		return false, true
	}
	return false, false
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		Version: c.Version,
		Keyboard: func() KeyboardConfig {
			k := c.Keyboard
			k.EnabledLanguages = slices.Clone(c.Keyboard.EnabledLanguages)
			return k
		}(),
		Engines:    maps.Clone(c.Engines),
		Dictionary: c.Dictionary,
		Logging:    c.Logging,
		IBus:       c.IBus,
	}
}

// CycleTimeout is the multi-tap commit delay.
func (c *Config) CycleTimeout() time.Duration {
	return time.Duration(c.Keyboard.CycleTimeoutMs) * time.Millisecond
}

// BackspaceDelay is the hold time before backspace auto-repeat starts.
func (c *Config) BackspaceDelay() time.Duration {
	return time.Duration(c.Keyboard.BackspaceDelayMs) * time.Millisecond
}

// BackspaceRepeat is the auto-repeat interval.
func (c *Config) BackspaceRepeat() time.Duration {
	return time.Duration(c.Keyboard.BackspaceRepeatMs) * time.Millisecond
}

// LoggerConfig converts the logging section into a logging.Config.
func (c *Config) LoggerConfig() (*logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("logging.format: %w", err)
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = format
	cfg.Output = c.Logging.Output
	cfg.FilePath = c.Logging.FilePath
	cfg.MaxSize = int64(c.Logging.MaxSizeMB)
	cfg.MaxBackups = c.Logging.MaxBackups
	return cfg, nil
}
