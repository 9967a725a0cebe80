package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrInvalidConfig) hold for any validation failure.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Fields returns the names of the offending fields.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}

// ErrInvalidConfig is matched by every ValidationErrors value.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateKeyboard(&c.Keyboard)...)
	errs = append(errs, validateEngines(c.Engines)...)
	errs = append(errs, validateDictionary(&c.Dictionary)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateKeyboard(k *KeyboardConfig) ValidationErrors {
	var errs ValidationErrors

	switch k.ScriptPriority {
	case ScriptSimplified, ScriptTraditional:
	default:
		errs = append(errs, ValidationError{
			Field:   "keyboard.script_priority",
			Message: fmt.Sprintf("invalid script priority: %s (valid: simplified, traditional)", k.ScriptPriority),
		})
	}

	if k.ActiveLanguage == "" {
		errs = append(errs, ValidationError{
			Field:   "keyboard.active_language",
			Message: "active language is required",
		})
	}

	for _, lang := range k.EnabledLanguages {
		if strings.TrimSpace(lang) == "" {
			errs = append(errs, ValidationError{
				Field:   "keyboard.enabled_languages",
				Message: "language tags cannot be empty",
			})
			break
		}
	}

	checkRange := func(field string, v, min, max int) {
		if v < min || v > max {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("value must be between %d and %d", min, max),
			})
		}
	}
	checkRange("keyboard.cycle_timeout_ms", k.CycleTimeoutMs, 100, 10000)
	checkRange("keyboard.backspace_delay_ms", k.BackspaceDelayMs, 50, 5000)
	checkRange("keyboard.backspace_repeat_ms", k.BackspaceRepeatMs, 10, 2000)

	return errs
}

func validateEngines(engines map[string]string) ValidationErrors {
	var errs ValidationErrors
	for lang, kind := range engines {
		switch kind {
		case EngineDefault, EngineCJK, EngineNone:
		default:
			errs = append(errs, ValidationError{
				Field:   "engines." + lang,
				Message: fmt.Sprintf("invalid engine kind: %s (valid: default, cjk, none)", kind),
			})
		}
		if strings.Contains(lang, "@") {
			errs = append(errs, ValidationError{
				Field:   "engines." + lang,
				Message: "engine registrations use base language tags without @variant",
			})
		}
	}
	return errs
}

func validateDictionary(d *DictionaryConfig) ValidationErrors {
	var errs ValidationErrors
	if d.CacheTTLSec < 0 {
		errs = append(errs, ValidationError{
			Field:   "dictionary.cache_ttl_sec",
			Message: "cache TTL cannot be negative",
		})
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr", "discard":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output writes to a file",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	return errs
}
