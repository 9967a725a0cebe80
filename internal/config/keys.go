package config

import (
	"slices"
	"strconv"
	"strings"
)

// Setting keys. Consumers subscribe to changes and look values up by key so
// they never depend on the struct layout.
const (
	KeyCorrectionEnabled   = "/maliit/keyboard/correction_enabled"
	KeyCorrectionWithSpace = "/maliit/keyboard/correction_with_space"
	KeyNextWordPrediction  = "/maliit/keyboard/next_word_prediction"
	KeyFuzzyMatching       = "/maliit/keyboard/fuzzy_matching"
	KeyScriptPriority      = "/maliit/keyboard/script_priority"
	KeyAutoCaps            = "/maliit/keyboard/auto_caps"
	KeyActiveLanguage      = "/maliit/keyboard/active_language"
	KeyEnabledLanguages    = "/maliit/keyboard/enabled_languages"
	KeyCycleTimeout        = "/maliit/keyboard/cycle_timeout_ms"
	KeyBackspaceDelay      = "/maliit/keyboard/backspace_delay_ms"
	KeyBackspaceRepeat     = "/maliit/keyboard/backspace_repeat_ms"
)

// AllKeys lists every setting key in a stable order.
var AllKeys = []string{
	KeyCorrectionEnabled,
	KeyCorrectionWithSpace,
	KeyNextWordPrediction,
	KeyFuzzyMatching,
	KeyScriptPriority,
	KeyAutoCaps,
	KeyActiveLanguage,
	KeyEnabledLanguages,
	KeyCycleTimeout,
	KeyBackspaceDelay,
	KeyBackspaceRepeat,
}

// Bool returns a boolean setting. Unknown or non-boolean keys report false.
func (c *Config) Bool(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.boolValue(key)
	return ok && v
}

// String returns any setting rendered as a string, or "" for unknown keys.
func (c *Config) String(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.boolValue(key); ok {
		return strconv.FormatBool(v)
	}

	k := &c.Keyboard
	switch key {
	case KeyScriptPriority:
		return k.ScriptPriority
	case KeyActiveLanguage:
		return k.ActiveLanguage
	case KeyEnabledLanguages:
		return strings.Join(k.EnabledLanguages, ",")
	case KeyCycleTimeout:
		return strconv.Itoa(k.CycleTimeoutMs)
	case KeyBackspaceDelay:
		return strconv.Itoa(k.BackspaceDelayMs)
	case KeyBackspaceRepeat:
		return strconv.Itoa(k.BackspaceRepeatMs)
	}
	return ""
}

func (c *Config) boolValue(key string) (bool, bool) {
	k := &c.Keyboard
	switch key {
	case KeyCorrectionEnabled:
		return k.CorrectionEnabled, true
	case KeyCorrectionWithSpace:
		return k.CorrectionWithSpace, true
	case KeyNextWordPrediction:
		return k.NextWordPrediction, true
	case KeyFuzzyMatching:
		return k.FuzzyMatching, true
	case KeyAutoCaps:
		return k.AutoCaps, true
	}
	return false, false
}

// ChangedKeys returns the setting keys whose values differ between old and
// updated. A nil old config reports every key.
func ChangedKeys(old, updated *Config) []string {
	if old == nil {
		return slices.Clone(AllKeys)
	}

	var changed []string
	for _, key := range AllKeys {
		if old.String(key) != updated.String(key) {
			changed = append(changed, key)
		}
	}
	return changed
}
