package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Bool(KeyCorrectionEnabled))
	assert.Equal(t, "simplified", cfg.String(KeyScriptPriority))
	assert.Equal(t, EngineCJK, cfg.Engines["zh"])
	assert.Equal(t, EngineNone, cfg.Engines["ko"])
	assert.Equal(t, 500*time.Millisecond, cfg.BackspaceDelay())
	assert.Equal(t, 200*time.Millisecond, cfg.BackspaceRepeat())
	assert.Equal(t, time.Second, cfg.CycleTimeout())
}

func TestConfigPathHonoursOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MALIIT_KEYBOARD_CONFIG_DIR", dir)
	assert.Equal(t, filepath.Join(dir, "config.toml"), ConfigPath())

	t.Setenv("MALIIT_KEYBOARD_DATA_DIR", dir)
	assert.Equal(t, filepath.Join(dir, "user.db"), DefaultConfig().Dictionary.UserDBPath)
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "config.toml",
			content: `
version = 1
[keyboard]
correction_enabled = false
active_language = "vi"
enabled_languages = ["en", "vi"]
[engines]
th = "none"
`,
		},
		{
			name: "json",
			file: "config.json",
			content: `{"version": 1, "keyboard": {"correction_enabled": false, "active_language": "vi",
"enabled_languages": ["en", "vi"]}, "engines": {"th": "none"}}`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `
version: 1
keyboard:
  correction_enabled: false
  active_language: vi
  enabled_languages: [en, vi]
engines:
  th: none
`,
		},
		{
			name: "detected",
			file: "config",
			content: `
[keyboard]
correction_enabled = false
active_language = "vi"
enabled_languages = ["en", "vi"]
[engines]
th = "none"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			cfg, err := Load(path)
			require.NoError(t, err)

			assert.False(t, cfg.Keyboard.CorrectionEnabled)
			assert.Equal(t, "vi", cfg.Keyboard.ActiveLanguage)
			assert.Equal(t, []string{"en", "vi"}, cfg.Keyboard.EnabledLanguages)
			assert.Equal(t, EngineNone, cfg.Engines["th"])
			// Untouched keys keep their defaults.
			assert.True(t, cfg.Keyboard.NextWordPrediction)
			assert.Equal(t, 500, cfg.Keyboard.BackspaceDelayMs)
		})
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.Keyboard.ActiveLanguage)
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "[keyboard]\ncorection_enabled = true\n"},
		{"wrong type", "[keyboard]\ncorrection_enabled = \"yes\"\n"},
		{"bad engine kind", "[engines]\nzh = \"pinyin\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "schema validation")
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Keyboard.ScriptPriority = "cyrillic"
	cfg.Keyboard.BackspaceRepeatMs = 0
	cfg.Engines["zh@pinyin"] = EngineCJK
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.ElementsMatch(t, []string{
		"keyboard.script_priority",
		"keyboard.backspace_repeat_ms",
		"engines.zh@pinyin",
		"logging.file_path",
	}, verrs.Fields())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MALIIT_KEYBOARD_LANGUAGE", "th")
	t.Setenv("MALIIT_KEYBOARD_CORRECTION", "off")
	t.Setenv("MALIIT_KEYBOARD_USER_DB", ":memory:")
	t.Setenv("MALIIT_KEYBOARD_PREDICTION", "maybe")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "th", cfg.Keyboard.ActiveLanguage)
	assert.False(t, cfg.Keyboard.CorrectionEnabled)
	assert.Equal(t, ":memory:", cfg.Dictionary.UserDBPath)
	assert.True(t, cfg.Keyboard.NextWordPrediction, "unparseable booleans are ignored")
}

func TestChangedKeys(t *testing.T) {
	old := DefaultConfig()
	updated := old.Clone()
	updated.Keyboard.FuzzyMatching = true
	updated.Keyboard.EnabledLanguages = append(updated.Keyboard.EnabledLanguages, "ko")

	assert.Equal(t, []string{KeyFuzzyMatching, KeyEnabledLanguages}, ChangedKeys(old, updated))
	assert.Empty(t, ChangedKeys(old, old.Clone()))
	assert.Equal(t, AllKeys, ChangedKeys(nil, updated))
	assert.Equal(t, []string{"en"}, old.Keyboard.EnabledLanguages, "Clone must not share slices")
}

func TestKeyLookup(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "true", cfg.String(KeyAutoCaps))
	assert.Equal(t, "1000", cfg.String(KeyCycleTimeout))
	assert.Equal(t, "", cfg.String("/maliit/keyboard/unknown"))
	assert.False(t, cfg.Bool(KeyActiveLanguage))
}

func TestLoaderUpdateNotifies(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "config.toml"))
	_, err := loader.Load()
	require.NoError(t, err)

	var gotOld, gotNew *Config
	loader.OnChange(func(old, updated *Config) {
		gotOld, gotNew = old, updated
	})

	require.NoError(t, loader.Update(func(c *Config) {
		c.Keyboard.CorrectionEnabled = false
	}))
	require.NotNil(t, gotNew)
	assert.True(t, gotOld.Keyboard.CorrectionEnabled)
	assert.False(t, gotNew.Keyboard.CorrectionEnabled)
	assert.Same(t, gotNew, loader.Config())

	err = loader.Update(func(c *Config) { c.Keyboard.ScriptPriority = "" })
	require.Error(t, err)
	assert.Same(t, gotNew, loader.Config(), "invalid updates are not published")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	for _, ext := range []string{".toml", ".json", ".yaml"} {
		t.Run(strings.TrimPrefix(ext, "."), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "config"+ext)

			cfg := DefaultConfig()
			cfg.Keyboard.ActiveLanguage = "ko"
			cfg.Engines["vi"] = EngineDefault
			require.NoError(t, SaveConfig(cfg, path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "ko", loaded.Keyboard.ActiveLanguage)
			assert.Equal(t, EngineDefault, loaded.Engines["vi"])
		})
	}
}

func TestLoaderWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[keyboard]\nauto_caps = true\n"), 0600))

	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 4)
	loader.OnChange(func(_, updated *Config) { changed <- updated })

	require.NoError(t, loader.Watch())
	defer loader.Close()

	require.NoError(t, os.WriteFile(path, []byte("[keyboard]\nauto_caps = false\n"), 0600))

	select {
	case cfg := <-changed:
		assert.False(t, cfg.Keyboard.AutoCaps)
	case err := <-loader.Errors():
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestLoggerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	lc, err := cfg.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(10), lc.MaxSize)
	assert.Equal(t, "stderr", lc.Output)

	cfg.Logging.Level = "loud"
	_, err = cfg.LoggerConfig()
	assert.Error(t, err)
}
