package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maliitkeyboard/internal/config"
	"maliitkeyboard/internal/correction"
	"maliitkeyboard/internal/correction/correctiontest"
	"maliitkeyboard/internal/handler"
	"maliitkeyboard/internal/logging"
	"maliitkeyboard/internal/metrics"
)

func testOptions() (Options, *metrics.KeyboardMetrics) {
	m := metrics.NewKeyboardMetrics(metrics.NewRegistry("test", "engine"))
	return Options{Logger: logging.Discard(), Metrics: m}, m
}

func TestSplitTag(t *testing.T) {
	tests := []struct {
		tag, base, variant string
	}{
		{"zh@pinyin", "zh", "pinyin"},
		{"fi", "fi", ""},
		{"ja@", "ja", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		base, variant := SplitTag(tt.tag)
		assert.Equal(t, tt.base, base, tt.tag)
		assert.Equal(t, tt.variant, variant, tt.tag)
		assert.Equal(t, tt.base, BaseLanguage(tt.tag))
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Keyboard.CorrectionEnabled = false
	cfg.Keyboard.FuzzyMatching = true
	cfg.Keyboard.ScriptPriority = config.ScriptTraditional

	s := SettingsFromConfig(cfg)
	assert.False(t, s.CorrectionEnabled)
	assert.True(t, s.FuzzyMatching)
	assert.Equal(t, correction.ScriptTraditional, s.Script)
	assert.Equal(t, cfg.Keyboard.NextWordPrediction, s.NextWordPrediction)
}

func TestDefaultEngine(t *testing.T) {
	f := &correctiontest.Factory{}
	opts, _ := testOptions()
	d := NewDefault(f, opts)

	fake := f.Last()
	require.NotNil(t, fake)
	assert.Equal(t, "default", fake.Name)
	assert.Equal(t, DefaultMaxCandidates, fake.MaxCandidates)
	assert.Equal(t, correction.ExactWordPositionFirst, fake.ExactPosition)
	assert.Nil(t, d.Engine(), "unbound engine is not exposed")

	require.NoError(t, d.UpdateEngineLanguage("fi"))
	assert.Same(t, fake, d.Engine())
	assert.Equal(t, "fi", fake.Language)
	assert.Equal(t, correction.PriorityPrimary, fake.Priority)
	assert.Equal(t, WidgetFloating, d.CandidateMode())
}

func TestDefaultEngineSettings(t *testing.T) {
	f := &correctiontest.Factory{}
	opts, _ := testOptions()
	d := NewDefault(f, opts)
	fake := f.Last()

	var notified []bool
	d.OnCorrectionChanged(func(enabled bool) { notified = append(notified, enabled) })

	d.ApplySettings(Settings{CorrectionEnabled: true, CorrectionWithSpace: true, NextWordPrediction: true})
	assert.True(t, fake.Correction)
	assert.True(t, fake.Completion)
	assert.True(t, fake.Prediction)
	assert.True(t, d.CorrectionAcceptedWithSpace())
	assert.Empty(t, notified, "first snapshot is not a change")

	d.ApplySettings(Settings{CorrectionEnabled: false})
	assert.False(t, fake.Correction)
	assert.False(t, fake.Completion)
	assert.False(t, fake.Prediction)
	assert.False(t, d.CorrectionAcceptedWithSpace())
	assert.Equal(t, []bool{false}, notified)

	d.ApplySettings(Settings{CorrectionEnabled: false, NextWordPrediction: true})
	assert.Equal(t, []bool{false}, notified, "unchanged correction flag is not announced")
}

func TestEngineUnavailable(t *testing.T) {
	f := &correctiontest.Factory{Fail: map[string]bool{"default": true}}
	opts, m := testOptions()
	d := NewDefault(f, opts)

	assert.Nil(t, d.Engine())
	assert.Error(t, d.UpdateEngineLanguage("fi"))
	assert.Nil(t, d.Engine())
	assert.Equal(t, uint64(1), m.EngineUnavailableTotal.Value())

	d.ApplySettings(Settings{CorrectionEnabled: true})
	assert.NoError(t, d.Close())
}

func TestLanguageBindingFailure(t *testing.T) {
	bindErr := errors.New("no such language")
	f := &correctiontest.Factory{Configure: func(e *correctiontest.Engine) { e.LanguageErr = bindErr }}
	opts, _ := testOptions()
	d := NewDefault(f, opts)

	err := d.UpdateEngineLanguage("xx")
	assert.ErrorIs(t, err, bindErr)
	assert.Nil(t, d.Engine())

	f.Last().LanguageErr = nil
	require.NoError(t, d.UpdateEngineLanguage("fi"))
	assert.NotNil(t, d.Engine())
}

func TestCloseReleasesOnce(t *testing.T) {
	f := &correctiontest.Factory{}
	opts, _ := testOptions()
	d := NewDefault(f, opts)
	fake := f.Last()

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, 1, f.Releases(fake))
	assert.Nil(t, d.Engine())
}

func TestCJKEngine(t *testing.T) {
	f := &correctiontest.Factory{}
	opts, _ := testOptions()
	c := NewCJK(f, opts)
	fake := f.Last()
	assert.Equal(t, "cjk", fake.Name)

	err := c.UpdateEngineLanguage("fi")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.Nil(t, c.Engine())

	require.NoError(t, c.UpdateEngineLanguage("zh@pinyin"))
	assert.Equal(t, "zh", fake.Language)
	assert.Equal(t, "pinyin", c.Variant())
	assert.NotNil(t, c.Engine())

	c.ApplySettings(Settings{FuzzyMatching: true, NextWordPrediction: true, Script: correction.ScriptTraditional})
	assert.True(t, fake.Fuzzy)
	assert.True(t, fake.Prediction)
	assert.Equal(t, correction.ScriptTraditional, fake.Script)

	c.ApplySettings(Settings{CorrectionWithSpace: true})
	assert.False(t, fake.Fuzzy)
	assert.False(t, fake.Prediction)
	assert.Equal(t, correction.ScriptSimplified, fake.Script)
	assert.False(t, c.CorrectionAcceptedWithSpace())
	assert.Equal(t, WidgetList, c.CandidateMode())

	require.NoError(t, c.UpdateEngineLanguage("ja"))
	assert.Equal(t, "", c.Variant())
}

type recordingObserver struct {
	outgoing []handler.Handler
	changed  []string
}

func (r *recordingObserver) LanguageWillChange(h handler.Handler) { r.outgoing = append(r.outgoing, h) }
func (r *recordingObserver) LanguageChanged(tag string)           { r.changed = append(r.changed, tag) }

type countingHangul struct {
	clears int
}

func (c *countingHangul) AppendCharacter(rune)         {}
func (c *countingHangul) Candidates(int, int) []string { return nil }
func (c *countingHangul) ClearEngineBuffer()           { c.clears++ }

func newTestManager(t *testing.T) (*Manager, *correctiontest.Factory, *recordingObserver) {
	t.Helper()
	f := &correctiontest.Factory{}
	opts, m := testOptions()
	mgr := NewManager(ManagerOptions{
		DefaultEngine: func(string) AbstractEngine { return NewDefault(f, opts) },
		Logger:        opts.Logger,
		Metrics:       m,
	})
	require.NoError(t, mgr.RegisterBuiltins(map[string]string{
		"zh": config.EngineCJK,
		"ja": config.EngineCJK,
		"ko": config.EngineNone,
	}, f))
	obs := &recordingObserver{}
	mgr.SetObserver(obs)
	t.Cleanup(func() { mgr.Close() })
	return mgr, f, obs
}

func TestManagerSharesDefault(t *testing.T) {
	mgr, f, _ := newTestManager(t)

	require.True(t, mgr.UpdateLanguage("fi"))
	fiEngine := mgr.AbstractEngine()
	require.True(t, mgr.UpdateLanguage("sv"))
	assert.Same(t, fiEngine, mgr.AbstractEngine())
	assert.Len(t, f.Created, 1)
	assert.Equal(t, "sv", f.Last().Language)
	assert.Equal(t, handler.KindDefault, mgr.Handler().Kind())
}

func TestManagerIdempotentSwitch(t *testing.T) {
	mgr, f, obs := newTestManager(t)

	require.True(t, mgr.UpdateLanguage("en"))
	calls := len(f.Last().Calls)

	assert.False(t, mgr.UpdateLanguage("en"))
	assert.Equal(t, []string{"en"}, obs.changed)
	assert.Empty(t, obs.outgoing, "nothing is outgoing on the first switch")
	assert.Len(t, f.Last().Calls, calls, "engine untouched by a repeated switch")
}

func TestManagerOverrides(t *testing.T) {
	mgr, f, obs := newTestManager(t)

	require.True(t, mgr.UpdateLanguage("en"))
	english := mgr.Handler()
	assert.Equal(t, handler.KindEnglish, english.Kind())
	assert.True(t, english.Active())

	require.True(t, mgr.UpdateLanguage("zh@pinyin"))
	assert.Equal(t, "cjk", f.Last().Name)
	assert.Equal(t, "zh", f.Last().Language)
	assert.Equal(t, WidgetList, mgr.AbstractEngine().CandidateMode())
	assert.Equal(t, handler.KindDefault, mgr.Handler().Kind())
	assert.False(t, english.Active())
	assert.Equal(t, []handler.Handler{english}, obs.outgoing)

	require.True(t, mgr.UpdateLanguage("ko"))
	assert.Nil(t, mgr.Engine())
	assert.Nil(t, mgr.AbstractEngine())
	assert.Equal(t, handler.KindKorean, mgr.Handler().Kind())

	require.True(t, mgr.UpdateLanguage("vi"))
	assert.Equal(t, handler.KindTonal, mgr.Handler().Kind())
	assert.NotNil(t, mgr.Engine())
}

func TestManagerCachesByTag(t *testing.T) {
	mgr, f, _ := newTestManager(t)

	mgr.UpdateLanguage("zh")
	mgr.UpdateLanguage("fi")
	mgr.UpdateLanguage("zh")
	assert.Len(t, f.Created, 2)

	mgr.UpdateLanguage("zh@pinyin")
	assert.Len(t, f.Created, 3, "a different tag gets its own engine")
}

func TestManagerSkipsReactivatingSameHandler(t *testing.T) {
	hangul := &countingHangul{}
	korean := handler.NewKorean(hangul)

	mgr, _, _ := newTestManager(t)
	mgr.RegisterHandler("ko", func(string) handler.Handler { return korean })

	mgr.UpdateLanguage("ko")
	assert.Equal(t, 1, hangul.clears)
	assert.True(t, korean.Active())

	mgr.UpdateLanguage("ko@2set")
	assert.Equal(t, 1, hangul.clears, "same instance is not activated twice")

	mgr.UpdateLanguage("fi")
	assert.Equal(t, 2, hangul.clears)
	assert.False(t, korean.Active())
}

func TestManagerApplySettings(t *testing.T) {
	mgr, f, _ := newTestManager(t)

	mgr.ApplySettings(Settings{CorrectionEnabled: true, FuzzyMatching: true})
	mgr.UpdateLanguage("fi")
	assert.True(t, f.Last().Correction, "new engines get the current settings")

	mgr.UpdateLanguage("zh")
	cjk := f.Last()
	assert.True(t, cjk.Fuzzy)

	mgr.ApplySettings(Settings{})
	assert.False(t, f.Created[0].Correction)
	assert.False(t, cjk.Fuzzy)
	assert.Equal(t, Settings{}, mgr.Settings())
}

func TestManagerCloseReleasesEachEngineOnce(t *testing.T) {
	mgr, f, _ := newTestManager(t)
	for _, tag := range []string{"fi", "sv", "zh", "ja", "en"} {
		mgr.UpdateLanguage(tag)
	}
	require.Len(t, f.Created, 3)

	english := mgr.Handler()
	require.NoError(t, mgr.Close())
	require.NoError(t, mgr.Close())
	for _, e := range f.Created {
		assert.Equal(t, 1, f.Releases(e), e.Name)
	}
	assert.False(t, english.Active())
	assert.Nil(t, mgr.Engine())
	assert.False(t, mgr.UpdateLanguage("de"))
}

func TestRegisterBuiltinsRejectsUnknownEngine(t *testing.T) {
	mgr := NewManager(ManagerOptions{Logger: logging.Discard()})
	err := mgr.RegisterBuiltins(map[string]string{"fi": "hunspell"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestManagerWithoutDefaultEngine(t *testing.T) {
	mgr := NewManager(ManagerOptions{Logger: logging.Discard()})
	require.True(t, mgr.UpdateLanguage("fi"))
	assert.Nil(t, mgr.Engine())
	assert.NotNil(t, mgr.Handler())
	assert.True(t, mgr.Handler().Active())
}
