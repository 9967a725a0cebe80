package engine

import (
	"fmt"

	"maliitkeyboard/internal/correction"
)

var cjkLanguages = map[string]bool{"zh": true, "ja": true, "ko": true}

// CJK drives conversion engines for Chinese, Japanese and Korean. The
// engine works on the base language; the variant only selects the input
// scheme.
type CJK struct {
	owned

	variant  string
	settings Settings
	applied  bool
}

var _ AbstractEngine = (*CJK)(nil)

// NewCJK creates the "cjk" engine from factory. A failure is logged and
// leaves Engine nil.
func NewCJK(factory correction.Factory, opts Options) *CJK {
	return &CJK{owned: acquire(factory, opts, "cjk")}
}

// Variant returns the "@variant" part of the last bound tag.
func (c *CJK) Variant() string { return c.variant }

func (c *CJK) UpdateEngineLanguage(tag string) error {
	base, variant := SplitTag(tag)
	if !cjkLanguages[base] {
		c.bound = false
		return fmt.Errorf("cjk engine: %q: %w", tag, ErrUnsupportedLanguage)
	}
	c.variant = variant
	if err := c.bind(base); err != nil {
		return err
	}
	if c.applied {
		c.push(c.settings)
	}
	return nil
}

// ApplySettings mirrors fuzzy matching, prediction and the Han script.
func (c *CJK) ApplySettings(s Settings) {
	c.settings = s
	c.applied = true
	if c.engine != nil {
		c.push(s)
	}
}

func (c *CJK) push(s Settings) {
	if s.NextWordPrediction {
		c.engine.EnablePrediction()
	} else {
		c.engine.DisablePrediction()
	}

	se, ok := c.engine.(correction.ScriptEngine)
	if !ok {
		return
	}
	if s.FuzzyMatching {
		se.EnableFuzzyMatching()
	} else {
		se.DisableFuzzyMatching()
	}
	se.SetScript(s.Script)
}

// CorrectionAcceptedWithSpace is always false: space does not accept a
// conversion candidate.
func (*CJK) CorrectionAcceptedWithSpace() bool { return false }

func (*CJK) CandidateMode() WidgetMode { return WidgetList }
