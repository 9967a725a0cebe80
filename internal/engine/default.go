package engine

import (
	"maliitkeyboard/internal/correction"
)

// DefaultMaxCandidates caps the suggestions of Latin-script engines.
const DefaultMaxCandidates = 5

// Default drives word correction for alphabetic languages.
type Default struct {
	owned

	settings    Settings
	applied     bool
	subscribers []func(enabled bool)
}

var _ AbstractEngine = (*Default)(nil)

// NewDefault creates the "default" engine from factory. A failure is logged
// and leaves Engine nil.
func NewDefault(factory correction.Factory, opts Options) *Default {
	d := &Default{owned: acquire(factory, opts, "default")}
	if d.engine != nil {
		d.engine.SetMaximumCandidates(DefaultMaxCandidates)
		d.engine.SetExactWordPositionInList(correction.ExactWordPositionFirst)
	}
	return d
}

// OnCorrectionChanged registers fn to run when the correction setting flips.
func (d *Default) OnCorrectionChanged(fn func(enabled bool)) {
	d.subscribers = append(d.subscribers, fn)
}

func (d *Default) UpdateEngineLanguage(tag string) error {
	if err := d.bind(tag); err != nil {
		return err
	}
	if d.applied {
		d.push(d.settings)
	}
	return nil
}

// ApplySettings mirrors correction, correction-with-space and prediction.
// Correction and completion are switched together.
func (d *Default) ApplySettings(s Settings) {
	changed := d.applied && s.CorrectionEnabled != d.settings.CorrectionEnabled
	d.settings = s
	d.applied = true

	if d.engine != nil {
		d.push(s)
	}
	if changed {
		for _, fn := range d.subscribers {
			fn(s.CorrectionEnabled)
		}
	}
}

func (d *Default) push(s Settings) {
	if s.CorrectionEnabled {
		d.engine.EnableCorrection()
		d.engine.EnableCompletion()
	} else {
		d.engine.DisableCorrection()
		d.engine.DisableCompletion()
	}
	if s.NextWordPrediction {
		d.engine.EnablePrediction()
	} else {
		d.engine.DisablePrediction()
	}
}

func (d *Default) CorrectionAcceptedWithSpace() bool {
	return d.settings.CorrectionWithSpace
}

func (*Default) CandidateMode() WidgetMode { return WidgetFloating }
