package metrics

import (
	"time"
)

// KeyboardMetrics holds the composition pipeline metrics.
type KeyboardMetrics struct {
	registry *Registry

	// Counters
	KeyEventsTotal         *Counter
	CommitsTotal           *Counter
	BackspacesTotal        *Counter
	CandidateQueriesTotal  *Counter
	LanguageSwitchesTotal  *Counter
	EngineUnavailableTotal *Counter
	HandlerInterceptsTotal *Counter

	// Gauges
	PreeditLength *Gauge

	// Histograms
	CandidateQueryDuration *Histogram
}

// NewKeyboardMetrics creates and registers all keyboard metrics. A nil
// registry means the default one.
func NewKeyboardMetrics(registry *Registry) *KeyboardMetrics {
	if registry == nil {
		registry = Default()
	}

	return &KeyboardMetrics{
		registry: registry,

		KeyEventsTotal: registry.RegisterCounter(
			"key_events_total",
			"Total number of key events handled",
			nil,
		),
		CommitsTotal: registry.RegisterCounter(
			"commits_total",
			"Total number of commit strings sent",
			nil,
		),
		BackspacesTotal: registry.RegisterCounter(
			"backspaces_total",
			"Total number of backspace deletions performed",
			nil,
		),
		CandidateQueriesTotal: registry.RegisterCounter(
			"candidate_queries_total",
			"Total number of candidate list recomputations",
			nil,
		),
		LanguageSwitchesTotal: registry.RegisterCounter(
			"language_switches_total",
			"Total number of active language changes",
			nil,
		),
		EngineUnavailableTotal: registry.RegisterCounter(
			"engine_unavailable_total",
			"Total number of engine construction or binding failures",
			nil,
		),
		HandlerInterceptsTotal: registry.RegisterCounter(
			"handler_intercepts_total",
			"Total number of key events consumed by a language handler",
			nil,
		),

		PreeditLength: registry.RegisterGauge(
			"preedit_length_runes",
			"Current preedit length in runes",
			nil,
		),

		CandidateQueryDuration: registry.RegisterHistogram(
			"candidate_query_duration_seconds",
			"Time spent recomputing candidates",
			nil,
			LatencyBuckets,
		),
	}
}

// RecordKeyEvent records one handled key event.
func (m *KeyboardMetrics) RecordKeyEvent() {
	m.KeyEventsTotal.Inc()
}

// RecordCommit records a commit string being sent.
func (m *KeyboardMetrics) RecordCommit() {
	m.CommitsTotal.Inc()
}

// RecordBackspace records one deletion.
func (m *KeyboardMetrics) RecordBackspace() {
	m.BackspacesTotal.Inc()
}

// RecordCandidateQuery records a candidate recomputation and its duration.
func (m *KeyboardMetrics) RecordCandidateQuery(d time.Duration) {
	m.CandidateQueriesTotal.Inc()
	m.CandidateQueryDuration.ObserveDuration(d)
}

// RecordLanguageSwitch records an active language change.
func (m *KeyboardMetrics) RecordLanguageSwitch() {
	m.LanguageSwitchesTotal.Inc()
}

// RecordEngineUnavailable records a failure to obtain a correction engine.
func (m *KeyboardMetrics) RecordEngineUnavailable() {
	m.EngineUnavailableTotal.Inc()
}

// RecordHandlerIntercept records a key consumed by a language handler.
func (m *KeyboardMetrics) RecordHandlerIntercept() {
	m.HandlerInterceptsTotal.Inc()
}

// SetPreeditLength sets the preedit length gauge.
func (m *KeyboardMetrics) SetPreeditLength(runes int) {
	m.PreeditLength.Set(int64(runes))
}

// Snapshot returns a snapshot of key metrics.
func (m *KeyboardMetrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"key_events_total":         m.KeyEventsTotal.Value(),
		"commits_total":            m.CommitsTotal.Value(),
		"backspaces_total":         m.BackspacesTotal.Value(),
		"candidate_queries_total":  m.CandidateQueriesTotal.Value(),
		"language_switches_total":  m.LanguageSwitchesTotal.Value(),
		"engine_unavailable_total": m.EngineUnavailableTotal.Value(),
		"handler_intercepts_total": m.HandlerInterceptsTotal.Value(),
		"preedit_length_runes":     m.PreeditLength.Value(),
	}
}
