package handlers

import (
	"sync"

	"github.com/Perceptus-Labs/sentinel-go-sdk/models"
	"go.uber.org/zap"
)

// RiskMonitor holds the session's current risk level, starting at SAFE.
// The inference service is the sole authority on the level: any transition,
// downgrades included, is accepted. The monitor only detects changes and
// emits exactly one risk event per actual change.
type RiskMonitor struct {
	mu    sync.Mutex
	level models.RiskLevel

	log      *EventLog
	logger   *zap.Logger
	onChange func(models.RiskLevel)
}

func NewRiskMonitor(log *EventLog, logger *zap.Logger) *RiskMonitor {
	return &RiskMonitor{
		level:  models.RiskSafe,
		log:    log,
		logger: logger,
	}
}

// OnChange registers a callback invoked after each committed level change.
// Must be set before the session starts feeding records.
func (r *RiskMonitor) OnChange(fn func(models.RiskLevel)) {
	r.onChange = fn
}

// Level returns the current risk level.
func (r *RiskMonitor) Level() models.RiskLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// Commit sets the level, emitting a risk event when it actually changed.
// Returns true on change, false when the level was already current.
func (r *RiskMonitor) Commit(level models.RiskLevel) bool {
	r.mu.Lock()
	if r.level == level {
		r.mu.Unlock()
		return false
	}
	prev := r.level
	r.level = level
	r.mu.Unlock()

	r.logger.Info("Risk level changed",
		zap.String("from", string(prev)),
		zap.String("to", string(level)))
	r.log.Append(models.LogKindEvent, "Risk level changed to "+string(level))

	if r.onChange != nil {
		r.onChange(level)
	}
	return true
}

// Elevate commits the level only when it ranks above the current one. Used
// for optimistic tool side effects that must not downgrade an already
// elevated state.
func (r *RiskMonitor) Elevate(level models.RiskLevel) bool {
	r.mu.Lock()
	current := r.level
	r.mu.Unlock()

	if level.Rank() <= current.Rank() {
		return false
	}
	return r.Commit(level)
}

// Ingest folds one decoded analysis record into the session state: the
// transcription and analysis strings go to the operator feed, the thought
// is kept at debug verbosity, and the risk level is committed if present.
func (r *RiskMonitor) Ingest(rec models.AnalysisRecord) {
	if rec.Thought != "" {
		r.logger.Debug("Model thought", zap.String("thought", rec.Thought))
	}
	if rec.Transcription != "" {
		r.log.Append(models.LogKindTranscription, rec.Transcription)
	}
	if rec.Analysis != "" {
		r.log.Append(models.LogKindAnalysis, rec.Analysis)
	}
	if rec.RiskLevel != "" {
		if level, ok := models.ParseRiskLevel(rec.RiskLevel); ok {
			r.Commit(level)
		} else {
			r.log.Append(models.LogKindError, "Unknown risk level: "+rec.RiskLevel)
		}
	}
}
