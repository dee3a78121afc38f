package models

import (
	"time"
)

// RiskLevel is the three-valued threat classification reported by the
// inference service. The remote side is the sole authority on the level;
// locally we only detect and log changes.
type RiskLevel string

const (
	RiskSafe    RiskLevel = "SAFE"
	RiskWarning RiskLevel = "WARNING"
	RiskDanger  RiskLevel = "DANGER"
)

// ParseRiskLevel maps a wire string onto a RiskLevel. The second return is
// false for anything outside the three known values.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch RiskLevel(s) {
	case RiskSafe, RiskWarning, RiskDanger:
		return RiskLevel(s), true
	}
	return "", false
}

// Rank orders levels for "already elevated" checks. SAFE < WARNING < DANGER.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskWarning:
		return 1
	case RiskDanger:
		return 2
	}
	return 0
}

// SessionStatus is the observable connection state of a monitor session.
type SessionStatus string

const (
	StatusDisconnected SessionStatus = "disconnected"
	StatusConnecting   SessionStatus = "connecting"
	StatusConnected    SessionStatus = "connected"
	StatusError        SessionStatus = "error"
)

// AnalysisRecord is one structured analysis unit decoded from the response
// stream. Immutable once produced.
type AnalysisRecord struct {
	Thought       string `json:"thought"`
	Analysis      string `json:"analysis,omitempty"`
	Transcription string `json:"transcription,omitempty"`
	RiskLevel     string `json:"riskLevel,omitempty"`
}

// ToolInvocation is a model-issued request to run a named side-effecting
// action against an actuator endpoint.
type ToolInvocation struct {
	Name      string
	Arguments map[string]interface{}
}

// Tool names the inference service may invoke.
const (
	ToolCall911          = "call911"
	ToolSendNotification = "sendNotification"
	ToolDoor             = "door"
)

// LogKind tags entries in the operator feed.
type LogKind string

const (
	LogKindTranscription LogKind = "transcription"
	LogKindAnalysis      LogKind = "analysis"
	LogKindEvent         LogKind = "event"
	LogKindTool          LogKind = "tool"
	LogKindError         LogKind = "error"
)

// LogEntry is one append-only, time-ordered record shown to the operator.
// Entries are never mutated after creation.
type LogEntry struct {
	Kind      LogKind   `json:"kind"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// MediaFrame is a transient unit of captured media: a JPEG still or a chunk
// of 16-bit little-endian PCM at 16 kHz. Produced by the capture scheduler,
// consumed immediately by the session, never retained.
type MediaFrame struct {
	MimeType string
	Data     []byte
}

// Media mime types on the wire.
const (
	MimeJPEG     = "image/jpeg"
	MimePCM16kHz = "audio/pcm;rate=16000"
)
