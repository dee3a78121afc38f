package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Perceptus-Labs/sentinel-go-sdk/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventLog is the append-only operator feed for one session: transcriptions,
// analyses, risk events, tool acknowledgements and error entries, in wall
// clock order. Entries are never mutated after append; readers get copies
// via Snapshot so no callback ever holds a reference into live state.
//
// When a Redis client is configured, every entry is additionally published
// to a per-session Pub/Sub channel for live dashboards. Publishing is best
// effort and ephemeral.
type EventLog struct {
	mu      sync.Mutex
	entries []models.LogEntry

	redisClient *redis.Client
	channel     string
	logger      *zap.Logger
}

func NewEventLog(redisClient *redis.Client, sessionID string, logger *zap.Logger) *EventLog {
	return &EventLog{
		redisClient: redisClient,
		channel:     "sentinel:feed:" + sessionID,
		logger:      logger,
	}
}

// Append records one entry with the current timestamp.
func (l *EventLog) Append(kind models.LogKind, text string) {
	entry := models.LogEntry{
		Kind:      kind,
		Text:      text,
		Timestamp: time.Now(),
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	if kind == models.LogKindError {
		l.logger.Warn("Log entry", zap.String("kind", string(kind)), zap.String("text", text))
	} else {
		l.logger.Debug("Log entry", zap.String("kind", string(kind)), zap.String("text", text))
	}

	l.publish(entry)
}

func (l *EventLog) publish(entry models.LogEntry) {
	if l.redisClient == nil {
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		l.logger.Error("Failed to marshal feed entry", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.redisClient.Publish(ctx, l.channel, payload).Err(); err != nil {
		l.logger.Debug("Failed to publish feed entry", zap.Error(err))
	}
}

// Snapshot returns a copy of all entries appended so far.
func (l *EventLog) Snapshot() []models.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of entries appended so far.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
