package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Perceptus-Labs/sentinel-go-sdk/models"
	"github.com/Perceptus-Labs/sentinel-go-sdk/utils"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// wireConn is the slice of a websocket connection the session needs.
// *websocket.Conn satisfies it.
type wireConn interface {
	WriteJSON(v interface{}) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// MonitorSession owns the one live connection to the inference service:
// open, feed media, receive messages, close. Per-item failures (a single
// dropped frame, a failed tool call) never tear the session down; only
// transport-level failures do. A multi-minute session must survive a flaky
// frame.
type MonitorSession struct {
	ID     string
	Logger *zap.Logger

	cfg  *utils.Config
	dial func(ctx context.Context) (wireConn, error)

	mu      sync.Mutex
	writeMu sync.Mutex
	status  models.SessionStatus
	conn    wireConn
	cancel  context.CancelFunc
	started bool
	alive   atomic.Bool

	queue   *InboundQueue
	decoder *StreamDecoder
	risk    *RiskMonitor
	tools   *ToolDispatcher
	capture *CaptureScheduler
	log     *EventLog

	onStatus func(models.SessionStatus)
}

// NewMonitorSession wires the full pipeline for one run. The Redis client is
// optional; nil disables the live feed publishing.
func NewMonitorSession(cfg *utils.Config, redisClient *redis.Client) *MonitorSession {
	id := uuid.New().String()
	logger := zap.L().With(zap.String("session_id", id))

	s := &MonitorSession{
		ID:     id,
		Logger: logger,
		cfg:    cfg,
		status: models.StatusDisconnected,
	}
	s.dial = s.dialWebsocket

	s.log = NewEventLog(redisClient, id, logger)
	s.risk = NewRiskMonitor(s.log, logger)
	s.tools = NewToolDispatcher(utils.NewActuatorClient(cfg.ActuatorBaseURL), s.risk, s.log, logger)
	s.decoder = NewStreamDecoder(s.risk.Ingest, s.dispatchTool, s.log, logger)
	s.queue = NewInboundQueue(cfg.DecodeInterval, s.decoder.ProcessMessage, logger)
	s.capture = NewCaptureScheduler(s,
		utils.NewCamera(cfg.CameraDevice),
		utils.NewMicrophone(cfg.AudioDevice, cfg.NativeSampleRate),
		cfg.FrameInterval, logger)

	return s
}

// OnStatus registers an observer for connection status changes. Must be set
// before Start.
func (s *MonitorSession) OnStatus(fn func(models.SessionStatus)) {
	s.onStatus = fn
}

// Status returns the current connection status.
func (s *MonitorSession) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Log exposes the operator feed.
func (s *MonitorSession) Log() *EventLog {
	return s.log
}

// Risk exposes the risk monitor.
func (s *MonitorSession) Risk() *RiskMonitor {
	return s.risk
}

func (s *MonitorSession) setStatus(status models.SessionStatus) {
	s.mu.Lock()
	if s.status == status {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.mu.Unlock()

	s.Logger.Info("Session status changed", zap.String("status", string(status)))
	if s.onStatus != nil {
		s.onStatus(status)
	}
}

// Start opens the remote session. Only legal from Disconnected; calling it
// while already connecting or connected is a guarded no-op, so resources are
// never double-initialized.
func (s *MonitorSession) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.Logger.Debug("Start ignored, session already active")
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.setStatus(models.StatusConnecting)

	ctx, cancel := context.WithCancel(context.Background())

	conn, err := s.dial(ctx)
	if err != nil {
		cancel()
		s.setStatus(models.StatusError)
		s.teardown()
		return fmt.Errorf("failed to open live session: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.handshake(conn); err != nil {
		s.setStatus(models.StatusError)
		s.teardown()
		return err
	}

	s.alive.Store(true)
	s.setStatus(models.StatusConnected)
	s.log.Append(models.LogKindEvent, "Session connected")

	go s.readLoop(conn)
	go s.queue.Run(ctx)
	if s.capture != nil {
		go s.capture.Run(ctx)
	}

	return nil
}

func (s *MonitorSession) dialWebsocket(ctx context.Context) (wireConn, error) {
	endpoint := s.cfg.LiveEndpoint
	if s.cfg.APIKey != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + "key=" + s.cfg.APIKey
	}

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// handshake sends the setup message and waits for the remote to acknowledge
// the session open.
func (s *MonitorSession) handshake(conn wireConn) error {
	setup := models.ClientMessage{
		Setup: &models.SetupPayload{
			Model:              s.cfg.Model,
			SystemInstruction:  s.cfg.SystemInstruction,
			ResponseModalities: []string{"TEXT"},
		},
	}
	if err := s.writeJSON(setup); err != nil {
		return fmt.Errorf("failed to send setup: %w", err)
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read setup acknowledgement: %w", err)
	}
	var msg models.ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.SetupComplete == nil {
		return fmt.Errorf("unexpected setup response: %s", raw)
	}
	return nil
}

// Stop releases everything owned by the session exactly once: the remote
// connection, the capture devices, the pending queue. Legal from any state
// and safe to call repeatedly; it is the single cancellation point.
func (s *MonitorSession) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	s.Logger.Info("Stopping session")
	s.teardown()
	s.log.Append(models.LogKindEvent, "Session stopped")
}

func (s *MonitorSession) teardown() {
	s.alive.Store(false)

	s.mu.Lock()
	conn := s.conn
	cancel := s.cancel
	s.conn = nil
	s.cancel = nil
	s.started = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	s.queue.Clear()
	s.decoder.Reset()

	s.setStatus(models.StatusDisconnected)
}

// SendMedia transmits one frame best-effort. A failed transmission is
// logged and dropped; the frame is gone but the session lives on, unless
// the error is connection-level.
func (s *MonitorSession) SendMedia(frame models.MediaFrame) {
	if !s.alive.Load() || s.Status() != models.StatusConnected {
		return
	}

	msg := models.ClientMessage{
		RealtimeInput: &models.RealtimeInput{
			MediaChunks: []models.MediaChunk{{
				MimeType: frame.MimeType,
				Data:     base64.StdEncoding.EncodeToString(frame.Data),
			}},
		},
	}

	if err := s.writeJSON(msg); err != nil {
		if isConnectionError(err) {
			s.connectionLost(err)
			return
		}
		s.Logger.Warn("Dropping media frame",
			zap.String("mime_type", frame.MimeType),
			zap.Error(err))
	}
}

func (s *MonitorSession) writeJSON(v interface{}) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("session has no connection")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// readLoop pushes every received server message into the inbound queue.
// A read error after Stop is the expected wakeup and is ignored.
func (s *MonitorSession) readLoop(conn wireConn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !s.alive.Load() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.Logger.Info("Remote closed the session")
				s.log.Append(models.LogKindEvent, "Session closed by remote")
				s.Stop()
				return
			}
			s.connectionLost(err)
			return
		}
		s.queue.Push(raw)
	}
}

func (s *MonitorSession) connectionLost(err error) {
	s.Logger.Error("Connection failure", zap.Error(err))
	s.log.Append(models.LogKindError, fmt.Sprintf("Connection lost: %v", err))
	s.setStatus(models.StatusError)
	s.Stop()
}

// dispatchTool runs a tool invocation off the decode pass. Completions that
// arrive after Stop are dropped by the liveness check.
func (s *MonitorSession) dispatchTool(inv models.ToolInvocation) {
	if !s.alive.Load() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.tools.Dispatch(ctx, inv)
	}()
}

// isConnectionError classifies an error as transport-level by message
// content. Everything else is a per-item failure.
func isConnectionError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{
		"connection", "network", "timeout", "close", "broken pipe", "reset by peer", "eof",
	} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}
