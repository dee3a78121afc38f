package handlers

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Perceptus-Labs/sentinel-go-sdk/models"
	"github.com/Perceptus-Labs/sentinel-go-sdk/utils"
	"go.uber.org/zap"
)

// mediaSink is where captured frames go. Satisfied by MonitorSession.
type mediaSink interface {
	Status() models.SessionStatus
	SendMedia(frame models.MediaFrame)
}

// CaptureScheduler produces the outbound media: JPEG stills on a fixed
// wall-clock cadence and a continuous run of fixed-size 16 kHz PCM chunks
// resampled from the microphone's native rate. Capture quietly no-ops while
// the session is not connected or the camera is still warming up; a failed
// transmission never stops production.
type CaptureScheduler struct {
	sink   mediaSink
	camera *utils.Camera
	mic    *utils.Microphone

	frameInterval time.Duration
	logger        *zap.Logger
}

// Samples per outbound audio chunk: 100 ms at 16 kHz.
const audioChunkSamples = 1600

func NewCaptureScheduler(sink mediaSink, camera *utils.Camera, mic *utils.Microphone, frameInterval time.Duration, logger *zap.Logger) *CaptureScheduler {
	return &CaptureScheduler{
		sink:          sink,
		camera:        camera,
		mic:           mic,
		frameInterval: frameInterval,
		logger:        logger,
	}
}

// Run starts the frame and audio loops and blocks until the context ends.
func (s *CaptureScheduler) Run(ctx context.Context) {
	s.logger.Info("Capture scheduler started", zap.Duration("frame_interval", s.frameInterval))

	go s.audioLoop(ctx)
	s.frameLoop(ctx)
}

func (s *CaptureScheduler) frameLoop(ctx context.Context) {
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Frame loop stopped")
			return
		case <-ticker.C:
			s.captureFrame()
		}
	}
}

func (s *CaptureScheduler) captureFrame() {
	if s.sink.Status() != models.StatusConnected {
		return
	}

	jpeg, err := s.camera.CaptureJPEG()
	if err != nil {
		if !s.camera.Ready() {
			// Normal during connection setup: the device has not
			// buffered enough frames yet.
			s.logger.Debug("Camera not ready yet", zap.Error(err))
			return
		}
		s.logger.Warn("Frame capture failed", zap.Error(err))
		return
	}

	s.sink.SendMedia(models.MediaFrame{MimeType: models.MimeJPEG, Data: jpeg})
}

func (s *CaptureScheduler) audioLoop(ctx context.Context) {
	if err := s.mic.Start(); err != nil {
		s.logger.Error("Audio capture unavailable", zap.Error(err))
		return
	}
	defer s.mic.Stop()

	assembler := utils.ChunkAssembler{Size: audioChunkSamples}
	buf := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Audio loop stopped")
			return
		default:
		}

		n, err := s.mic.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Warn("Audio read failed", zap.Error(err))
			}
			return
		}

		samples := utils.Decimate(utils.BytesToSamples(buf[:n]), s.mic.SampleRate)
		for _, chunk := range assembler.Push(samples) {
			if s.sink.Status() != models.StatusConnected {
				continue
			}
			s.sink.SendMedia(models.MediaFrame{
				MimeType: models.MimePCM16kHz,
				Data:     utils.SamplesToBytes(chunk),
			})
		}
	}
}
