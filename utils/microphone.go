package utils

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// Microphone streams raw mono s16le PCM from a local capture device at the
// device's native sample rate, again via ffmpeg. Callers read from the
// command's stdout and resample down to 16 kHz themselves.
type Microphone struct {
	Device     string
	SampleRate int

	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func NewMicrophone(device string, sampleRate int) *Microphone {
	return &Microphone{Device: device, SampleRate: sampleRate}
}

func (m *Microphone) captureCommand() (*exec.Cmd, error) {
	device := m.Device
	switch runtime.GOOS {
	case "darwin":
		if device == "" {
			device = ":0"
		}
		return exec.Command("ffmpeg",
			"-f", "avfoundation",
			"-i", device,
			"-ac", "1",
			"-ar", fmt.Sprintf("%d", m.SampleRate),
			"-f", "s16le",
			"-"), nil
	case "linux":
		if device == "" {
			device = "default"
		}
		return exec.Command("ffmpeg",
			"-f", "alsa",
			"-i", device,
			"-ac", "1",
			"-ar", fmt.Sprintf("%d", m.SampleRate),
			"-f", "s16le",
			"-"), nil
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// Start launches the capture process. It is an error to start a microphone
// twice without stopping it first.
func (m *Microphone) Start() error {
	if m.cmd != nil {
		return fmt.Errorf("microphone already started")
	}

	cmd, err := m.captureCommand()
	if err != nil {
		return err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open capture pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start audio capture: %w", err)
	}

	m.cmd = cmd
	m.stdout = stdout
	zap.L().Info("Microphone capture started", zap.Int("sample_rate", m.SampleRate))
	return nil
}

// Read fills buf with raw PCM bytes from the capture stream.
func (m *Microphone) Read(buf []byte) (int, error) {
	if m.stdout == nil {
		return 0, fmt.Errorf("microphone not started")
	}
	return m.stdout.Read(buf)
}

// Stop terminates the capture process. Safe to call when not started.
func (m *Microphone) Stop() {
	if m.cmd == nil {
		return
	}
	if m.stdout != nil {
		m.stdout.Close()
	}
	if m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
	}
	_ = m.cmd.Wait()
	m.cmd = nil
	m.stdout = nil
	zap.L().Info("Microphone capture stopped")
}
