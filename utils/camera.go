package utils

import (
	"fmt"
	"os/exec"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
)

// Camera captures single JPEG stills from a local video device by shelling
// out to ffmpeg. During startup the device typically needs a moment before
// it delivers usable frames; Ready flips true after the first successful
// capture so callers can treat early failures as a warm-up condition rather
// than an error.
type Camera struct {
	DeviceID int
	ready    atomic.Bool
}

func NewCamera(deviceID int) *Camera {
	return &Camera{DeviceID: deviceID}
}

// Ready reports whether the device has produced at least one frame.
func (c *Camera) Ready() bool {
	return c.ready.Load()
}

func (c *Camera) captureCommand() (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("ffmpeg",
			"-f", "avfoundation",
			"-video_size", "640x480",
			"-framerate", "30",
			"-i", fmt.Sprintf("%d", c.DeviceID),
			"-vframes", "1",
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "2",
			"-"), nil
	case "linux":
		return exec.Command("ffmpeg",
			"-f", "v4l2",
			"-video_size", "640x480",
			"-i", fmt.Sprintf("/dev/video%d", c.DeviceID),
			"-vframes", "1",
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "2",
			"-"), nil
	case "windows":
		return exec.Command("ffmpeg",
			"-f", "dshow",
			"-video_size", "640x480",
			"-i", "video=\"USB Camera\"",
			"-vframes", "1",
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "2",
			"-"), nil
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// CaptureJPEG grabs one frame and returns the encoded JPEG bytes. On macOS
// imagesnap is tried as a fallback when ffmpeg fails.
func (c *Camera) CaptureJPEG() ([]byte, error) {
	cmd, err := c.captureCommand()
	if err != nil {
		return nil, err
	}

	output, err := cmd.Output()
	if err != nil && runtime.GOOS == "darwin" {
		zap.L().Debug("ffmpeg capture failed, trying imagesnap", zap.Error(err))
		output, err = exec.Command("imagesnap", "-d", fmt.Sprintf("%d", c.DeviceID), "-f", "jpeg", "-").Output()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to capture image: %w", err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("no image data captured")
	}

	c.ready.Store(true)
	zap.L().Debug("Captured frame", zap.Int("size", len(output)))
	return output, nil
}
