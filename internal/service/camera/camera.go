// Package camera acquires a live capture device through OpenCV.
package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

var (
	ErrNoDevice         = errors.New("no matching camera device")
	ErrPermissionDenied = errors.New("camera permission denied")
)

// Constraints is a request, not a guarantee: the device may grant another resolution.
type Constraints struct {
	Device int
	Facing string // "environment" or "user"; maps to Device since OpenCV cannot select by facing
	Width  int    // ideal
	Height int    // ideal
}

// Camera is an open capture device.
type Camera struct {
	capture *gocv.VideoCapture

	mu     sync.Mutex
	closed bool
}

// Acquire opens the device described by c. It blocks until the device is open
// or ctx is done; a device that finishes opening after ctx is done is closed.
func Acquire(ctx context.Context, c Constraints) (*Camera, error) {
	type opened struct {
		capture *gocv.VideoCapture
		err     error
	}
	done := make(chan opened, 1)

	go func() {
		capture, err := open(c)
		done <- opened{capture: capture, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if o := <-done; o.capture != nil {
				o.capture.Close()
			}
		}()
		return nil, fmt.Errorf("camera %d: %w", c.Device, ctx.Err())
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		return &Camera{capture: o.capture}, nil
	}
}

func open(c Constraints) (*gocv.VideoCapture, error) {
	capture, err := gocv.OpenVideoCapture(c.Device)
	if err != nil {
		return nil, fmt.Errorf("camera %d: %w: %v", c.Device, classify(c.Device, err), err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %d: %w", c.Device, classify(c.Device, nil))
	}

	if c.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	}
	if c.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	}
	return capture, nil
}

// classify tells a denied device from a missing one. OpenCV does not say, so
// on Linux the device node is checked directly.
func classify(device int, err error) error {
	if err != nil && (errors.Is(err, os.ErrPermission) || strings.Contains(strings.ToLower(err.Error()), "permission")) {
		return ErrPermissionDenied
	}
	if runtime.GOOS == "linux" {
		f, perr := os.Open(fmt.Sprintf("/dev/video%d", device))
		if perr == nil {
			f.Close()
		} else if os.IsPermission(perr) {
			return ErrPermissionDenied
		}
	}
	return ErrNoDevice
}

// Ready reports whether frames can be read.
func (c *Camera) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.capture.IsOpened()
}

// Read grabs the next frame into dst. It returns false when no frame is available.
func (c *Camera) Read(dst *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	return c.capture.Read(dst)
}

// Granted returns the resolution the device actually delivers.
func (c *Camera) Granted() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, 0
	}
	return int(c.capture.Get(gocv.VideoCaptureFrameWidth)), int(c.capture.Get(gocv.VideoCaptureFrameHeight))
}

// Close releases the device. It is safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.capture.Close()
}
