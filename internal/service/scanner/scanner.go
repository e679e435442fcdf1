// Package scanner runs the per-frame sample/decode loop and the detection
// state machine that decides when the shared scan result changes.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"qrscanner/internal/logger"
	"qrscanner/internal/service/decoder"
	"qrscanner/internal/service/raster"
	"qrscanner/internal/service/schedule"
)

// Sampler yields one raster per tick, or false when the source is not ready yet.
type Sampler interface {
	Sample() (raster.Buffer, bool)
	Close() error
}

// AcquireFunc obtains a sampler over a live camera. It is the only call that
// may block; errors are reported as *AcquisitionError.
type AcquireFunc func(ctx context.Context) (Sampler, error)

// ResultSink is what the scanner drives: the machine's publish/retract
// decisions plus the slot lifecycle tied to Start and Stop.
type ResultSink interface {
	PublishSink
	Open(session string)
	Close()
}

// Status is the scanner lifecycle as reported to users.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusStarting Status = "starting"
	StatusScanning Status = "scanning"
	StatusDenied   Status = "denied"
	StatusStopped  Status = "stopped"
)

// Stats counts what happened on each tick.
type Stats struct {
	Ticks     uint64 `json:"ticks"`
	NotReady  uint64 `json:"notReady"`
	Malformed uint64 `json:"malformed"`
	Faults    uint64 `json:"faults"`
	Decoded   uint64 `json:"decoded"`
	Missed    uint64 `json:"missed"`
}

// Report is a point-in-time view of the scanner for status endpoints.
type Report struct {
	Status   Status   `json:"status"`
	Message  string   `json:"message,omitempty"`
	Session  string   `json:"session,omitempty"`
	Policy   string   `json:"policy"`
	Stats    Stats    `json:"stats"`
	Snapshot Snapshot `json:"detection"`
}

// Options configures a Scanner.
type Options struct {
	Policy Policy
	Timing Timing
}

type Scanner struct {
	mu sync.Mutex

	opts    Options
	acquire AcquireFunc
	decoder decoder.Decoder
	sink    ResultSink
	host    Host
	logger  *logger.Logger

	// NewSession generates scan session ids; replaced in tests.
	NewSession func() string

	deadlines  *schedule.Deadlines
	machine    *Machine
	sampler    Sampler
	generation uint64
	stopped    bool
	closed     bool

	status    Status
	message   string
	session   string
	stats     Stats
	lastFrame raster.Buffer
}

func New(opts Options, acquire AcquireFunc, dec decoder.Decoder, sink ResultSink, host Host, logger *logger.Logger) *Scanner {
	deadlines := schedule.NewDeadlines()
	return &Scanner{
		opts:       opts,
		acquire:    acquire,
		decoder:    dec,
		sink:       sink,
		host:       host,
		logger:     logger,
		NewSession: uuid.NewString,
		deadlines:  deadlines,
		machine:    NewMachine(opts.Policy, opts.Timing, deadlines, sink, logger),
		status:     StatusIdle,
	}
}

// Start acquires the camera and requests the first tick. On an acquisition
// failure the status becomes denied and no tick is ever scheduled.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.status == StatusStarting || s.status == StatusScanning {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.status = StatusStarting
	s.message = ""
	s.stopped = false
	s.mu.Unlock()

	sampler, err := s.acquire(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		if err == nil {
			s.release(sampler)
		}
		return ErrClosed
	}
	if err != nil {
		acqErr := asAcquisitionError(err)
		s.status = StatusDenied
		s.message = "Camera access denied"
		s.logger.Error("❌ Error accessing camera: %v", acqErr)
		return acqErr
	}
	if s.stopped {
		s.release(sampler)
		return ErrStopped
	}

	s.sampler = sampler
	s.session = s.NewSession()
	s.stats = Stats{}
	s.sink.Open(s.session)
	s.status = StatusScanning
	s.generation++
	s.logger.Info("🔄 Scanning started (session %s, policy %s)", s.session, s.opts.Policy)

	s.requestFrame()
	return nil
}

// Stop ends the loop: no tick runs afterwards, pending deadlines are
// canceled, the camera is released and the shared result is emptied.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
}

// Close stops the scanner for good. A Start racing with Close, or called
// after it, releases whatever it acquired and returns ErrClosed.
func (s *Scanner) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stop()
}

func (s *Scanner) stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	s.generation++

	s.machine.Reset()
	s.deadlines.CancelAll()

	if s.sampler != nil {
		s.release(s.sampler)
		s.sampler = nil
	}

	switch s.status {
	case StatusScanning:
		s.sink.Close()
		s.status = StatusStopped
		s.logger.Info("🛑 Scanning stopped (session %s)", s.session)
	case StatusStarting, StatusIdle:
		s.status = StatusStopped
	}
}

func (s *Scanner) release(sampler Sampler) {
	if err := sampler.Close(); err != nil {
		s.logger.Warning("Failed to release camera: %v", err)
	}
}

func (s *Scanner) requestFrame() {
	gen := s.generation
	s.host.RequestFrame(func(now time.Time) {
		s.tick(gen, now)
	})
}

func (s *Scanner) tick(gen uint64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || gen != s.generation || s.status != StatusScanning {
		return
	}

	s.stats.Ticks++
	s.deadlines.Fire(now)
	s.step(now)
	s.requestFrame()
}

func (s *Scanner) step(now time.Time) {
	buf, ok := s.sampler.Sample()
	if !ok {
		s.stats.NotReady++
		return
	}
	s.lastFrame = buf

	if err := buf.Validate(); err != nil {
		s.stats.Malformed++
		s.logger.Warning("Skipping frame: %v", err)
		return
	}

	sym, err := decoder.Safe(s.decoder, buf)
	if err != nil {
		s.stats.Faults++
		s.logger.Error("❌ Error during QR decoding: %v", err)
		return
	}

	if sym == nil {
		s.stats.Missed++
		s.machine.Missed(now)
		return
	}

	s.stats.Decoded++
	s.machine.Detected(now, *sym)
}

// Report returns the current status, counters and detection state.
func (s *Scanner) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Report{
		Status:   s.status,
		Message:  s.message,
		Session:  s.session,
		Policy:   s.opts.Policy.String(),
		Stats:    s.stats,
		Snapshot: s.machine.Snapshot(),
	}
}

// Status returns the lifecycle status and its user-facing message.
func (s *Scanner) Status() (Status, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.message
}

// Presentation returns the detection snapshot and the last sampled raster.
func (s *Scanner) Presentation() (Snapshot, raster.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Snapshot(), s.lastFrame
}
