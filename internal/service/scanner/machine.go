package scanner

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"qrscanner/internal/logger"
	"qrscanner/internal/service/decoder"
	"qrscanner/internal/service/schedule"
)

// Policy decides which successful decodes count as fresh detections.
type Policy int

const (
	// PolicyAlways treats every successful decode as fresh.
	PolicyAlways Policy = iota
	// PolicyChange treats a decode as fresh only when the payload differs from the last one.
	PolicyChange
)

func (p Policy) String() string {
	switch p {
	case PolicyAlways:
		return "always"
	case PolicyChange:
		return "change"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts "always" (or "always-update") and "change" (or "change-only").
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always", "always-update":
		return PolicyAlways, nil
	case "change", "change-only":
		return PolicyChange, nil
	}
	return PolicyAlways, fmt.Errorf("unknown update policy %q", s)
}

// State is the coarse detection state shown to UI collaborators.
type State int

const (
	StateIdle State = iota
	StateDetected
	StateFading
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDetected:
		return "detected"
	case StateFading:
		return "fading"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Timing holds the machine's timeouts.
type Timing struct {
	Overlay   time.Duration // overlay freshness after a fresh detection
	Highlight time.Duration // "just detected" emphasis
	Grace     time.Duration // overlay lifetime once detection is lost; 0 disables
	Truncate  int           // overlay text length in runes before "..."; 0 disables
}

// DefaultTiming matches the scanner's stock behaviour.
func DefaultTiming() Timing {
	return Timing{
		Overlay:   5 * time.Second,
		Highlight: 2 * time.Second,
		Grace:     2 * time.Second,
		Truncate:  25,
	}
}

// PublishSink receives the machine's publish/retract decisions.
type PublishSink interface {
	Publish(now time.Time, sym decoder.Symbol)
	Retract(now time.Time)
}

// Snapshot is a copy of the presentation state.
type Snapshot struct {
	State             State     `json:"-"`
	StateName         string    `json:"state"`
	LastPayload       string    `json:"lastPayload,omitempty"`
	OverlayText       string    `json:"overlayText,omitempty"`
	OverlayVisible    bool      `json:"overlayVisible"`
	OverlayDeadline   time.Time `json:"overlayDeadline"`
	GraceDeadline     time.Time `json:"graceDeadline"`
	HighlightActive   bool      `json:"highlightActive"`
	HighlightDeadline time.Time `json:"highlightDeadline"`
	FreshDetections   uint64    `json:"freshDetections"`
	OverlayClears     uint64    `json:"overlayClears"`
}

// Machine is the detection state machine. It is driven from the scan loop
// only: one Detected or Missed call per decoded tick, plus the deadline
// actions it arms on the shared Deadlines.
type Machine struct {
	policy    Policy
	timing    Timing
	deadlines *schedule.Deadlines
	sink      PublishSink
	logger    *logger.Logger

	lastPayload     string
	published       bool
	present         bool
	overlayVisible  bool
	overlayText     string
	highlightActive bool

	overlayTask   schedule.Token
	graceTask     schedule.Token
	highlightTask schedule.Token

	freshDetections uint64
	overlayClears   uint64
}

func NewMachine(policy Policy, timing Timing, deadlines *schedule.Deadlines, sink PublishSink, logger *logger.Logger) *Machine {
	return &Machine{
		policy:    policy,
		timing:    timing,
		deadlines: deadlines,
		sink:      sink,
		logger:    logger,
	}
}

// Detected handles a tick where a symbol was decoded. It reports whether the
// decode counted as a fresh detection.
func (m *Machine) Detected(now time.Time, sym decoder.Symbol) bool {
	m.present = true
	if m.policy == PolicyChange && m.lastPayload != "" && sym.Payload == m.lastPayload {
		return false
	}

	m.lastPayload = sym.Payload
	m.overlayVisible = true
	m.overlayText = Truncate(sym.Payload, m.timing.Truncate)

	m.deadlines.Cancel(m.graceTask)
	m.graceTask = 0
	m.overlayTask = m.deadlines.Rearm(m.overlayTask, now.Add(m.timing.Overlay), m.expireOverlay)

	m.highlightActive = true
	m.highlightTask = m.deadlines.Rearm(m.highlightTask, now.Add(m.timing.Highlight), m.expireHighlight)

	m.published = true
	m.freshDetections++
	m.sink.Publish(now, sym)
	return true
}

// Missed handles a tick where the decoder found nothing.
func (m *Machine) Missed(now time.Time) {
	m.present = false
	m.clearHighlight()

	// Loss is reported once: after this the slot is empty and nothing is published.
	if m.published || m.lastPayload != "" {
		m.published = false
		m.lastPayload = ""
		m.sink.Retract(now)
	}

	if m.overlayVisible && m.timing.Grace > 0 && !m.deadlines.Pending(m.graceTask) {
		m.graceTask = m.deadlines.Arm(now.Add(m.timing.Grace), m.expireOverlay)
	}
}

// expireOverlay is armed twice (freshness and grace); whichever fires first
// cancels the other.
func (m *Machine) expireOverlay() {
	m.deadlines.Cancel(m.overlayTask)
	m.deadlines.Cancel(m.graceTask)
	m.overlayTask, m.graceTask = 0, 0

	if !m.overlayVisible {
		return
	}
	m.overlayVisible = false
	m.overlayText = ""
	m.lastPayload = ""
	m.overlayClears++
}

func (m *Machine) expireHighlight() {
	m.highlightTask = 0
	m.highlightActive = false
}

func (m *Machine) clearHighlight() {
	m.deadlines.Cancel(m.highlightTask)
	m.highlightTask = 0
	m.highlightActive = false
}

// Reset cancels the machine's deadlines and forgets all state without
// touching the sink.
func (m *Machine) Reset() {
	m.deadlines.Cancel(m.overlayTask)
	m.deadlines.Cancel(m.graceTask)
	m.deadlines.Cancel(m.highlightTask)
	m.overlayTask, m.graceTask, m.highlightTask = 0, 0, 0

	m.lastPayload = ""
	m.published = false
	m.present = false
	m.overlayVisible = false
	m.overlayText = ""
	m.highlightActive = false
}

func (m *Machine) State() State {
	switch {
	case m.overlayVisible && m.present:
		return StateDetected
	case m.overlayVisible:
		return StateFading
	}
	return StateIdle
}

func (m *Machine) Snapshot() Snapshot {
	state := m.State()
	snap := Snapshot{
		State:           state,
		StateName:       state.String(),
		LastPayload:     m.lastPayload,
		OverlayText:     m.overlayText,
		OverlayVisible:  m.overlayVisible,
		HighlightActive: m.highlightActive,
		FreshDetections: m.freshDetections,
		OverlayClears:   m.overlayClears,
	}
	snap.OverlayDeadline, _ = m.deadlines.Deadline(m.overlayTask)
	snap.GraceDeadline, _ = m.deadlines.Deadline(m.graceTask)
	snap.HighlightDeadline, _ = m.deadlines.Deadline(m.highlightTask)
	return snap
}

// Truncate shortens s to max runes plus "..." for display. max <= 0 keeps s whole.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
