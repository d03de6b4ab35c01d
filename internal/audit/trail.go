package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"presswork/internal/testing/mock"
	"presswork/pkg/logging"
)

// Action is the reason code of one audit record.
type Action string

const (
	// ActionRunStarted opens every trail.
	ActionRunStarted Action = "RunStarted"

	// ActionPhaseStarted marks entry into a phase.
	ActionPhaseStarted Action = "PhaseStarted"

	// ActionPhaseCompleted marks a phase that reached its postcondition.
	ActionPhaseCompleted Action = "PhaseCompleted"

	// ActionPhaseSkipped marks a phase skipped for empty input or a missing
	// provider capability.
	ActionPhaseSkipped Action = "PhaseSkipped"

	// ActionPhaseRetried marks one transient failure inside a phase.
	ActionPhaseRetried Action = "PhaseRetried"

	// ActionPhaseFailed marks a phase that exhausted its options.
	ActionPhaseFailed Action = "PhaseFailed"

	// ActionFallback marks the provider failover.
	ActionFallback Action = "Fallback"

	// ActionSafetyReport carries the pre-publish validation outcome.
	ActionSafetyReport Action = "SafetyReport"

	// ActionRecovery carries the post-failure demotion outcome.
	ActionRecovery Action = "Recovery"

	// ActionRunFinished closes every trail.
	ActionRunFinished Action = "RunFinished"
)

// Record is one line of the trail.
type Record struct {
	TaskID        string         `json:"task_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Action        Action         `json:"action"`
	Provider      string         `json:"provider,omitempty"`
	Phase         string         `json:"phase,omitempty"`
	Outcome       string         `json:"outcome,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	ScreenshotRef string         `json:"screenshot_ref,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Trail appends records for one run. Safe for concurrent use; a nil Trail
// discards everything.
type Trail struct {
	taskID string
	path   string
	clock  mock.Clock

	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// Open creates the trail file for taskID under dir, creating dir as needed.
func Open(dir, taskID string, clock mock.Clock) (*Trail, error) {
	if clock == nil {
		clock = mock.RealClock{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	path := filepath.Join(dir, sanitizeID(taskID)+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit trail: %w", err)
	}

	return &Trail{
		taskID: taskID,
		path:   path,
		clock:  clock,
		f:      f,
		enc:    json.NewEncoder(f),
	}, nil
}

// Path returns the trail file location.
func (t *Trail) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Append writes one record, filling in the task ID and timestamp.
func (t *Trail) Append(rec Record) {
	if t == nil {
		return
	}
	rec.TaskID = t.taskID
	rec.Timestamp = t.clock.Now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return
	}
	if err := t.enc.Encode(rec); err != nil {
		logging.Warn("Audit", "Dropped audit record %s for task %s: %v", rec.Action, t.taskID, err)
	}
}

// Close flushes and closes the trail file. Records appended afterwards are
// discarded.
func (t *Trail) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return nil
	}
	err := t.f.Close()
	t.f = nil
	t.enc = nil
	return err
}

// PhaseStarted records entry into a phase.
func (t *Trail) PhaseStarted(phase, provider string) {
	t.Append(Record{Action: ActionPhaseStarted, Phase: phase, Provider: provider})
}

// PhaseCompleted records a successful phase.
func (t *Trail) PhaseCompleted(phase, provider string, attempts int, d time.Duration) {
	t.Append(Record{
		Action:   ActionPhaseCompleted,
		Phase:    phase,
		Provider: provider,
		Outcome:  "success",
		Details:  map[string]any{"attempts": attempts, "duration": d.String()},
	})
}

// PhaseSkipped records a phase skipped with its reason.
func (t *Trail) PhaseSkipped(phase, provider, reason string) {
	t.Append(Record{
		Action:   ActionPhaseSkipped,
		Phase:    phase,
		Provider: provider,
		Outcome:  "skipped",
		Details:  map[string]any{"reason": reason},
	})
}

// PhaseRetried records one transient failure and the attempt number.
func (t *Trail) PhaseRetried(phase, provider string, attempt int, err error) {
	t.Append(Record{
		Action:   ActionPhaseRetried,
		Phase:    phase,
		Provider: provider,
		Outcome:  "retried",
		Details:  map[string]any{"attempt": attempt},
		Error:    errString(err),
	})
}

// PhaseFailed records a phase that gave up, with an optional screenshot.
func (t *Trail) PhaseFailed(phase, provider string, err error, screenshotRef string) {
	t.Append(Record{
		Action:        ActionPhaseFailed,
		Phase:         phase,
		Provider:      provider,
		Outcome:       "failed",
		ScreenshotRef: screenshotRef,
		Error:         errString(err),
	})
}

// Fallback records the provider failover.
func (t *Trail) Fallback(from, to, reason string) {
	t.Append(Record{
		Action:   ActionFallback,
		Provider: to,
		Outcome:  "fallback",
		Details:  map[string]any{"from": from, "to": to, "reason": reason},
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// sanitizeID keeps task IDs usable as file names.
func sanitizeID(id string) string {
	id = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		default:
			return r
		}
	}, id)
	id = strings.TrimLeft(id, ".")
	if id == "" {
		return "run"
	}
	return id
}
