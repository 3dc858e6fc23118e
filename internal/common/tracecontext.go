// tracecontext.go - per-request/per-task step timing and structured logging.
//
// Generalizes internal/common/request_context.go's RequestContext: same
// named-step start/end timing and request-id-prefixed log lines, stripped of
// the OCR-specific token-cost accounting and keyed by whatever id the caller
// is already tracking (a translate_id for worker tasks, a generated id for
// HTTP requests) instead of a freshly minted UUID every time.

package common

import (
	"fmt"
	"log"
	"time"
)

// StepLog records the timing of one named pipeline or request stage.
type StepLog struct {
	Name     string
	StartAt  time.Time
	Duration time.Duration
	Err      error
}

// TraceContext accumulates step timings for a single request or task and
// logs progress with a stable id prefix.
type TraceContext struct {
	ID        string
	StartTime time.Time
	Steps     []StepLog

	currentStep     string
	currentStepAt   time.Time
	currentStepOpen bool
}

// New builds a TraceContext keyed by id and logs its start.
func New(id string) *TraceContext {
	tc := &TraceContext{ID: id, StartTime: time.Now()}
	tc.LogInfo("started")
	return tc
}

// StartStep begins timing a named stage. Only one step may be open at a time.
func (tc *TraceContext) StartStep(name string) {
	tc.currentStep = name
	tc.currentStepAt = time.Now()
	tc.currentStepOpen = true
	tc.LogInfo("-> %s", name)
}

// EndStep closes the currently open step, recording err (nil on success).
func (tc *TraceContext) EndStep(err error) {
	if !tc.currentStepOpen {
		return
	}
	dur := time.Since(tc.currentStepAt)
	tc.Steps = append(tc.Steps, StepLog{Name: tc.currentStep, StartAt: tc.currentStepAt, Duration: dur, Err: err})
	if err != nil {
		tc.LogError("<- %s failed after %v: %v", tc.currentStep, dur, err)
	} else {
		tc.LogInfo("<- %s took %v", tc.currentStep, dur)
	}
	tc.currentStepOpen = false
}

// Step runs fn as a timed step, logging and returning its error.
func (tc *TraceContext) Step(name string, fn func() error) error {
	tc.StartStep(name)
	err := fn()
	tc.EndStep(err)
	return err
}

func (tc *TraceContext) LogInfo(format string, args ...interface{}) {
	log.Printf("[%s] "+format, append([]interface{}{tc.ID}, args...)...)
}

func (tc *TraceContext) LogWarning(format string, args ...interface{}) {
	log.Printf("[%s] WARN "+format, append([]interface{}{tc.ID}, args...)...)
}

func (tc *TraceContext) LogError(format string, args ...interface{}) {
	log.Printf("[%s] ERROR "+format, append([]interface{}{tc.ID}, args...)...)
}

// Summary renders a one-line total-duration report, used when a task
// finishes (success or failure).
func (tc *TraceContext) Summary() string {
	return fmt.Sprintf("[%s] total %v across %d steps", tc.ID, time.Since(tc.StartTime), len(tc.Steps))
}
