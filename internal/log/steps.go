package log

import (
	"time"

	"github.com/rs/zerolog/log"
)

// StepLogger logs the stages of a multi-step command with their timings.
type StepLogger struct {
	name      string
	steps     []string
	current   int
	startTime time.Time
	stepStart time.Time
	stepTimes []time.Duration
}

// NewStepLogger prepares a logger for the named steps, in order.
func NewStepLogger(name string, steps []string) *StepLogger {
	now := time.Now()
	return &StepLogger{
		name:      name,
		steps:     steps,
		current:   -1,
		startTime: now,
		stepStart: now,
		stepTimes: make([]time.Duration, len(steps)),
	}
}

// StartStep completes the running step, if any, and begins stepName. Unknown
// steps are logged and ignored.
func (sl *StepLogger) StartStep(stepName string) {
	idx := -1
	for i, step := range sl.steps {
		if step == stepName {
			idx = i
			break
		}
	}
	if idx == -1 {
		log.Warn().Str("run", sl.name).Str("step", stepName).Msg("Unknown step")
		return
	}

	sl.CompleteStep()
	sl.current = idx
	sl.stepStart = time.Now()
	log.Debug().
		Str("run", sl.name).
		Str("step", stepName).
		Int("step_number", idx+1).
		Int("total_steps", len(sl.steps)).
		Msg("Starting step")
}

// CompleteStep records the duration of the running step.
func (sl *StepLogger) CompleteStep() {
	if sl.current < 0 || sl.stepTimes[sl.current] != 0 {
		return
	}
	d := time.Since(sl.stepStart)
	if d == 0 {
		d = time.Nanosecond
	}
	sl.stepTimes[sl.current] = d
	log.Debug().Str("run", sl.name).Str("step", sl.steps[sl.current]).Dur("duration", d).Msg("Step completed")
}

// Finish completes the last step and logs the total.
func (sl *StepLogger) Finish() {
	sl.CompleteStep()
	log.Info().Str("run", sl.name).Dur("total_duration", time.Since(sl.startTime)).Int("steps", len(sl.steps)).Msg("Run completed")
}

// Fail logs the failing step.
func (sl *StepLogger) Fail(err error) {
	log.Error().
		Err(err).
		Str("run", sl.name).
		Str("failed_step", sl.CurrentStep()).
		Int("completed_steps", sl.completed()).
		Int("total_steps", len(sl.steps)).
		Msg("Run failed")
}

// CurrentStep is the running step's name, or "none".
func (sl *StepLogger) CurrentStep() string {
	if sl.current >= 0 && sl.current < len(sl.steps) {
		return sl.steps[sl.current]
	}
	return "none"
}

// Durations returns the recorded step durations in step order; steps never
// run are zero.
func (sl *StepLogger) Durations() []time.Duration {
	out := make([]time.Duration, len(sl.stepTimes))
	copy(out, sl.stepTimes)
	return out
}

func (sl *StepLogger) completed() int {
	n := 0
	for _, d := range sl.stepTimes {
		if d > 0 {
			n++
		}
	}
	return n
}
