package pms

import (
	"context"
	"errors"
	"fmt"
)

// StepStatus is the outcome of one post-commit step.
type StepStatus string

const (
	StepStatusOK      StepStatus = "ok"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

// StepResult records how a post-commit step went. A failed step never fails
// the call that ran it.
type StepResult struct {
	Name   string
	Status StepStatus
	Error  error
}

// Failed reports whether the step failed.
func (result StepResult) Failed() bool {
	return result.Status == StepStatusFailed
}

var errStepSkipped = errors.New("step skipped")

type postCommitStep struct {
	name string
	run  func(ctx context.Context) error
}

// runSteps executes steps in order, each inside its own failure boundary.
func runSteps(ctx context.Context, logger OperationLogger, base OperationLog, steps []postCommitStep) []StepResult {
	results := make([]StepResult, 0, len(steps))
	for _, step := range steps {
		err := runStep(ctx, step)
		result := StepResult{Name: step.name, Status: StepStatusOK}
		switch {
		case errors.Is(err, errStepSkipped):
			result.Status = StepStatusSkipped
		case err != nil:
			result.Status = StepStatusFailed
			result.Error = err
		}
		results = append(results, result)
		if result.Status == StepStatusOK {
			continue
		}
		entry := base
		entry.Step = step.name
		entry.Error = result.Error
		entry.Status = string(result.Status)
		if result.Status == StepStatusSkipped {
			entry.Status = operationStatusSkipped
		}
		logOperation(ctx, logger, entry)
	}
	return results
}

func runStep(ctx context.Context, step postCommitStep) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("step %s panicked: %v", step.name, recovered)
		}
	}()
	return step.run(ctx)
}
