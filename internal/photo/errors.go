package photo

import "fmt"

// Step names the pipeline stage that failed.
type Step string

const (
	StepCapture Step = "capture"
	StepEncode  Step = "encode"
	StepPersist Step = "persist"
)

// StepError reports which stage of a capture failed. Use errors.Is on the
// returned error to match provider sentinels such as camera.ErrPermissionDenied.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
