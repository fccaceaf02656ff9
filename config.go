package walkflow

import "time"

// DefaultHistoryCapacity is the number of undo snapshots a workflow keeps
const DefaultHistoryCapacity = 10

// LoaderConfig holds resilient-load retry parameters
type LoaderConfig struct {
	// Retry policy
	MaxRetries   int
	RetryDelayMs int
	RetryBackoff BackoffStrategy

	// Timeout per attempt (0 disables)
	TimeoutSeconds int
}

// BackoffStrategy defines retry backoff behavior
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "CONSTANT"
	BackoffLinear      BackoffStrategy = "LINEAR"
	BackoffExponential BackoffStrategy = "EXPONENTIAL"
	BackoffNone        BackoffStrategy = "NONE"
)

// DefaultLoaderConfig provides the map screen's policy: two automatic retries one second apart
var DefaultLoaderConfig = LoaderConfig{
	MaxRetries:     2,
	RetryDelayMs:   1000,
	RetryBackoff:   BackoffConstant,
	TimeoutSeconds: 30,
}

// Timeout returns the per-attempt timeout, zero meaning none
func (c LoaderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StepOption allows functional configuration of wizard steps
type StepOption func(*Step)

// WithValidator sets the predicate that gates leaving the step
func WithValidator(v Validator) StepOption {
	return func(s *Step) {
		s.Validate = v
	}
}

// WithGuide sets the help text shown on the step
func WithGuide(text string) StepOption {
	return func(s *Step) {
		s.Guide = text
	}
}

// WithDescription sets the step description
func WithDescription(description string) StepOption {
	return func(s *Step) {
		s.Description = description
	}
}
