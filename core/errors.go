package core

import (
	"errors"
	"fmt"
)

// Reasons wrapped by ConfigurationError. Match them with errors.Is.
var (
	ErrNoEntryPoint        = errors.New("no entry point")
	ErrMultipleEntryPoints = errors.New("multiple entry points")
	ErrUnknownNextAgent    = errors.New("unknown next-agent")
	ErrDuplicateNode       = errors.New("duplicate node")
	ErrReservedNodeName    = errors.New("reserved node name")
	ErrUnknownTool         = errors.New("unknown tool")
	ErrNoModel             = errors.New("no language model provided")
	ErrNotBuilt            = errors.New("conference is not built")
)

// ErrStepBudgetExhausted is returned by StepLimiter.Take once the budget is spent.
// It never crosses the orchestrator boundary.
var ErrStepBudgetExhausted = errors.New("step budget exhausted")

// ConfigurationError reports an invalid conference or graph declaration. It is
// raised at build time only, never during a run.
type ConfigurationError struct {
	Subject string // Offending node or tool name (may be empty)
	Err     error  // Underlying reason, usually one of the Err* sentinels
}

// NewConfigurationError creates a ConfigurationError for subject.
func NewConfigurationError(subject string, err error) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("configuration error: %v: %s", e.Err, e.Subject)
	}
	return fmt.Sprintf("configuration error: %v", e.Err)
}

// Unwrap exposes the underlying reason.
func (e *ConfigurationError) Unwrap() error { return e.Err }

// DuplicateToolError is returned when two tools share one name.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("duplicate tool: %s", e.Name)
}
