package domain

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError reports raw inputs that cannot enter the risk model.
// It is the only error class surfaced to callers of the engine.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Problems, "; ")
}

// NewValidationError builds a ValidationError from a single formatted problem.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

// ValidateInputs checks the scorer inputs for negative or non-finite values.
// It returns nil when all three are usable.
func ValidateInputs(currentWave, previousDayWave, currentSpeed float64) error {
	var problems []string
	check := func(name string, v float64) {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			problems = append(problems, fmt.Sprintf("%s must be a finite number", name))
		case v < 0:
			problems = append(problems, fmt.Sprintf("%s cannot be negative (got %g)", name, v))
		}
	}
	check("current wave height", currentWave)
	check("previous-day wave height", previousDayWave)
	check("current speed", currentSpeed)

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
