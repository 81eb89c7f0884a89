// Package retry implements the retry-policy value object evaluated by the
// host when a handler invocation fails (spec.md §C.1): given how many times
// an entry has already been retried and for how long, decide whether to
// retry again and after what delay.
package retry

import (
	"time"
)

// Policy is the retry strategy attached to a command. The zero value is
// Infinite, matching the original's #[default].
type Policy struct {
	kind policyKind

	fixedInterval time.Duration

	exponentialInitialInterval time.Duration
	exponentialFactor          float32
	exponentialMaxInterval     *time.Duration

	maxAttempts *uint32
	maxDuration *time.Duration
}

type policyKind int

const (
	kindInfinite policyKind = iota
	kindNone
	kindFixedDelay
	kindExponential
)

// Infinite retries forever.
func Infinite() Policy { return Policy{kind: kindInfinite} }

// None never retries; the first failure is terminal.
func None() Policy { return Policy{kind: kindNone} }

// FixedDelay retries with a constant interval, giving up once maxAttempts or
// maxDuration (whichever is set and reached first) is exceeded. Either bound
// may be nil for "no limit on this axis".
func FixedDelay(interval time.Duration, maxAttempts *uint32, maxDuration *time.Duration) Policy {
	return Policy{kind: kindFixedDelay, fixedInterval: interval, maxAttempts: maxAttempts, maxDuration: maxDuration}
}

// Exponential retries with delay min(initialInterval*factor^(retryCount-1), maxInterval),
// giving up once maxAttempts or maxDuration is exceeded.
func Exponential(initialInterval time.Duration, factor float32, maxInterval *time.Duration, maxAttempts *uint32, maxDuration *time.Duration) Policy {
	return Policy{
		kind:                        kindExponential,
		exponentialInitialInterval:  initialInterval,
		exponentialFactor:           factor,
		exponentialMaxInterval:      maxInterval,
		maxAttempts:                 maxAttempts,
		maxDuration:                 maxDuration,
	}
}

// EntryRetryInfo is the observed retry state a policy is evaluated against.
type EntryRetryInfo struct {
	RetryCount         uint32
	RetryLoopDuration  time.Duration
}

// NextRetry is the outcome of evaluating a Policy: either retry after an
// optional delay (nil delay means "retry immediately"), or give up.
type NextRetry struct {
	ShouldRetry bool
	Delay       *time.Duration
}

func retryNow() NextRetry                       { return NextRetry{ShouldRetry: true} }
func retryAfter(d time.Duration) NextRetry       { return NextRetry{ShouldRetry: true, Delay: &d} }
func doNotRetry() NextRetry                      { return NextRetry{ShouldRetry: false} }

// NextRetry evaluates the policy against the given retry info.
func (p Policy) NextRetry(info EntryRetryInfo) NextRetry {
	switch p.kind {
	case kindInfinite:
		return retryNow()
	case kindNone:
		return doNotRetry()
	case kindFixedDelay:
		if boundsReached(p.maxAttempts, p.maxDuration, info) {
			return doNotRetry()
		}
		return retryAfter(p.fixedInterval)
	case kindExponential:
		if boundsReached(p.maxAttempts, p.maxDuration, info) {
			return doNotRetry()
		}
		delay := scaleExponential(p.exponentialInitialInterval, p.exponentialFactor, info.RetryCount)
		if p.exponentialMaxInterval != nil && *p.exponentialMaxInterval < delay {
			delay = *p.exponentialMaxInterval
		}
		return retryAfter(delay)
	default:
		return retryNow()
	}
}

func boundsReached(maxAttempts *uint32, maxDuration *time.Duration, info EntryRetryInfo) bool {
	if maxAttempts != nil && *maxAttempts <= info.RetryCount {
		return true
	}
	if maxDuration != nil && *maxDuration <= info.RetryLoopDuration {
		return true
	}
	return false
}

// scaleExponential computes initialInterval * factor^(retryCount-1), the
// same exponent base the original uses (retry_count starts at 1 for the
// first retry, so the first computed delay is exactly initialInterval).
func scaleExponential(initialInterval time.Duration, factor float32, retryCount uint32) time.Duration {
	exp := float64(retryCount) - 1
	multiplier := pow(float64(factor), exp)
	return time.Duration(float64(initialInterval) * multiplier)
}

func pow(base, exp float64) float64 {
	if exp == 0 {
		return 1
	}
	neg := exp < 0
	if neg {
		exp = -exp
	}
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	if neg {
		return 1 / result
	}
	return result
}
