// Package retry classifies task execution errors and selects retry/backoff
// strategies for them.
//
// Classification decides whether and how long to wait before a retry is
// attempted. It is distinct from the queue's retry-count priority demotion,
// which decides where a retried task sits in scheduling order.
package retry

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Class categorizes a task execution error.
type Class int

const (
	// ClassUnknown covers errors that match no known category.
	ClassUnknown Class = iota
	// ClassNetwork covers transient connectivity failures.
	ClassNetwork
	// ClassRateLimit covers provider quota/rate-limit rejections.
	ClassRateLimit
	// ClassTimeout covers deadline and timeout failures.
	ClassTimeout
	// ClassValidation covers permanent errors that retrying cannot fix.
	ClassValidation
)

// String returns the string representation of a Class.
func (c Class) String() string {
	switch c {
	case ClassNetwork:
		return "network"
	case ClassRateLimit:
		return "rate_limit"
	case ClassTimeout:
		return "timeout"
	case ClassValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Config holds the retry strategy for one error class.
type Config struct {
	MaxRetries int           // Attempts allowed after the first failure
	BaseDelay  time.Duration // Delay before the first retry
	Multiplier float64       // Exponential backoff multiplier
}

var (
	rateLimitPattern  = regexp.MustCompile(`(?i)(rate.?limit|usage.?limit|quota|429|too.?many.?requests)`)
	networkPattern    = regexp.MustCompile(`(?i)(connection (refused|reset)|network|dns|no such host|broken pipe|EOF|unreachable|tls handshake)`)
	timeoutPattern    = regexp.MustCompile(`(?i)(timeout|timed.?out|deadline)`)
	validationPattern = regexp.MustCompile(`(?i)(invalid|validation|malformed|bad request|unauthorized|forbidden|not found|permission denied|400|401|403|404)`)
)

// Classify maps an error to its Class. Typed sentinel errors are checked
// first, then the error text is sniffed against known patterns. Rate limits
// are checked before validation so "429 too many requests" is not swallowed
// by the 4xx validation match.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}

	msg := err.Error()
	switch {
	case rateLimitPattern.MatchString(msg):
		return ClassRateLimit
	case timeoutPattern.MatchString(msg):
		return ClassTimeout
	case networkPattern.MatchString(msg):
		return ClassNetwork
	case validationPattern.MatchString(msg):
		return ClassValidation
	default:
		return ClassUnknown
	}
}

// ConfigFor returns the retry strategy for an error class. Permanent
// validation errors get zero retries; transient classes get bounded
// exponential backoff; rate limits get fewer attempts with a long base
// delay so the provider window can reset.
func ConfigFor(class Class) Config {
	switch class {
	case ClassValidation:
		return Config{MaxRetries: 0, BaseDelay: 0, Multiplier: 1}
	case ClassRateLimit:
		return Config{MaxRetries: 2, BaseDelay: 30 * time.Second, Multiplier: 2}
	case ClassNetwork:
		return Config{MaxRetries: 3, BaseDelay: time.Second, Multiplier: 2}
	case ClassTimeout:
		return Config{MaxRetries: 3, BaseDelay: 2 * time.Second, Multiplier: 2}
	default:
		return Config{MaxRetries: 1, BaseDelay: time.Second, Multiplier: 2}
	}
}

// Delay computes the backoff delay before retry number attempt (0-based) by
// stepping an unjittered exponential policy: BaseDelay × Multiplier^attempt,
// capped at the policy's maximum interval.
func Delay(cfg Config, attempt int) time.Duration {
	if cfg.BaseDelay <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	policy := Backoff(cfg)
	policy.RandomizationFactor = 0

	delay := cfg.BaseDelay
	for i := 0; i <= attempt; i++ {
		delay = policy.NextBackOff()
	}
	return delay
}

// ShouldRetry reports whether another attempt is allowed for the error
// class given the number of failures so far.
func ShouldRetry(class Class, retryCount int) bool {
	return retryCount <= ConfigFor(class).MaxRetries
}

// Backoff builds an exponential backoff policy from a Config. Delay steps it
// without jitter for deterministic scheduling; callers that wait in real time
// between attempts use it directly with the default jitter. The policy never
// gives up on its own; bound it with backoff.WithContext or WithMaxRetries.
func Backoff(cfg Config) *backoff.ExponentialBackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.BaseDelay
	policy.Multiplier = cfg.Multiplier
	policy.MaxElapsedTime = 0
	return policy
}

// IsPermanent reports whether the error class should never be retried.
func IsPermanent(class Class) bool {
	return ConfigFor(class).MaxRetries == 0
}

// Describe returns a short human-readable summary of an error for logs,
// truncated to one line.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
