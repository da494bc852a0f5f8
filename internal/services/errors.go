package services

import (
	"errors"
	"fmt"
	"strings"
)

// Fatal markers. A failure carrying one of these stops the run.
var (
	ErrTimestampParse = errors.New("timestamp parse error")
	ErrConfiguration  = errors.New("configuration error")
	ErrOperation      = errors.New("operation error")
	ErrPersistence    = errors.New("persistence error")
	ErrExecution      = errors.New("execution error")
)

// Advisory markers. A failure carrying one of these is logged and the run
// still reports success.
var (
	ErrDiscoverySkipped = errors.New("discovery skipped")
	ErrUnwrapFailed     = errors.New("unwrap command failed")
)

// Severity classifies how the top-level dispatcher treats a failure.
type Severity int

const (
	SeverityFatal Severity = iota
	SeverityAdvisory
)

func (s Severity) String() string {
	switch s {
	case SeverityAdvisory:
		return "advisory"
	default:
		return "fatal"
	}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later severity classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExecution
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// SeverityOf maps an error to the policy the dispatcher applies. Untagged
// errors are fatal.
func SeverityOf(err error) Severity {
	if err == nil {
		return SeverityAdvisory
	}
	for _, marker := range []error{ErrTimestampParse, ErrConfiguration, ErrOperation, ErrPersistence, ErrExecution} {
		if errors.Is(err, marker) {
			return SeverityFatal
		}
	}
	if errors.Is(err, ErrDiscoverySkipped) || errors.Is(err, ErrUnwrapFailed) {
		return SeverityAdvisory
	}
	return SeverityFatal
}

// IsAdvisory reports whether err only warrants a warning.
func IsAdvisory(err error) bool {
	return err != nil && SeverityOf(err) == SeverityAdvisory
}

// Kind returns the label of the first marker found in err, or "unknown".
func Kind(err error) string {
	for _, marker := range []error{
		ErrTimestampParse, ErrConfiguration, ErrOperation, ErrPersistence,
		ErrExecution, ErrDiscoverySkipped, ErrUnwrapFailed,
	} {
		if errors.Is(err, marker) {
			return marker.Error()
		}
	}
	return "unknown"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
