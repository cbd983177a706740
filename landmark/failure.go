package landmark

import (
	"errors"
	"fmt"
)

// FailureKind classifies a failure crossing a component boundary.
type FailureKind int

const (
	// UpstreamUnavailable covers network errors, timeouts and non-2xx replies.
	UpstreamUnavailable FailureKind = iota + 1
	// UpstreamMalformed means a 2xx reply missing the expected fields.
	UpstreamMalformed
	// PersistenceFailure is a cache tier I/O error.
	PersistenceFailure
)

// String returns the string representation of the kind.
func (k FailureKind) String() string {
	switch k {
	case UpstreamUnavailable:
		return "upstream_unavailable"
	case UpstreamMalformed:
		return "upstream_malformed"
	case PersistenceFailure:
		return "persistence_failure"
	default:
		return "unknown"
	}
}

// Kind sentinels, usable with errors.Is against any *Failure.
var (
	ErrUpstreamUnavailable = errors.New("landmark: upstream unavailable")
	ErrUpstreamMalformed   = errors.New("landmark: upstream response malformed")
	ErrPersistence         = errors.New("landmark: persistence failure")
)

// Failure is the typed error returned by the gateway and cache store.
type Failure struct {
	Kind FailureKind
	Op   string
	Err  error
}

// Unavailable builds an UpstreamUnavailable failure.
func Unavailable(op string, err error) *Failure {
	return &Failure{Kind: UpstreamUnavailable, Op: op, Err: err}
}

// Malformed builds an UpstreamMalformed failure.
func Malformed(op string, err error) *Failure {
	return &Failure{Kind: UpstreamMalformed, Op: op, Err: err}
}

// Persistence builds a PersistenceFailure.
func Persistence(op string, err error) *Failure {
	return &Failure{Kind: PersistenceFailure, Op: op, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Op, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches the kind sentinels.
func (f *Failure) Is(target error) bool {
	switch target {
	case ErrUpstreamUnavailable:
		return f.Kind == UpstreamUnavailable
	case ErrUpstreamMalformed:
		return f.Kind == UpstreamMalformed
	case ErrPersistence:
		return f.Kind == PersistenceFailure
	}
	return false
}

// KindOf extracts the FailureKind from err, or 0 when err carries none.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}
