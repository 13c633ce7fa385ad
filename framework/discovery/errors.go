package discovery

import "errors"

var (
	// ErrStructuralViolation is returned when a type breaks a constraint its
	// schema variant declares. It aborts the whole pass.
	ErrStructuralViolation = errors.New("structural violation")

	// ErrMalformedMetadata is returned when service metadata is present but
	// cannot be parsed or decoded. It aborts the whole pass.
	ErrMalformedMetadata = errors.New("malformed service metadata")

	// ErrUnloadable marks a candidate file that maps to no usable type.
	// The scanner skips such candidates.
	ErrUnloadable = errors.New("candidate not loadable")
)
