package utils

import "errors"

var (
	// ErrEmptyDomain is returned when a range tree is built from no leaves.
	ErrEmptyDomain = errors.New("empty domain")
	// ErrInvalidDomain is returned for leaves that are not disjoint, contiguous unit ranges.
	ErrInvalidDomain = errors.New("invalid domain")
	// ErrDomainTooLarge is returned for a domain with more values than a tree may have leaves.
	ErrDomainTooLarge = errors.New("domain too large")
	ErrInvalidRange   = errors.New("invalid range")
	// ErrIndexFull means open addressing ran out of slots; the capacity was sized wrong.
	ErrIndexFull = errors.New("index full")
	// ErrMalformedEncoding means a stored value does not decode; the store is corrupted.
	ErrMalformedEncoding = errors.New("malformed encoding")
	// ErrProbeLimit means a lookup loop hit its iteration bound.
	ErrProbeLimit               = errors.New("probe limit exceeded")
	ErrInvalidSecurityParameter = errors.New("invalid security parameter")
	ErrNotSetup                 = errors.New("scheme not set up")
)
