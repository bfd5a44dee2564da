package recursor

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned when a datagram violates the DNS wire format.
	ErrMalformed = errors.New("malformed message")
	// ErrOversized is returned when an encoded message would exceed the datagram size limit.
	ErrOversized = errors.New("oversized message")
	// ErrAliasLoop is returned when following CNAME records revisits a name.
	ErrAliasLoop = errors.New("cname alias loop")
	// ErrMaxDepth is returned when referral following or reentrant resolution exceeds the allowed limit.
	ErrMaxDepth = fmt.Errorf("resolution depth exceeded %d", maxDepth)
	// ErrMaxSteps is returned when resolving exceeds the upstream query limit.
	ErrMaxSteps = fmt.Errorf("resolve steps exceeded %d", maxSteps)
	// ErrNoServers is returned when every candidate nameserver failed to provide a response.
	// It is surfaced to clients as SERVFAIL.
	ErrNoServers = errors.New("no reachable nameserver")
	// ErrIDMismatch is returned when a response carries a different transaction id than the query.
	ErrIDMismatch = errors.New("transaction id mismatch")
)

func errMalformed(what string) error {
	return fmt.Errorf("%w: %s", ErrMalformed, what)
}
