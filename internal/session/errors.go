package session

import (
	"errors"
	"fmt"
)

var (
	ErrAckMismatch    = errors.New("unexpected acknowledgment")
	ErrDigestMismatch = errors.New("content digest mismatch")
	ErrUnsafeName     = errors.New("artifact name is not a single path element")
	ErrHashLength     = errors.New("declared hash does not fit the configured algorithm")
)

// ErrorKind classifies session failures
type ErrorKind int

const (
	KindConnection   ErrorKind = iota // connection setup or teardown
	KindProtocol                      // malformed header or acknowledgment
	KindIntegrity                     // digest mismatch after full receipt
	KindIO                            // local file or connection I/O
	KindExternalTool                  // archive build or unpack
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindProtocol:
		return "protocol"
	case KindIntegrity:
		return "integrity"
	case KindIO:
		return "io"
	case KindExternalTool:
		return "external tool"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Outcome maps the error kind to the session outcome it produces
func (k ErrorKind) Outcome() Outcome {
	switch k {
	case KindProtocol:
		return OutcomeProtocolFailure
	case KindIntegrity:
		return OutcomeIntegrityFailure
	default:
		return OutcomeIOFailure
	}
}

// Error is returned by every failed session
type Error struct {
	Kind  ErrorKind
	State State // state the session was in when it failed
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failure in %s during %s: %v", e.Kind, e.State, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// OutcomeOf returns the outcome an error returned by a session, or by the
// code that set it up, stands for
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	var sessErr *Error
	if errors.As(err, &sessErr) {
		return sessErr.Kind.Outcome()
	}
	return OutcomeIOFailure
}
