// Package session runs one verified artifact transfer over an established
// connection. A Sender and a Receiver each drive an explicit state machine:
//
//	INIT -> METADATA_EXCHANGED -> STREAMING -> VERIFYING -> DISPOSED
//
// The sender skips VERIFYING, and every non-terminal state may move to FAILED.
//
// The protocol is one-way blind: the receiver never reports its verdict
// back, so a sender reaching DISPOSED only knows that every byte was handed
// to the connection.
//
// A received file replaces any file of the same name in the destination.
// A directory of that name is never replaced: the session fails with
// IOFailure and the verified bytes stay at the partial path.
package session

import (
	"fmt"

	"go.uber.org/zap"
)

// State is a step of the transfer state machine
type State int

const (
	StateInit State = iota
	StateMetadataExchanged
	StateStreaming
	StateVerifying
	StateDisposed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateMetadataExchanged:
		return "METADATA_EXCHANGED"
	case StateStreaming:
		return "STREAMING"
	case StateVerifying:
		return "VERIFYING"
	case StateDisposed:
		return "DISPOSED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == StateDisposed || s == StateFailed
}

// Outcome is the single terminal verdict of a session
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeProtocolFailure
	OutcomeIntegrityFailure
	OutcomeIOFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "Success"
	case OutcomeProtocolFailure:
		return "ProtocolFailure"
	case OutcomeIntegrityFailure:
		return "IntegrityFailure"
	case OutcomeIOFailure:
		return "IOFailure"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Role names the side of the session
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// canTransition reports whether role may move from one state to another
func canTransition(role Role, from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	switch from {
	case StateInit:
		return to == StateMetadataExchanged
	case StateMetadataExchanged:
		return to == StateStreaming
	case StateStreaming:
		if role == RoleSender {
			return to == StateDisposed
		}
		return to == StateVerifying
	case StateVerifying:
		return role == RoleReceiver && to == StateDisposed
	}
	return false
}

// machine holds the current state of one session and every state it has
// passed through
type machine struct {
	role   Role
	state  State
	trace  []State
	logger *zap.SugaredLogger
}

func newMachine(role Role, logger *zap.SugaredLogger) *machine {
	return &machine{
		role:   role,
		state:  StateInit,
		trace:  []State{StateInit},
		logger: logger,
	}
}

func (m *machine) advance(to State) {
	if !canTransition(m.role, m.state, to) {
		panic(fmt.Sprintf("session: illegal %s transition %s -> %s", m.role, m.state, to))
	}
	m.logger.Debugw("State transition", "from", m.state.String(), "to", to.String())
	m.state = to
	m.trace = append(m.trace, to)
}

// fail moves the machine to FAILED and returns the session error
// describing why
func (m *machine) fail(kind ErrorKind, op string, err error) *Error {
	sessErr := &Error{Kind: kind, State: m.state, Op: op, Err: err}
	m.advance(StateFailed)
	return sessErr
}

func (m *machine) Trace() []State {
	out := make([]State, len(m.trace))
	copy(out, m.trace)
	return out
}
