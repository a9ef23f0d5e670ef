package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"vimsicles/internal/digest"
	"vimsicles/internal/header"
	"vimsicles/internal/transport"
	"vimsicles/pkg/types"
)

// ackTrim is stripped from the end of acknowledgments before comparing
const ackTrim = " \t\r\n\x00"

// Sender is the initiating side of a session
type Sender struct {
	conn   io.ReadWriteCloser
	opts   Options
	logger *zap.SugaredLogger
	m      *machine
}

// NewSender creates a sender owning conn. The connection is closed when
// Send returns.
func NewSender(conn io.ReadWriteCloser, opts Options, logger *zap.SugaredLogger) *Sender {
	logger = logger.With("role", string(RoleSender))
	return &Sender{
		conn:   conn,
		opts:   opts.withDefaults(),
		logger: logger,
		m:      newMachine(RoleSender, logger),
	}
}

// Send transfers the artifact. Cancelling ctx closes the connection, which
// unblocks any pending read or write.
func (s *Sender) Send(ctx context.Context, a Artifact) (*Result, error) {
	defer s.conn.Close()
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	result := &Result{}
	err := s.run(ctx, a, result)

	result.State = s.m.state
	result.Trace = s.m.Trace()
	result.Outcome = OutcomeOf(err)
	if err != nil {
		s.logger.Errorw("Transfer failed", "outcome", result.Outcome.String(), "error", err)
		return result, err
	}
	s.logger.Infow("Transfer sent", "name", a.Name, "bytes", result.Bytes)
	return result, nil
}

func (s *Sender) run(ctx context.Context, a Artifact, result *Result) error {
	codec, err := header.NewCodec(s.opts.HeaderFormat)
	if err != nil {
		return s.m.fail(KindProtocol, "configure codec", err)
	}

	// INIT
	sum, err := digest.File(s.opts.Algorithm, a.Path)
	if err != nil {
		return s.m.fail(KindIO, "hash artifact", err)
	}
	meta := types.TransferMetadata{
		Kind:        a.Kind,
		Name:        a.Name,
		ContentHash: sum,
		Entries:     a.Entries,
	}
	result.Metadata = meta

	raw, err := codec.Encode(meta)
	if err != nil {
		return s.m.fail(KindProtocol, "encode header", err)
	}
	if _, err := s.conn.Write(raw); err != nil {
		return s.m.fail(KindIO, "send header", s.cause(ctx, err))
	}
	s.logger.Debugw("Header sent", "format", string(codec.Format()), "kind", meta.Kind.String(), "name", meta.Name, "hash", meta.ContentHash)
	s.m.advance(StateMetadataExchanged)

	// METADATA_EXCHANGED
	if err := s.awaitAck(ctx); err != nil {
		if ctx.Err() != nil {
			return s.m.fail(KindConnection, "await acknowledgment", err)
		}
		return s.m.fail(KindProtocol, "await acknowledgment", err)
	}
	s.m.advance(StateStreaming)

	// STREAMING
	stream := transport.NewStream(s.opts.ChunkSize, s.opts.Progress)
	n, err := stream.SendAll(s.conn, a.Path)
	result.Bytes = n
	if err != nil {
		return s.m.fail(KindIO, "stream artifact", s.cause(ctx, err))
	}
	s.m.advance(StateDisposed)
	return nil
}

// awaitAck reads until the acknowledgment is complete. The literal may
// arrive split across reads; reading stops early once the bytes seen so
// far can no longer match.
func (s *Sender) awaitAck(ctx context.Context) error {
	want := bytes.TrimRight(s.opts.Ack, ackTrim)
	chunk := make([]byte, max(len(s.opts.Ack), 64))
	var got []byte
	for len(got) < len(want) {
		n, err := s.conn.Read(chunk)
		got = append(got, chunk[:n]...)
		if len(got) >= len(want) || !bytes.HasPrefix(want, got) {
			break
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			return s.cause(ctx, err)
		}
		if len(got) == 0 {
			return fmt.Errorf("%w: connection closed before acknowledgment", ErrAckMismatch)
		}
		break
	}

	got = bytes.TrimRight(got, ackTrim)
	if !bytes.Equal(got, want) {
		return fmt.Errorf("%w: got %q, want %q", ErrAckMismatch, got, want)
	}
	return nil
}

// cause prefers the context error when cancellation closed the connection
func (s *Sender) cause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}
