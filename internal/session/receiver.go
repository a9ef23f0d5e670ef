package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"vimsicles/internal/digest"
	"vimsicles/internal/header"
	"vimsicles/internal/transport"
	"vimsicles/pkg/types"
)

// partialPrefix marks artifacts that are still unverified. The declared
// name is kept as the suffix so unpackers can infer the archive format.
const partialPrefix = ".partial-"

// Unpacker extracts a verified folder archive into a directory
type Unpacker interface {
	Unpack(archivePath, destDir string) error
}

// Receiver is the accepting side of a session
type Receiver struct {
	conn     io.ReadWriteCloser
	destDir  string
	unpacker Unpacker
	opts     Options
	logger   *zap.SugaredLogger
	m        *machine
}

// NewReceiver creates a receiver owning conn that stores artifacts under
// destDir. The connection is closed when Receive returns.
func NewReceiver(conn io.ReadWriteCloser, destDir string, unpacker Unpacker, opts Options, logger *zap.SugaredLogger) *Receiver {
	logger = logger.With("role", string(RoleReceiver))
	return &Receiver{
		conn:     conn,
		destDir:  destDir,
		unpacker: unpacker,
		opts:     opts.withDefaults(),
		logger:   logger,
		m:        newMachine(RoleReceiver, logger),
	}
}

// PartialPath returns where an artifact named name is held until verified
func PartialPath(destDir, name string) string {
	return filepath.Join(destDir, partialPrefix+name)
}

// Receive accepts one artifact. Unverified bytes never leave the partial
// path: on any failure before verification completes they are deleted, and
// after verification they are kept if disposition fails.
func (r *Receiver) Receive(ctx context.Context) (*Result, error) {
	defer r.conn.Close()
	stop := context.AfterFunc(ctx, func() { r.conn.Close() })
	defer stop()

	result := &Result{}
	err := r.run(ctx, result)

	result.State = r.m.state
	result.Trace = r.m.Trace()
	result.Outcome = OutcomeOf(err)
	if err != nil {
		r.logger.Errorw("Transfer failed", "outcome", result.Outcome.String(), "error", err)
		return result, err
	}
	r.logger.Infow("Transfer received", "name", result.Metadata.Name, "path", result.Path, "bytes", result.Bytes)
	return result, nil
}

func (r *Receiver) run(ctx context.Context, result *Result) error {
	codec, err := header.NewCodec(r.opts.HeaderFormat)
	if err != nil {
		return r.m.fail(KindProtocol, "configure codec", err)
	}

	// INIT
	raw, err := codec.ReadHeader(r.conn, r.opts.MaxHeaderSize)
	if err != nil {
		if ctx.Err() != nil {
			return r.m.fail(KindConnection, "read header", fmt.Errorf("%w: %v", ctx.Err(), err))
		}
		return r.m.fail(KindProtocol, "read header", err)
	}
	meta, err := codec.Decode(raw)
	if err != nil {
		return r.m.fail(KindProtocol, "decode header", err)
	}
	if err := checkName(meta.Name); err != nil {
		return r.m.fail(KindProtocol, "decode header", err)
	}
	if len(meta.ContentHash) != r.opts.Algorithm.HexLen() {
		return r.m.fail(KindProtocol, "decode header", fmt.Errorf("%w: %d hex digits, %s needs %d",
			ErrHashLength, len(meta.ContentHash), r.opts.Algorithm, r.opts.Algorithm.HexLen()))
	}
	result.Metadata = meta
	r.logger.Debugw("Header received", "format", string(codec.Format()), "kind", meta.Kind.String(), "name", meta.Name, "hash", meta.ContentHash)
	r.m.advance(StateMetadataExchanged)

	// METADATA_EXCHANGED
	if err := os.MkdirAll(r.destDir, 0o755); err != nil {
		return r.m.fail(KindIO, "create destination", err)
	}
	if _, err := r.conn.Write(r.opts.Ack); err != nil {
		return r.m.fail(KindIO, "send acknowledgment", err)
	}
	r.m.advance(StateStreaming)

	// STREAMING
	partial := PartialPath(r.destDir, meta.Name)
	stream := transport.NewStream(r.opts.ChunkSize, r.opts.Progress)
	n, err := stream.ReceiveUntilClose(r.conn, partial)
	result.Bytes = n
	switch {
	case ctx.Err() != nil:
		r.discard(partial)
		return r.m.fail(KindConnection, "receive artifact", ctx.Err())
	case err != nil && !transport.IsConnError(err):
		r.discard(partial)
		return r.m.fail(KindIO, "receive artifact", err)
	case err != nil:
		r.logger.Warnw("Connection ended abnormally, verifying what arrived", "bytes", n, "error", err)
	}
	r.m.advance(StateVerifying)

	// VERIFYING
	sum, err := digest.File(r.opts.Algorithm, partial)
	if err != nil {
		r.discard(partial)
		return r.m.fail(KindIO, "hash artifact", err)
	}
	if !digest.Equal(sum, meta.ContentHash) {
		r.discard(partial)
		return r.m.fail(KindIntegrity, "verify artifact",
			fmt.Errorf("%w: declared %s, computed %s over %d bytes", ErrDigestMismatch, meta.ContentHash, sum, n))
	}
	r.logger.Debugw("Artifact verified", "hash", sum, "bytes", n)

	path, err := r.dispose(meta, partial)
	if err != nil {
		return err
	}
	result.Path = path
	r.m.advance(StateDisposed)
	return nil
}

// dispose moves a verified artifact to its final location. On failure the
// verified bytes stay at the partial path.
func (r *Receiver) dispose(meta types.TransferMetadata, partial string) (string, error) {
	if meta.Kind == types.KindFolder {
		if r.unpacker == nil {
			return "", r.m.fail(KindExternalTool, "unpack archive", fmt.Errorf("no unpacker configured, archive kept at %s", partial))
		}
		if err := r.unpacker.Unpack(partial, r.destDir); err != nil {
			return "", r.m.fail(KindExternalTool, "unpack archive", fmt.Errorf("%w (archive kept at %s)", err, partial))
		}
		if err := os.Remove(partial); err != nil {
			return "", r.m.fail(KindIO, "remove archive", err)
		}
		return r.destDir, nil
	}

	final := filepath.Join(r.destDir, meta.Name)
	if err := os.Rename(partial, final); err != nil {
		return "", r.m.fail(KindIO, "store artifact", fmt.Errorf("%w (artifact kept at %s)", err, partial))
	}
	return final, nil
}

func (r *Receiver) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.logger.Warnw("Failed to remove rejected artifact", "path", path, "error", err)
	}
}

// checkName rejects names that would resolve outside the destination
func checkName(name string) error {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return nil
}
