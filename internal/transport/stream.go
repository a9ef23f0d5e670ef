package transport

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultChunkSize is the read/write granularity in both directions. Peers
// do not need to agree on it.
const DefaultChunkSize = 64 * 1024

// Side identifies which end of a stream copy failed
type Side int

const (
	SideConn Side = iota // the network connection
	SideFile             // the local artifact file
)

func (s Side) String() string {
	if s == SideConn {
		return "connection"
	}
	return "file"
}

// StreamError is returned by SendAll and ReceiveUntilClose
type StreamError struct {
	Side Side
	Op   string
	Err  error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Side, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsConnError reports whether err came from the connection side of a copy
func IsConnError(err error) bool {
	var se *StreamError
	return errors.As(err, &se) && se.Side == SideConn
}

// ProgressFunc is called with the size of every chunk moved
type ProgressFunc func(n int)

// Stream copies artifact bytes to and from a connection in fixed-size chunks
type Stream struct {
	chunkSize int
	progress  ProgressFunc
}

// NewStream creates a stream with the given chunk size; non-positive
// sizes fall back to DefaultChunkSize. progress may be nil.
func NewStream(chunkSize int, progress ProgressFunc) *Stream {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Stream{chunkSize: chunkSize, progress: progress}
}

// ChunkSize reports the stream's chunk size
func (s *Stream) ChunkSize() int {
	return s.chunkSize
}

// SendAll writes the artifact at path to conn and returns the number of
// bytes written. No framing is added; the peer learns the end of the
// artifact from the connection closing.
func (s *Stream) SendAll(conn io.Writer, path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, &StreamError{Side: SideFile, Op: "open", Err: err}
	}
	defer file.Close()

	var total int64
	buffer := make([]byte, s.chunkSize)
	for {
		n, err := file.Read(buffer)
		if n > 0 {
			if _, werr := conn.Write(buffer[:n]); werr != nil {
				return total, &StreamError{Side: SideConn, Op: "write", Err: werr}
			}
			total += int64(n)
			s.report(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, &StreamError{Side: SideFile, Op: "read", Err: err}
		}
	}
}

// ReceiveUntilClose writes everything read from conn into destPath,
// creating or truncating it, until conn reports end of stream. The
// returned count covers bytes persisted even when an error is returned.
// A partially written file is left in place for the caller to handle.
func (s *Stream) ReceiveUntilClose(conn io.Reader, destPath string) (int64, error) {
	file, err := os.Create(destPath)
	if err != nil {
		return 0, &StreamError{Side: SideFile, Op: "create", Err: err}
	}

	total, copyErr := s.receive(conn, file)
	if err := file.Close(); err != nil && copyErr == nil {
		copyErr = &StreamError{Side: SideFile, Op: "close", Err: err}
	}
	return total, copyErr
}

func (s *Stream) receive(conn io.Reader, file *os.File) (int64, error) {
	var total int64
	buffer := make([]byte, s.chunkSize)
	for {
		n, err := conn.Read(buffer)
		if n > 0 {
			if _, werr := file.Write(buffer[:n]); werr != nil {
				return total, &StreamError{Side: SideFile, Op: "write", Err: werr}
			}
			total += int64(n)
			s.report(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, &StreamError{Side: SideConn, Op: "read", Err: err}
		}
	}
}

func (s *Stream) report(n int) {
	if s.progress != nil {
		s.progress(n)
	}
}
