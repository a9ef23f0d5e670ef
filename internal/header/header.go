// Package header encodes and decodes the metadata record a sender declares
// before streaming an artifact.
//
// Three wire shapes exist across deployed peers:
//   - Legacy:     "<name>|<hash>" (kind is always file)
//   - Delimited:  "<kind>|<name>|<hash>", kind is "file" or "folder"
//   - Structured: 4-byte little-endian length, then a msgpack record
//
// A deployment picks one shape for encoding. A receiver in delimited mode
// decodes both the legacy and the delimited shape.
package header

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"vimsicles/pkg/types"
)

// Separator splits the fields of the delimited shapes
const Separator = "|"

// LengthPrefixSize is the size of the structured shape's length prefix
const LengthPrefixSize = 4

// MaxStructuredSize bounds the payload of a structured header
const MaxStructuredSize = 16 * 1024 * 1024

// Format selects the wire shape used for encoding
type Format string

const (
	FormatLegacy     Format = "legacy"
	FormatDelimited  Format = "delimited"
	FormatStructured Format = "structured"
)

var ErrInvalidName = errors.New("artifact name is not encodable")

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatLegacy, FormatDelimited, FormatStructured:
		return f, nil
	default:
		return "", fmt.Errorf("unknown header format %q", name)
	}
}

// DecodeError reports a header that could not be parsed
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid metadata header: %s: %v", e.Reason, e.Err)
	}
	return "invalid metadata header: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(reason string, err error) error {
	return &DecodeError{Reason: reason, Err: err}
}

// Codec encodes and decodes headers in one wire format
type Codec struct {
	format Format
}

// NewCodec creates a codec for the given format
func NewCodec(format Format) (*Codec, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	return &Codec{format: format}, nil
}

// Format reports the codec's wire format
func (c *Codec) Format() Format {
	return c.format
}

// Encode renders metadata in the codec's wire format
func (c *Codec) Encode(m types.TransferMetadata) ([]byte, error) {
	if err := validateName(m.Name); err != nil {
		return nil, err
	}
	if m.ContentHash == "" {
		return nil, errors.New("content hash is empty")
	}

	switch c.format {
	case FormatLegacy:
		if m.Kind != types.KindFile {
			return nil, fmt.Errorf("legacy header cannot declare kind %s", m.Kind)
		}
		return []byte(m.Name + Separator + m.ContentHash), nil
	case FormatDelimited:
		return []byte(m.Kind.String() + Separator + m.Name + Separator + m.ContentHash), nil
	default:
		return encodeStructured(m)
	}
}

// Decode parses a complete header received from a peer
func (c *Codec) Decode(b []byte) (types.TransferMetadata, error) {
	if c.format == FormatStructured {
		return decodeStructured(b)
	}
	return decodeDelimited(b)
}

// ReadHeader reads one raw header from r. Delimited headers arrive as a
// single unframed write, so one read of at most maxSize bytes is taken.
// Structured headers are read according to their length prefix.
func (c *Codec) ReadHeader(r io.Reader, maxSize int) ([]byte, error) {
	if c.format == FormatStructured {
		prefix := make([]byte, LengthPrefixSize)
		if _, err := io.ReadFull(r, prefix); err != nil {
			return nil, fmt.Errorf("failed to read header length: %w", err)
		}
		size := binary.LittleEndian.Uint32(prefix)
		if size > MaxStructuredSize {
			return nil, decodeErr(fmt.Sprintf("declared length %d exceeds %d", size, MaxStructuredSize), nil)
		}
		buf := make([]byte, LengthPrefixSize+int(size))
		copy(buf, prefix)
		if _, err := io.ReadFull(r, buf[LengthPrefixSize:]); err != nil {
			return nil, fmt.Errorf("failed to read header body: %w", err)
		}
		return buf, nil
	}

	buf := make([]byte, maxSize)
	n, err := r.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return nil, fmt.Errorf("failed to read header: %w", err)
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, Separator+"\r\n\x00") {
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidName, name)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidName, name)
	}
	return nil
}

func decodeDelimited(b []byte) (types.TransferMetadata, error) {
	var m types.TransferMetadata

	text := strings.Trim(string(b), " \t\r\n\x00")
	fields := strings.Split(text, Separator)

	switch len(fields) {
	case 2:
		m.Kind = types.KindFile
		m.Name, m.ContentHash = fields[0], fields[1]
	case 3:
		kind, err := types.ParseKind(fields[0])
		if err != nil {
			return m, decodeErr("unrecognized kind", err)
		}
		m.Kind = kind
		m.Name, m.ContentHash = fields[1], fields[2]
	case 1:
		return m, decodeErr("separator not found", nil)
	default:
		return m, decodeErr(fmt.Sprintf("expected 2 or 3 fields, got %d", len(fields)), nil)
	}

	if err := checkFields(m); err != nil {
		return types.TransferMetadata{}, err
	}
	return m, nil
}

func checkFields(m types.TransferMetadata) error {
	if m.Name == "" {
		return decodeErr("empty name", nil)
	}
	if m.ContentHash == "" {
		return decodeErr("empty content hash", nil)
	}
	if _, err := hex.DecodeString(m.ContentHash); err != nil {
		return decodeErr("content hash is not hex", err)
	}
	return nil
}
