package header

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"vimsicles/pkg/types"
)

// record is the msgpack body of a structured header. The hash field keeps
// its historical name whatever digest algorithm the deployment uses.
type record struct {
	ArchiveName string        `msgpack:"archive_name"`
	MD5Hash     string        `msgpack:"md5_hash"`
	Kind        string        `msgpack:"kind,omitempty"`
	Entries     []types.Entry `msgpack:"entries"`
}

func encodeStructured(m types.TransferMetadata) ([]byte, error) {
	body, err := msgpack.Marshal(&record{
		ArchiveName: m.Name,
		MD5Hash:     m.ContentHash,
		Kind:        m.Kind.String(),
		Entries:     m.Entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(body) > MaxStructuredSize {
		return nil, fmt.Errorf("header of %d bytes exceeds %d", len(body), MaxStructuredSize)
	}

	buf := make([]byte, LengthPrefixSize+len(body))
	binary.LittleEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(body)))
	copy(buf[LengthPrefixSize:], body)
	return buf, nil
}

func decodeStructured(b []byte) (types.TransferMetadata, error) {
	var m types.TransferMetadata

	if len(b) < LengthPrefixSize {
		return m, decodeErr(fmt.Sprintf("%d bytes is shorter than the length prefix", len(b)), nil)
	}
	declared := binary.LittleEndian.Uint32(b[:LengthPrefixSize])
	body := b[LengthPrefixSize:]
	if uint64(declared) != uint64(len(body)) {
		return m, decodeErr(fmt.Sprintf("length prefix declares %d bytes, got %d", declared, len(body)), nil)
	}

	var rec record
	if err := msgpack.Unmarshal(body, &rec); err != nil {
		return m, decodeErr("malformed record", err)
	}

	// Peers that predate the kind field only ever sent archives with a listing.
	switch {
	case rec.Kind != "":
		kind, err := types.ParseKind(rec.Kind)
		if err != nil {
			return m, decodeErr("unrecognized kind", err)
		}
		m.Kind = kind
	case len(rec.Entries) > 0:
		m.Kind = types.KindFolder
	default:
		m.Kind = types.KindFile
	}

	m.Name = rec.ArchiveName
	m.ContentHash = rec.MD5Hash
	for _, e := range rec.Entries {
		e.LastModified = normalizeTime(e.LastModified)
		m.Entries = append(m.Entries, e)
	}

	if err := checkFields(m); err != nil {
		return types.TransferMetadata{}, err
	}
	return m, nil
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}
