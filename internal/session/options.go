package session

import (
	"fmt"

	"vimsicles/internal/config"
	"vimsicles/internal/digest"
	"vimsicles/internal/header"
	"vimsicles/internal/transport"
	"vimsicles/pkg/types"
)

// DefaultAck is the readiness literal sent by receivers
const DefaultAck = "HELLO\n"

// DefaultMaxHeaderSize bounds a single delimited header read
const DefaultMaxHeaderSize = 4096

// Options tune one session. The zero value of every field selects its
// default.
type Options struct {
	ChunkSize     int
	Ack           []byte
	HeaderFormat  header.Format
	Algorithm     digest.Algorithm
	MaxHeaderSize int
	Progress      transport.ProgressFunc
}

// OptionsFromConfig derives session options from the transfer settings
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	format, err := header.ParseFormat(cfg.Transfer.HeaderFormat)
	if err != nil {
		return Options{}, err
	}
	alg, err := digest.ParseAlgorithm(cfg.Transfer.HashAlgorithm)
	if err != nil {
		return Options{}, err
	}
	return Options{
		ChunkSize:     cfg.Transfer.ChunkSize,
		Ack:           []byte(cfg.Transfer.Ack),
		HeaderFormat:  format,
		Algorithm:     alg,
		MaxHeaderSize: cfg.Transfer.MaxHeaderSize,
	}, nil
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = transport.DefaultChunkSize
	}
	if len(o.Ack) == 0 {
		o.Ack = []byte(DefaultAck)
	}
	if o.HeaderFormat == "" {
		o.HeaderFormat = header.FormatDelimited
	}
	if o.Algorithm == "" {
		o.Algorithm = digest.Default
	}
	if o.MaxHeaderSize <= 0 {
		o.MaxHeaderSize = DefaultMaxHeaderSize
	}
	return o
}

// Artifact is the local file a sender transfers
type Artifact struct {
	Kind    types.Kind
	Name    string // name declared to the receiver
	Path    string // local path of the bytes to send
	Entries []types.Entry
}

// Result summarizes a finished session, successful or not
type Result struct {
	Outcome  Outcome
	State    State
	Metadata types.TransferMetadata
	Path     string // final location of the artifact on the receiver
	Bytes    int64
	Trace    []State
}

func (r *Result) String() string {
	return fmt.Sprintf("%s in %s after %d bytes", r.Outcome, r.State, r.Bytes)
}
