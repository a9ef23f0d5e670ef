package types

import (
	"fmt"
	"strings"
	"time"
)

// Kind tells the receiver how to dispose of a verified artifact
type Kind int

const (
	KindFile   Kind = iota // stored as-is under its name
	KindFolder             // an archive unpacked into the destination directory
)

// String returns the wire spelling of the kind
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses the wire spelling of a kind, ignoring case
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "file":
		return KindFile, nil
	case "folder":
		return KindFolder, nil
	default:
		return 0, fmt.Errorf("unknown artifact kind %q", s)
	}
}

// TransferMetadata is the header a sender declares before streaming an artifact
type TransferMetadata struct {
	Kind        Kind    // File or Folder
	Name        string  // Artifact name, a single path element
	ContentHash string  // Lowercase hex digest of the artifact bytes
	Entries     []Entry // Archive listing, informational only
}

// Entry describes one member of a folder archive
type Entry struct {
	Path         string    `msgpack:"path"`
	Name         string    `msgpack:"name"`
	IsDirectory  bool      `msgpack:"is_directory"`
	Size         int64     `msgpack:"size"`
	LastModified time.Time `msgpack:"last_modified"`
}
