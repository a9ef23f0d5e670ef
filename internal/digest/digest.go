// Package digest computes content hashes used to detect corruption of a
// transferred artifact. It is not an authentication mechanism.
package digest

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm names a supported digest
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// Default is what every deployed peer computes
const Default = MD5

var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// ParseAlgorithm validates an algorithm name
func ParseAlgorithm(name string) (Algorithm, error) {
	switch alg := Algorithm(strings.ToLower(name)); alg {
	case MD5, SHA256, BLAKE3:
		return alg, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// HexLen returns the length of a hex digest produced by alg
func (a Algorithm) HexLen() int {
	switch a {
	case MD5:
		return md5.Size * 2
	default:
		return 64
	}
}

// Hasher accumulates a digest over bytes fed in any number of increments
type Hasher struct {
	h hash.Hash
}

// New returns a hasher in its initial state
func New(alg Algorithm) (*Hasher, error) {
	var h hash.Hash
	switch alg {
	case MD5:
		h = md5.New()
	case SHA256:
		h = sha256.New()
	case BLAKE3:
		h = blake3.New()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(alg))
	}
	return &Hasher{h: h}, nil
}

// Write feeds p into the digest. It never returns an error.
func (d *Hasher) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Sum returns the lowercase hex digest of everything written so far.
// The hasher may keep receiving writes afterwards.
func (d *Hasher) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// Bytes hashes b in one increment
func Bytes(alg Algorithm, b []byte) (string, error) {
	d, err := New(alg)
	if err != nil {
		return "", err
	}
	d.Write(b)
	return d.Sum(), nil
}

// Reader hashes everything r yields until EOF
func Reader(alg Algorithm, r io.Reader) (string, error) {
	d, err := New(alg)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(d, r); err != nil {
		return "", fmt.Errorf("failed to read content for digest: %w", err)
	}
	return d.Sum(), nil
}

// File hashes the contents of the file at path
func File(alg Algorithm, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for digest: %w", err)
	}
	defer f.Close()

	return Reader(alg, f)
}

// Equal compares two hex digests without regard to letter case
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
