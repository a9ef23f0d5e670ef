package digest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownVectors(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		in   string
		want string
	}{
		{MD5, "", "d41d8cd98f00b204e9800998ecf8427e"},
		{MD5, "hello world\n", "6f5902ac237024bdd0c176cb93063dc4"},
		{SHA256, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{BLAKE3, "", "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
	}

	for _, tt := range tests {
		t.Run(string(tt.alg), func(t *testing.T) {
			got, err := Bytes(tt.alg, []byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, tt.alg.HexLen())
		})
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	_, err := New("crc32")
	require.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, err = ParseAlgorithm("whirlpool")
	require.ErrorIs(t, err, ErrUnknownAlgorithm)

	alg, err := ParseAlgorithm("SHA256")
	require.NoError(t, err)
	assert.Equal(t, SHA256, alg)
}

func TestIncrementalFeedingMatchesSingleWrite(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	for _, alg := range []Algorithm{MD5, SHA256, BLAKE3} {
		alg := alg
		properties.Property(string(alg)+" digest is independent of write boundaries", prop.ForAll(
			func(data []byte, cuts []int) bool {
				whole, err := Bytes(alg, data)
				if err != nil {
					return false
				}

				d, err := New(alg)
				if err != nil {
					return false
				}
				rest := data
				for _, c := range cuts {
					if len(rest) == 0 {
						break
					}
					n := c % (len(rest) + 1)
					d.Write(rest[:n])
					rest = rest[n:]
				}
				d.Write(rest)

				return d.Sum() == whole
			},
			gen.SliceOf(gen.UInt8()),
			gen.SliceOf(gen.IntRange(0, 64)),
		))
	}

	properties.TestingRun(t)
}

func TestFileMatchesBytes(t *testing.T) {
	payload := bytes.Repeat([]byte("vimsicles"), 10000)
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	fromFile, err := File(MD5, path)
	require.NoError(t, err)
	fromBytes, err := Bytes(MD5, payload)
	require.NoError(t, err)
	assert.Equal(t, fromBytes, fromFile)

	_, err = File(MD5, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestEqualIgnoresCase(t *testing.T) {
	assert.True(t, Equal("D41D8CD98F00B204E9800998ECF8427E", "d41d8cd98f00b204e9800998ecf8427e"))
	assert.False(t, Equal("d41d8cd98f00b204e9800998ecf8427e", "d41d8cd98f00b204e9800998ecf8427f"))
}
