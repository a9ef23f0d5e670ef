package archive

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vimsicles/internal/logging"
)

func writeTree(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "nested", "b.txt"), []byte("bravo bravo"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "single.bin"), []byte{0, 1, 2, 3}, 0o644))
}

func TestBuildAndUnpack(t *testing.T) {
	for _, c := range []Compression{CompressionGzip, CompressionZstd, CompressionLZ4, CompressionNone} {
		t.Run(string(c), func(t *testing.T) {
			src := t.TempDir()
			writeTree(t, src)

			builder := NewBuilder(c, logging.Nop())
			archivePath := filepath.Join(t.TempDir(), "bundle"+builder.Extension())
			entries, err := builder.Build([]string{
				filepath.Join(src, "docs"),
				filepath.Join(src, "single.bin"),
			}, archivePath)
			require.NoError(t, err)

			var paths []string
			for _, e := range entries {
				paths = append(paths, e.Path)
			}
			assert.ElementsMatch(t, []string{"docs", "docs/a.txt", "docs/nested", "docs/nested/b.txt", "single.bin"}, paths)

			dest := t.TempDir()
			require.NoError(t, NewExtractor(logging.Nop()).Unpack(archivePath, dest))

			got, err := os.ReadFile(filepath.Join(dest, "docs", "nested", "b.txt"))
			require.NoError(t, err)
			assert.Equal(t, "bravo bravo", string(got))

			got, err = os.ReadFile(filepath.Join(dest, "single.bin"))
			require.NoError(t, err)
			assert.Equal(t, []byte{0, 1, 2, 3}, got)

			info, err := os.Stat(filepath.Join(dest, "docs", "nested", "b.txt"))
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
		})
	}
}

func TestBuildMissingSourceRemovesArchive(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "bundle.tar.gz")
	_, err := NewBuilder(CompressionGzip, logging.Nop()).Build([]string{"/does/not/exist"}, archivePath)
	require.Error(t, err)

	_, statErr := os.Stat(archivePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUnpackRejectsTraversal(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "evil.tar")
	f, err := os.Create(archivePath)
	require.NoError(t, err)
	tw := tar.NewWriter(f)
	body := []byte("owned")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "../escape.txt",
		Mode:     0o644,
		Size:     int64(len(body)),
		Typeflag: tar.TypeReg,
	}))
	_, err = tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, f.Close())

	parent := t.TempDir()
	dest := filepath.Join(parent, "dest")
	require.NoError(t, os.Mkdir(dest, 0o755))

	err = NewExtractor(logging.Nop()).Unpack(archivePath, dest)
	assert.ErrorIs(t, err, ErrUnsafePath)

	_, statErr := os.Stat(filepath.Join(parent, "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUnpackSkipsLinks(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "links.tar")
	f, err := os.Create(archivePath)
	require.NoError(t, err)
	tw := tar.NewWriter(f)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "passwd",
		Linkname: "/etc/passwd",
		Typeflag: tar.TypeSymlink,
	}))
	require.NoError(t, tw.Close())
	require.NoError(t, f.Close())

	dest := t.TempDir()
	require.NoError(t, NewExtractor(logging.Nop()).Unpack(archivePath, dest))

	_, statErr := os.Lstat(filepath.Join(dest, "passwd"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUnpackNeverOverwritesArchive(t *testing.T) {
	dest := t.TempDir()
	archivePath := filepath.Join(dest, ".partial-bundle.tar")
	f, err := os.Create(archivePath)
	require.NoError(t, err)
	tw := tar.NewWriter(f)
	for _, m := range []struct{ name, body string }{
		{".partial-bundle.tar", "clobber"},
		{"ok.txt", "fine"},
	} {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     m.name,
			Mode:     0o644,
			Size:     int64(len(m.body)),
			Typeflag: tar.TypeReg,
		}))
		_, err = tw.Write([]byte(m.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, f.Close())

	before, err := os.ReadFile(archivePath)
	require.NoError(t, err)

	require.NoError(t, NewExtractor(logging.Nop()).Unpack(archivePath, dest))

	after, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	got, err := os.ReadFile(filepath.Join(dest, "ok.txt"))
	require.NoError(t, err)
	assert.Equal(t, "fine", string(got))
}

func TestCompressionForName(t *testing.T) {
	tests := map[string]Compression{
		"notes.tar.gz":          CompressionGzip,
		"notes.tgz":             CompressionGzip,
		"notes.tar.zst":         CompressionZstd,
		"NOTES.TAR.LZ4":         CompressionLZ4,
		"notes.tar":             CompressionNone,
		".partial-notes.tar.gz": CompressionGzip,
	}
	for name, want := range tests {
		assert.Equal(t, want, CompressionForName(name), name)
	}
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, c)

	_, err = ParseCompression("bzip2")
	assert.Error(t, err)
}
