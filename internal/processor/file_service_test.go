package processor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vimsicles/internal/archive"
	"vimsicles/internal/logging"
	"vimsicles/pkg/types"
)

func newService(c archive.Compression) *FileService {
	return NewFileService(archive.NewBuilder(c, logging.Nop()), logging.Nop())
}

func TestPrepareSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world\n"), 0o644))

	p, err := newService(archive.CompressionGzip).Prepare([]string{path})
	require.NoError(t, err)
	defer p.Cleanup()

	assert.Equal(t, types.KindFile, p.Artifact.Kind)
	assert.Equal(t, "hello.txt", p.Artifact.Name)
	assert.Equal(t, path, p.Artifact.Path)
	assert.EqualValues(t, 12, p.Size)
	assert.NoError(t, p.Cleanup(), "nothing to clean for plain files")
	assert.FileExists(t, path)
}

func TestPrepareDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "notes")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("a"), 0o644))

	p, err := newService(archive.CompressionZstd).Prepare([]string{dir})
	require.NoError(t, err)

	assert.Equal(t, types.KindFolder, p.Artifact.Kind)
	assert.Equal(t, "notes.tar.zst", p.Artifact.Name)
	assert.Len(t, p.Artifact.Entries, 2)
	assert.FileExists(t, p.Artifact.Path)
	assert.Positive(t, p.Size)

	require.NoError(t, p.Cleanup())
	assert.NoFileExists(t, p.Artifact.Path)
}

func TestPrepareSeveralPaths(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	p, err := newService(archive.CompressionGzip).Prepare([]string{a, b})
	require.NoError(t, err)
	defer p.Cleanup()

	assert.Equal(t, types.KindFolder, p.Artifact.Kind)
	assert.Equal(t, "shared_files.tar.gz", p.Artifact.Name)

	dest := t.TempDir()
	require.NoError(t, archive.NewExtractor(logging.Nop()).Unpack(p.Artifact.Path, dest))
	assert.FileExists(t, filepath.Join(dest, "a.txt"))
	assert.FileExists(t, filepath.Join(dest, "b.txt"))
}

func TestPrepareErrors(t *testing.T) {
	svc := newService(archive.CompressionGzip)

	_, err := svc.Prepare(nil)
	assert.ErrorIs(t, err, ErrNoPaths)

	_, err = svc.Prepare([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestFormatFileSize(t *testing.T) {
	svc := newService(archive.CompressionGzip)
	assert.Equal(t, "512 B", svc.FormatFileSize(512))
	assert.Equal(t, "1.0 MiB", svc.FormatFileSize(1<<20))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, newService(archive.CompressionGzip).EnsureDir(dir))
	assert.DirExists(t, dir)
}

func TestPrepareSymlinkedDirectory(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "library", "2024")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "a.txt"), []byte("a"), 0o644))
	link := filepath.Join(root, "photos")
	require.NoError(t, os.Symlink(target, link))

	p, err := newService(archive.CompressionGzip).Prepare([]string{link})
	require.NoError(t, err)
	defer p.Cleanup()

	assert.Equal(t, types.KindFolder, p.Artifact.Kind)
	assert.Equal(t, "photos.tar.gz", p.Artifact.Name)
	require.NotEmpty(t, p.Artifact.Entries)

	var paths []string
	for _, e := range p.Artifact.Entries {
		paths = append(paths, e.Path)
	}
	assert.ElementsMatch(t, []string{"photos", "photos/a.txt"}, paths)

	dest := t.TempDir()
	require.NoError(t, archive.NewExtractor(logging.Nop()).Unpack(p.Artifact.Path, dest))
	got, err := os.ReadFile(filepath.Join(dest, "photos", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
}
