package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"vimsicles/pkg/types"
)

var ErrUnsafePath = errors.New("archive entry escapes destination")

// Builder packs files and directories into a single tar archive
type Builder struct {
	compression Compression
	logger      *zap.SugaredLogger
}

// NewBuilder creates a builder producing archives with compression c
func NewBuilder(c Compression, logger *zap.SugaredLogger) *Builder {
	return &Builder{compression: c, logger: logger}
}

// Extension returns the suffix of archives this builder produces
func (b *Builder) Extension() string {
	return b.compression.Extension()
}

// Build writes an archive of paths to dstPath and returns its listing.
// Each path appears in the archive under its base name. Links and special
// files are skipped.
func (b *Builder) Build(paths []string, dstPath string) (entries []types.Entry, err error) {
	file, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if err != nil {
			file.Close()
			os.Remove(dstPath)
		}
	}()

	cw, err := newCompressor(file, b.compression)
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(cw)

	for _, arg := range paths {
		arg = filepath.Clean(arg)
		// A symlinked root is archived as its target under the link's name.
		root, err := filepath.EvalSymlinks(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", arg, err)
		}
		prefix := filepath.Base(arg)
		walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			entry, err := b.add(tw, path.Join(prefix, filepath.ToSlash(rel)), p, d)
			if err != nil {
				return err
			}
			if entry != nil {
				entries = append(entries, *entry)
			}
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("failed to archive %s: %w", arg, walkErr)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := cw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish %s stream: %w", b.compression, err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	b.logger.Debugw("Archive built", "path", dstPath, "entries", len(entries), "compression", string(b.compression))
	return entries, nil
}

func (b *Builder) add(tw *tar.Writer, name, p string, d fs.DirEntry) (*types.Entry, error) {
	info, err := d.Info()
	if err != nil {
		return nil, err
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		b.logger.Warnw("Skipping non-regular file", "path", p, "mode", info.Mode().String())
		return nil, nil
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return nil, err
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, err
	}

	if info.Mode().IsRegular() {
		src, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		_, err = io.Copy(tw, src)
		src.Close()
		if err != nil {
			return nil, err
		}
	}

	return &types.Entry{
		Path:         name,
		Name:         path.Base(name),
		IsDirectory:  info.IsDir(),
		Size:         hdr.Size,
		LastModified: info.ModTime().UTC(),
	}, nil
}

// Extractor unpacks received archives into a destination directory
type Extractor struct {
	logger *zap.SugaredLogger
}

// NewExtractor creates an extractor
func NewExtractor(logger *zap.SugaredLogger) *Extractor {
	return &Extractor{logger: logger}
}

// Unpack extracts the archive at archivePath into destDir. The compression
// is inferred from the archive's file name. Existing files are overwritten.
func (e *Extractor) Unpack(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	self, err := filepath.Abs(archivePath)
	if err != nil {
		return fmt.Errorf("failed to resolve archive path: %w", err)
	}

	compression := CompressionForName(archivePath)
	dr, err := newDecompressor(file, compression)
	if err != nil {
		return err
	}
	defer dr.Close()

	count := 0
	tr := tar.NewReader(dr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		if abs, _ := filepath.Abs(target); abs == self {
			e.logger.Warnw("Skipping archive entry that overwrites the archive", "name", hdr.Name)
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()|0o700); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, hdr); err != nil {
				return err
			}
			count++
		default:
			e.logger.Warnw("Skipping unsupported archive entry", "name", hdr.Name, "type", string(hdr.Typeflag))
		}
	}

	e.logger.Infow("Archive extracted", "dest", destDir, "files", count, "compression", string(compression))
	return nil
}

func writeEntry(r io.Reader, target string, hdr *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	perm := hdr.FileInfo().Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", hdr.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", hdr.Name, err)
	}

	if !hdr.ModTime.IsZero() {
		os.Chtimes(target, hdr.ModTime, hdr.ModTime)
	}
	return nil
}

// safeJoin resolves an archive member name under destDir
func safeJoin(destDir, name string) (string, error) {
	if hasParentRef(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	clean := path.Clean("/" + strings.ReplaceAll(name, `\`, "/"))
	target := filepath.Join(destDir, filepath.FromSlash(strings.TrimPrefix(clean, "/")))

	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return target, nil
}

func hasParentRef(name string) bool {
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}
