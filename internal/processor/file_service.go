// Package processor turns the paths given on the command line into the
// single artifact a session sends.
package processor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"vimsicles/internal/archive"
	"vimsicles/internal/session"
	"vimsicles/pkg/types"
)

// SharedArchiveBase names the archive built when several paths are sent
const SharedArchiveBase = "shared_files"

var ErrNoPaths = errors.New("no paths to send")

// Prepared is an artifact ready to hand to a sender
type Prepared struct {
	Artifact session.Artifact
	Size     int64
	tempDir  string
}

// Cleanup removes any archive built for the artifact
func (p *Prepared) Cleanup() error {
	if p.tempDir == "" {
		return nil
	}
	if err := os.RemoveAll(p.tempDir); err != nil {
		return fmt.Errorf("failed to remove temporary archive: %w", err)
	}
	return nil
}

// FileService handles local file operations for both roles
type FileService struct {
	builder *archive.Builder
	logger  *zap.SugaredLogger
}

// NewFileService creates a new file service
func NewFileService(builder *archive.Builder, logger *zap.SugaredLogger) *FileService {
	return &FileService{builder: builder, logger: logger}
}

// Prepare builds the artifact for paths. A single regular file is sent as
// is. A directory, or more than one path, is packed into an archive in a
// temporary directory that Cleanup removes.
func (f *FileService) Prepare(paths []string) (*Prepared, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		if _, err := f.GetFileInfo(a); err != nil {
			return nil, err
		}
		abs = append(abs, a)
	}

	if len(abs) == 1 {
		info, _ := os.Stat(abs[0])
		if info.Mode().IsRegular() {
			f.logger.Infow("Prepared file", "name", info.Name(), "size", f.FormatFileSize(info.Size()))
			return &Prepared{
				Artifact: session.Artifact{Kind: types.KindFile, Name: info.Name(), Path: abs[0]},
				Size:     info.Size(),
			}, nil
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is neither a regular file nor a directory", abs[0])
		}
	}

	return f.pack(abs)
}

func (f *FileService) pack(paths []string) (*Prepared, error) {
	base := SharedArchiveBase
	if len(paths) == 1 {
		base = filepath.Base(paths[0])
	}
	name := base + f.builder.Extension()

	tempDir, err := os.MkdirTemp("", "vimsicles-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	archivePath := filepath.Join(tempDir, name)

	entries, err := f.builder.Build(paths, archivePath)
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, err
	}
	info, err := f.GetFileInfo(archivePath)
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, err
	}

	f.logger.Infow("Prepared archive", "name", name, "entries", len(entries), "size", f.FormatFileSize(info.Size()))
	return &Prepared{
		Artifact: session.Artifact{
			Kind:    types.KindFolder,
			Name:    name,
			Path:    archivePath,
			Entries: entries,
		},
		Size:    info.Size(),
		tempDir: tempDir,
	}, nil
}

// GetFileInfo returns information about a file by path
func (f *FileService) GetFileInfo(filePath string) (os.FileInfo, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	return stat, nil
}

// EnsureDir creates directory if it doesn't exist
func (f *FileService) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// FormatFileSize formats file size in human readable format
func (f *FileService) FormatFileSize(size int64) string {
	return humanize.IBytes(uint64(size))
}
