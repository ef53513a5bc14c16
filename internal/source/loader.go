package source

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/remote"
)

// maxSourceSize caps a local source document (10 MB)
const maxSourceSize = 10 * 1024 * 1024

// Reader returns the raw bytes behind a location
type Reader interface {
	Read(ctx context.Context, location string) ([]byte, error)
}

// Loader loads a location as a key/value lookup
type Loader interface {
	Load(ctx context.Context, location string) (Lookup, error)
}

// FileLoader reads local files first and falls back to treating the location as a URL
type FileLoader struct {
	remote *remote.Registry
}

// NewFileLoader creates a loader that fetches non-local locations through registry
func NewFileLoader(registry *remote.Registry) *FileLoader {
	if registry == nil {
		registry = remote.NewDefaultRegistry(remote.Options{})
	}
	return &FileLoader{remote: registry}
}

// Read returns the content at location.
// An existing local path takes precedence over URL interpretation.
func (l *FileLoader) Read(ctx context.Context, location string) ([]byte, error) {
	if archivePath, member, ok := SplitArchiveLocation(location); ok && fileExists(archivePath) {
		return readArchiveMember(ctx, archivePath, member)
	}

	if fileExists(location) {
		return readLocalFile(location)
	}

	if !remote.IsRemoteLocation(location) {
		return nil, fmt.Errorf("source %q does not exist and is not a URL", location)
	}
	return l.remote.Fetch(ctx, location)
}

// Load reads location and parses it as a properties file
func (l *FileLoader) Load(ctx context.Context, location string) (Lookup, error) {
	data, err := l.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	return ParseProperties(data)
}

func readLocalFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, maxSourceSize))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
