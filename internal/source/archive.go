package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/mholt/archives"
)

// ArchiveSeparator splits "bundle.tar.gz!/member/path" into archive and member
const ArchiveSeparator = "!/"

// SplitArchiveLocation returns the archive path and member name of an archive location
func SplitArchiveLocation(location string) (archivePath, member string, ok bool) {
	idx := strings.Index(location, ArchiveSeparator)
	if idx <= 0 {
		return "", "", false
	}
	return location[:idx], location[idx+len(ArchiveSeparator):], true
}

// readArchiveMember returns the content of member inside the archive at archivePath.
// A bare compressed file (no archive) is decompressed when member is empty.
func readArchiveMember(ctx context.Context, archivePath, member string) ([]byte, error) {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = archiveFile.Close() }()

	format, archiveReader, err := archives.Identify(ctx, archivePath, archiveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to identify archive format: %w", err)
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		decompressor, ok := format.(archives.Decompressor)
		if !ok || member != "" {
			return nil, fmt.Errorf("format does not support member extraction: %s", archivePath)
		}
		rc, err := decompressor.OpenReader(archiveReader)
		if err != nil {
			return nil, fmt.Errorf("failed to open decompressor: %w", err)
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(io.LimitReader(rc, maxSourceSize))
	}

	want := path.Clean(strings.TrimPrefix(member, "/"))
	var content []byte
	found := false

	handler := func(ctx context.Context, f archives.FileInfo) error {
		if found || f.IsDir() || path.Clean(f.NameInArchive) != want {
			return nil
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in archive: %w", f.NameInArchive, err)
		}
		defer func() { _ = rc.Close() }()

		content, err = io.ReadAll(io.LimitReader(rc, maxSourceSize))
		if err != nil {
			return fmt.Errorf("failed to read %s in archive: %w", f.NameInArchive, err)
		}
		found = true
		return nil
	}

	if err := extractor.Extract(ctx, archiveReader, handler); err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("member %q not found in %s", member, archivePath)
	}
	return content, nil
}
