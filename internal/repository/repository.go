// Package repository lists version-control directories as choice candidates
package repository

import (
	"context"
	"sort"
	"strings"
)

// TrunkPath is the source name that stands for the literal "trunk" label
const TrunkPath = "trunk"

// Entry is one directory entry with the revision it last changed in
type Entry struct {
	Name     string
	Revision int64
}

// Credentials locate and authenticate against a repository
type Credentials struct {
	URL      string
	Username string
	Password string
}

// Connector opens sessions against a repository
type Connector interface {
	Connect(ctx context.Context, creds Credentials) (Session, error)
}

// Session lists directories of a connected repository
type Session interface {
	ListDirectory(ctx context.Context, path string) ([]Entry, error)
	Close() error
}

// NewestFirst orders entries by descending revision.
// Entries sharing a revision keep their listing order relative to each other
// after the ascending sort, then the whole slice is reversed.
func NewestFirst(entries []Entry) []string {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Revision < sorted[j].Revision
	})

	names := make([]string, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		names = append(names, sorted[i].Name)
	}
	return names
}

// Join renders names as the comma list consumed by the value resolver
func Join(names []string) string {
	return strings.Join(names, ",")
}
