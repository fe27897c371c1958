package extension

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sync"
)

// DescriptorDir is the directory, relative to each source root, holding one
// descriptor file per extension point named after the point identifier.
const DescriptorDir = "extensions"

// DescriptorPath returns the resource path of p's descriptor.
func DescriptorPath(p *Point) string {
	return path.Join(DescriptorDir, p.ID())
}

// Resource is one descriptor found by a Source.
type Resource struct {
	Location string
	Open     func() (io.ReadCloser, error)
}

// Source enumerates the descriptor resources for a resource path. A
// returned error fails the whole load of the point; a Resource whose Open
// fails is only skipped.
type Source interface {
	Resources(name string) ([]Resource, error)
}

type namedFS struct {
	name string
	fsys fs.FS
}

// FSSource looks descriptors up in an ordered list of file systems. Packages
// typically contribute an embed.FS holding their extensions/ directory.
type FSSource struct {
	mu      sync.RWMutex
	entries []namedFS
}

// NewFSSource returns an empty FSSource.
func NewFSSource() *FSSource {
	return &FSSource{}
}

// DirSource returns a source reading from a directory on disk.
func DirSource(dir string) *FSSource {
	return NewFSSource().Add(dir, os.DirFS(dir))
}

// Add appends a file system. Later file systems are searched after earlier
// ones, which determines the order descriptor lines are applied in.
func (s *FSSource) Add(name string, fsys fs.FS) *FSSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, namedFS{name: name, fsys: fsys})
	return s
}

// Len returns the number of file systems.
func (s *FSSource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *FSSource) Resources(name string) ([]Resource, error) {
	s.mu.RLock()
	entries := make([]namedFS, len(s.entries))
	copy(entries, s.entries)
	s.mu.RUnlock()

	var resources []Resource
	for _, e := range entries {
		info, err := fs.Stat(e.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s in %s: %w", name, e.name, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("descriptor %s in %s is a directory", name, e.name)
		}

		fsys := e.fsys
		resources = append(resources, Resource{
			Location: e.name + ":" + name,
			Open: func() (io.ReadCloser, error) {
				return fsys.Open(name)
			},
		})
	}
	return resources, nil
}

// SourceFunc adapts a function to Source.
type SourceFunc func(name string) ([]Resource, error)

func (f SourceFunc) Resources(name string) ([]Resource, error) {
	return f(name)
}

var embedded = NewFSSource()

// AddSource registers a file system with the process wide source consulted
// by the standard manager. Call it from init alongside RegisterClass.
func AddSource(name string, fsys fs.FS) {
	embedded.Add(name, fsys)
}
