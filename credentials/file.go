package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

type document struct {
	Token string            `json:"token,omitempty"`
	Role  string            `json:"role,omitempty"`
	Paths map[string]string `json:"lastVisited,omitempty"`
}

// File is a credential store persisted as a single JSON document. The
// document is loaded once by OpenFile and every mutation is written through
// before the call returns, so a later process observes it.
type File struct {
	path string

	mu  sync.RWMutex
	doc document
}

// OpenFile loads the document at path. A missing file is an empty record.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("credentials file path empty")
	}
	f := &File{
		path: path,
		doc:  document{Paths: make(map[string]string)},
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if f.doc.Paths == nil {
		f.doc.Paths = make(map[string]string)
	}
	return f, nil
}

// Path returns the location of the backing document.
func (f *File) Path() string {
	return f.path
}

// Token returns the token loaded or last written; it never touches the disk.
func (f *File) Token(context.Context) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.doc.Token, nil
}

// SetToken writes the whole document to a temp file and renames it over
// the old one. On failure the previous token stays visible.
func (f *File) SetToken(_ context.Context, token string) error {
	return f.mutate(func(d *document) { d.Token = token })
}

// ClearToken blanks the token and rewrites the document.
func (f *File) ClearToken(context.Context) error {
	return f.mutate(func(d *document) { d.Token = "" })
}

// LastRole returns the cached last role.
func (f *File) LastRole(context.Context) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.doc.Role, nil
}

// SetLastRole records role and rewrites the document.
func (f *File) SetLastRole(_ context.Context, role string) error {
	return f.mutate(func(d *document) { d.Role = role })
}

// LastVisitedPath returns the cached remembered path for role.
func (f *File) LastVisitedPath(_ context.Context, role string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.doc.Paths[role], nil
}

// SetLastVisitedPath remembers path for role and rewrites the document.
func (f *File) SetLastVisitedPath(_ context.Context, role, path string) error {
	return f.mutate(func(d *document) { d.Paths[role] = path })
}

// ClearAllLastVisitedPaths empties the path map and rewrites the document.
func (f *File) ClearAllLastVisitedPaths(context.Context) error {
	return f.mutate(func(d *document) { clear(d.Paths) })
}

// Clear rewrites the document as an empty record. The file itself is kept.
func (f *File) Clear(context.Context) error {
	return f.mutate(func(d *document) {
		d.Token = ""
		d.Role = ""
		clear(d.Paths)
	})
}

// mutate applies fn to a copy of the document, persists the copy and only
// then publishes it, so a failed write leaves the in-memory record unchanged.
func (f *File) mutate(fn func(*document)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := document{
		Token: f.doc.Token,
		Role:  f.doc.Role,
		Paths: make(map[string]string, len(f.doc.Paths)),
	}
	for k, v := range f.doc.Paths {
		next.Paths[k] = v
	}
	fn(&next)

	if err := f.write(next); err != nil {
		return err
	}
	f.doc = next
	return nil
}

func (f *File) write(doc document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
