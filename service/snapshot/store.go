package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/oomadj/service/dao"
)

const extension = ".dump"

// Store keeps named dumps under a base URL.
type Store struct {
	fs      afs.Service
	baseURL string
}

// New creates a store rooted at baseURL, for example file:///tmp/dumps or
// mem://localhost/dumps.
func New(fs afs.Service, baseURL string) *Store {
	if fs == nil {
		fs = afs.New()
	}
	return &Store{fs: fs, baseURL: strings.TrimRight(baseURL, "/")}
}

// URL returns the location of the named dump.
func (s *Store) URL(name string) string {
	return url.Join(s.baseURL, name+extension)
}

// Save writes the dump and returns its URL.
func (s *Store) Save(ctx context.Context, name string, dump []byte) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty dump name", dao.ErrInvalidID)
	}
	URL := s.URL(name)
	if err := s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(dump)); err != nil {
		return "", fmt.Errorf("failed to save dump %s: %w", URL, err)
	}
	return URL, nil
}

// Load reads the named dump.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	URL := s.URL(name)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check dump %s: %w", URL, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: dump %s", dao.ErrNotFound, name)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump %s: %w", URL, err)
	}
	return data, nil
}

// Delete removes the named dump.
func (s *Store) Delete(ctx context.Context, name string) error {
	URL := s.URL(name)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check dump %s: %w", URL, err)
	}
	if !exists {
		return fmt.Errorf("%w: dump %s", dao.ErrNotFound, name)
	}
	return s.fs.Delete(ctx, URL)
}

// List returns the sorted names of stored dumps.
func (s *Store) List(ctx context.Context) ([]string, error) {
	exists, err := s.fs.Exists(ctx, s.baseURL)
	if err != nil || !exists {
		return nil, err
	}
	objects, err := s.fs.List(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list dumps: %w", err)
	}
	var names []string
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(object.Name(), extension))
	}
	sort.Strings(names)
	return names, nil
}

// Diff compares two stored dumps.
func (s *Store) Diff(ctx context.Context, before, after string) (*Diff, error) {
	beforeData, err := s.Load(ctx, before)
	if err != nil {
		return nil, err
	}
	afterData, err := s.Load(ctx, after)
	if err != nil {
		return nil, err
	}
	return Compare(beforeData, afterData, after, 3)
}
