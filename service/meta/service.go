// Package meta loads configuration resources from any afs URL.
package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Service downloads resources, expands ${env.KEY} references and decodes
// them as JSON or YAML depending on the URL extension.
type Service struct {
	fs afs.Service
}

// Download returns the expanded content of URL.
func (s *Service) Download(ctx context.Context, URL string) ([]byte, error) {
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download %v: %w", URL, err)
	}
	return []byte(Expand(string(data))), nil
}

// Load decodes URL into target. Anything but a .json resource is YAML; a
// *yaml.Node target keeps the document structure.
func (s *Service) Load(ctx context.Context, URL string, target interface{}) error {
	data, err := s.Download(ctx, URL)
	if err != nil {
		return err
	}
	if strings.EqualFold(path.Ext(URL), ".json") {
		err = json.Unmarshal(data, target)
	} else {
		err = yaml.Unmarshal(data, target)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %v: %w", URL, err)
	}
	return nil
}

// New creates a service; a nil fs uses afs.New.
func New(fs afs.Service) *Service {
	if fs == nil {
		fs = afs.New()
	}
	return &Service{fs: fs}
}
