package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// WorkspaceFile is the optional devhand.yaml at the workspace root. It
// overrides repo auto-detection for layouts dh doesn't recognize.
type WorkspaceFile struct {
	// Frontend is the frontend repo directory, relative to the workspace root.
	Frontend string `yaml:"frontend,omitempty"`

	// Backend is the backend repo directory, relative to the workspace root.
	Backend string `yaml:"backend,omitempty"`

	// Migrations is the migrations directory, relative to the workspace root.
	Migrations string `yaml:"migrations,omitempty"`
}

// LoadWorkspaceFile parses a devhand.yaml document from r.
func LoadWorkspaceFile(r io.Reader) (*WorkspaceFile, error) {
	var wf WorkspaceFile
	if err := yaml.NewDecoder(r).Decode(&wf); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal workspace config")
	}

	return &wf, nil
}

// LoadWorkspaceFilePath loads devhand.yaml from path. A missing file returns
// nil without error; the file is optional.
func LoadWorkspaceFilePath(path string) (*WorkspaceFile, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadWorkspaceFile(f)
}
