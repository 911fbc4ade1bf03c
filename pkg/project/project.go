// Package project detects the two-repo workspace layout dh operates on: a
// Next.js frontend and a Python backend living side by side under one root.
package project

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Workspace describes the repos found under a workspace root.
type Workspace struct {
	// Root is the directory detection started from.
	Root string

	// Frontend is the frontend repo path, or "" when none was found.
	Frontend string

	// Backend is the backend repo path, or "" when none was found.
	Backend string

	// MigrationsPath overrides the default migrations directory when set
	// (via devhand.yaml or a flag).
	MigrationsPath string
}

var frontendConfigs = []string{"next.config.ts", "next.config.js", "next.config.mjs"}

// Detect inspects root and its immediate children for frontend and backend
// repos. A frontend repo carries package.json plus a next.config file; a
// backend repo carries pyproject.toml plus main.py. The first match in
// lexical order wins.
func Detect(root string) (*Workspace, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read workspace root: %s", root)
	}

	candidates := []string{root}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		if name == "node_modules" || name[0] == '.' {
			continue
		}

		candidates = append(candidates, filepath.Join(root, name))
	}

	ws := &Workspace{Root: root}
	for _, dir := range candidates {
		if ws.Frontend == "" && isFrontend(dir) {
			ws.Frontend = dir
		}
		if ws.Backend == "" && isBackend(dir) {
			ws.Backend = dir
		}
	}

	return ws, nil
}

// HasFrontend reports whether a frontend repo was detected.
func (w *Workspace) HasFrontend() bool {
	return w.Frontend != ""
}

// HasBackend reports whether a backend repo was detected.
func (w *Workspace) HasBackend() bool {
	return w.Backend != ""
}

// MigrationsDir returns the migrations directory: the configured override
// when present, otherwise <frontend>/supabase/migrations. Returns "" when
// neither is available.
func (w *Workspace) MigrationsDir() string {
	if w.MigrationsPath != "" {
		return w.MigrationsPath
	}

	if !w.HasFrontend() {
		return ""
	}

	return filepath.Join(w.Frontend, "supabase", "migrations")
}

func isFrontend(dir string) bool {
	if !fileExists(filepath.Join(dir, "package.json")) {
		return false
	}

	for _, name := range frontendConfigs {
		if fileExists(filepath.Join(dir, name)) {
			return true
		}
	}

	return false
}

func isBackend(dir string) bool {
	return fileExists(filepath.Join(dir, "pyproject.toml")) &&
		fileExists(filepath.Join(dir, "main.py"))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
