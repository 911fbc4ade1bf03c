package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dskarbrevik/devhand/pkg/consts"
	"github.com/pkg/errors"
)

// EnvFile is an ordered KEY=VALUE document. Parsing keeps keys in file order
// so rewrites don't shuffle values other tools or humans added.
type EnvFile struct {
	keys   []string
	values map[string]string
}

// NewEnvFile returns an empty env file.
func NewEnvFile() *EnvFile {
	return &EnvFile{values: make(map[string]string)}
}

// ParseEnv reads KEY=VALUE lines from r. Blank lines and #-comments are
// skipped; single and double quotes around values are stripped.
func ParseEnv(r io.Reader) (*EnvFile, error) {
	f := NewEnvFile()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		f.Set(strings.TrimSpace(key), value)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read env file")
	}

	return f, nil
}

// LoadEnvFile parses the .env file at path. A missing file yields an empty
// EnvFile rather than an error; writing it later creates the file.
func LoadEnvFile(path string) (*EnvFile, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewEnvFile(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open: %s", path)
	}
	defer func() { _ = f.Close() }()

	return ParseEnv(f)
}

// Get returns the value for key, or "" when absent.
func (f *EnvFile) Get(key string) string {
	return f.values[key]
}

// Set stores a value, preserving the position of existing keys and appending
// new ones.
func (f *EnvFile) Set(key, value string) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Keys returns the keys in file order.
func (f *EnvFile) Keys() []string {
	keys := make([]string, len(f.keys))
	copy(keys, f.keys)
	return keys
}

// WriteTo serializes the file as KEY=VALUE lines in key order.
func (f *EnvFile) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	for _, key := range f.keys {
		fmt.Fprintf(&buf, "%s=%s\n", key, f.values[key])
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// WriteFile writes the document to path with credential-safe permissions.
func (f *EnvFile) WriteFile(path string) error {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), consts.ModeEnvFile); err != nil {
		return errors.Wrapf(err, "failed to write: %s", path)
	}

	return nil
}
