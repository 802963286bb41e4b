// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads API credentials from a directory of plain-text
// key files, one secret per file: the filename names the secret and the
// first non-blank line of the file is its value.
//
// survey-engine looks for anthropic-api-key and openalex-email under
// .secrets/. Files ending in .example are ignored, so a checked-in
// template cannot shadow a real key.
package secrets

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads every key file in dir. A missing directory is not an
// error: running without a .secrets/ directory just yields no secrets.
// Files that cannot be read are reported on stderr and skipped, so one
// bad permission bit does not take down the run.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || skipName(name) {
			continue
		}
		v, err := readValue(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping secret %s: %v\n", name, err)
			continue
		}
		if v != "" {
			out[name] = v
		}
	}
	return out, nil
}

// skipName filters dotfiles and committed templates out of the key set.
func skipName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".example")
}

// readValue returns the first non-blank line of the file, trimmed. Key
// files conventionally end with a newline; anything after the value
// line is ignored.
func readValue(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if v := strings.TrimSpace(string(line)); v != "" {
			return v, nil
		}
	}
	return "", nil
}
