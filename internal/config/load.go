package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxConfigFileSize bounds the size of a config file we will parse. Pipeline
// config files are always small; this guards against an accidentally huge
// read (e.g. a misconfigured path pointing at a log file).
const maxConfigFileSize = 256 * 1024 // 256 KiB

// Load reads and parses a shell-style KEY=VALUE configuration file at path.
// A missing file is not an error: Load returns an empty Config so that every
// accessor falls back to its default, matching the Config Loader's "never
// raise" contract.
func Load(path string) (*Config, error) {
	if path == "" {
		return New(nil), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("loading config file %q: %w", path, err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("loading config file %q: file exceeds %d byte limit", path, maxConfigFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading config file %q: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	values, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return New(values), nil
}

// Parse reads KEY=VALUE assignments from r, applying the rules of the
// config loader:
//
//   - Blank lines and lines whose first non-space character is '#' are
//     discarded.
//   - A line qualifies as an assignment only if it contains '=' and does not
//     begin with "for " or "if " (guards against accidentally parsing a
//     fragment of shell control flow as a config key).
//   - The key must be a valid identifier: letters, digits, underscore, and
//     must not start with a digit. Lines that don't produce a valid
//     identifier are silently skipped, not an error.
//   - The value is everything after the first '=', trimmed of surrounding
//     whitespace, then stripped of one layer of surrounding single or double
//     quotes if present.
func Parse(r io.Reader) (map[string]string, error) {
	values := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "for ") || strings.HasPrefix(trimmed, "if ") {
			continue
		}
		idx := strings.Index(trimmed, "=")
		if idx < 0 {
			continue
		}

		key := strings.TrimSpace(trimmed[:idx])
		if !isValidIdentifier(key) {
			continue
		}

		value := strings.TrimSpace(trimmed[idx+1:])
		value = unquote(value)

		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning config: %w", err)
	}
	return values, nil
}

// isValidIdentifier reports whether s is a valid config key: letters,
// digits, and underscores, with a non-digit first character.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// unquote strips exactly one layer of matching surrounding quotes (single or
// double) from s, if present. A lone quote character or mismatched quotes
// are left untouched.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
