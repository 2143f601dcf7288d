package config

import (
	"strconv"
	"strings"
	"time"
)

// Int returns key parsed as an integer, or def if the key is absent or does
// not parse. Accessors never return an error; a malformed value falls back
// to the default exactly like a missing one.
func (c *Config) Int(key string, def int) int {
	raw := c.String(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

// Float returns key parsed as a float64, or def if absent/unparseable.
func (c *Config) Float(key string, def float64) float64 {
	raw := c.String(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return def
	}
	return f
}

// Bool returns key parsed as a boolean, case insensitive: "1", "true", "yes"
// and "on" are true; "0", "false", "no" and "off" are false; absence or any
// other value yields def.
func (c *Config) Bool(key string, def bool) bool {
	raw := strings.ToLower(strings.TrimSpace(c.String(key, "")))
	if raw == "" {
		return def
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// List returns key split on commas, trimming whitespace around each element
// and dropping empty elements. Returns an empty (non-nil) slice if the key
// is absent, never def-substituted since an empty list is itself meaningful.
func (c *Config) List(key string) []string {
	raw := c.String(key, "")
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Percent returns key interpreted as an integer percentage and converts it to
// a fraction in [0,1]. def is itself a fraction (e.g. 0.90), not a percent.
func (c *Config) Percent(key string, def float64) float64 {
	raw := c.String(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return float64(n) / 100.0
}

// Duration returns key parsed as a count of seconds, or def if absent or
// unparseable.
func (c *Config) Duration(key string, def time.Duration) time.Duration {
	raw := c.String(key, "")
	if raw == "" {
		return def
	}
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return time.Duration(secs) * time.Second
}
