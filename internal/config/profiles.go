package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// profilesFile is the shape of an optional TOML phase-profile overlay. Where
// the pipeline's own config file is deliberately flat KEY=VALUE (so it reads
// like shell configuration operators already know), per-phase overrides are
// naturally nested structured data -- the overlay keeps that nesting in
// TOML, one [phases.<name>] table per phase.
type profilesFile struct {
	Phases map[string]PhaseProfile `toml:"phases"`
}

// LoadProfiles reads a TOML phase-profile overlay from path. A missing file
// is not an error -- it returns an empty (non-nil) map, matching the config
// loader's "absent means default" contract.
func LoadProfiles(path string) (map[string]PhaseProfile, error) {
	if path == "" {
		return map[string]PhaseProfile{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return map[string]PhaseProfile{}, nil
		}
		return nil, fmt.Errorf("loading phase profiles %q: %w", path, err)
	}

	var pf profilesFile
	if _, err := toml.DecodeFile(path, &pf); err != nil {
		return nil, fmt.Errorf("decoding phase profiles %q: %w", path, err)
	}

	for name, p := range pf.Phases {
		if p.TimeoutS > 0 {
			p.Timeout = time.Duration(p.TimeoutS) * time.Second
			pf.Phases[name] = p
		}
	}
	if pf.Phases == nil {
		pf.Phases = map[string]PhaseProfile{}
	}
	return pf.Phases, nil
}
