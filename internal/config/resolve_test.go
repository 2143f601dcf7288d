package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(vars map[string]string) EnvFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestResolve_DefaultsOnly(t *testing.T) {
	t.Parallel()

	cfg, err := Resolve("", fakeEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, "50", cfg.String("MAX_PIPELINE_COST", ""))
}

func TestResolve_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pipeline.conf")
	require.NoError(t, os.WriteFile(path, []byte("MAX_PIPELINE_COST=10\n"), 0o644))

	cfg, err := Resolve(path, fakeEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, "10", cfg.String("MAX_PIPELINE_COST", ""))
}

func TestResolve_EnvOverridesFileForKnownKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pipeline.conf")
	require.NoError(t, os.WriteFile(path, []byte("MAX_PIPELINE_COST=10\n"), 0o644))

	cfg, err := Resolve(path, fakeEnv(map[string]string{"MAX_PIPELINE_COST": "99"}))
	require.NoError(t, err)
	assert.Equal(t, "99", cfg.String("MAX_PIPELINE_COST", ""))
}

func TestResolve_EnvIgnoredForUnknownKeys(t *testing.T) {
	t.Parallel()

	cfg, err := Resolve("", fakeEnv(map[string]string{"SOME_RANDOM_VAR": "danger"}))
	require.NoError(t, err)
	assert.Equal(t, "", cfg.String("SOME_RANDOM_VAR", ""))
}

func TestResolve_EnvOverridesPerPhaseModelPrefix(t *testing.T) {
	t.Parallel()

	cfg, err := Resolve("", fakeEnv(map[string]string{"MODEL_IMPLEMENT": "custom-model"}))
	require.NoError(t, err)
	assert.Equal(t, "custom-model", cfg.String("MODEL_IMPLEMENT", ""))
}

func TestResolve_EnvIgnoresEmptyOverride(t *testing.T) {
	t.Parallel()

	cfg, err := Resolve("", fakeEnv(map[string]string{"MAX_PIPELINE_COST": ""}))
	require.NoError(t, err)
	assert.Equal(t, "50", cfg.String("MAX_PIPELINE_COST", ""))
}

func TestResolve_LoadsPhaseProfilesWhenConfigured(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	profilesPath := filepath.Join(dir, "profiles.toml")
	require.NoError(t, os.WriteFile(profilesPath, []byte(`
[phases.implement]
model = "custom-model"
max_turns = 20
`), 0o644))
	confPath := filepath.Join(dir, "pipeline.conf")
	require.NoError(t, os.WriteFile(confPath, []byte("PHASE_PROFILES_FILE="+profilesPath+"\n"), 0o644))

	cfg, err := Resolve(confPath, fakeEnv(nil))
	require.NoError(t, err)
	require.Contains(t, cfg.Profiles, "implement")
	assert.Equal(t, "custom-model", cfg.Profiles["implement"].Model)
	assert.Equal(t, 20, cfg.Profiles["implement"].MaxTurns)
}

func TestIsKnownEnvKey(t *testing.T) {
	t.Parallel()

	assert.True(t, isKnownEnvKey("MAX_PIPELINE_COST"))
	assert.True(t, isKnownEnvKey("MODEL_IMPLEMENT"))
	assert.True(t, isKnownEnvKey("TIMEOUT_VERIFY"))
	assert.False(t, isKnownEnvKey("PATH"))
	assert.False(t, isKnownEnvKey("HOME"))
}
