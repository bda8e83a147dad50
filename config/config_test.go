package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  provider: anthropic
  model: claude-test
  temperature: 0.2
server_addr: ":9000"
rate_limit: {rps: 5, burst: 3}
industries: [saas, gaming]
`)
	cfg, err := load(path, envMap(map[string]string{
		"ANTHROPIC_API_KEY":  "sk-ant",
		"AGENTS_SERVER_ADDR": ":7000",
		"ALCHEMYST_API_KEY":  "alc",
	}))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, "sk-ant", cfg.LLM.APIKey)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, ":7000", cfg.ServerAddr)
	assert.Equal(t, "alc", cfg.Alchemyst.APIKey)
	assert.Equal(t, RateLimit{RPS: 5, Burst: 3}, cfg.RateLimit)
	assert.Equal(t, []string{"saas", "gaming"}, cfg.Industries)
	assert.Equal(t, DefaultDocsDB, cfg.DocsDB)
}

func TestEnvKeysOverrideFileKeys(t *testing.T) {
	path := writeFile(t, "c.yaml", "llm: {provider: openai, api_key: from-file}\nalchemyst: {api_key: alc-file}")

	cfg, err := load(path, envMap(map[string]string{"OPENAI_API_KEY": "from-env", "ALCHEMYST_AI_API_KEY": "alc-env"}))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "alc-env", cfg.Alchemyst.APIKey)

	cfg, err = load(path, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.Equal(t, "alc-file", cfg.Alchemyst.APIKey)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := load("", envMap(map[string]string{"GOOGLE_API_KEY": "g"}))
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, RateLimit{RPS: DefaultRPS, Burst: DefaultBurst}, cfg.RateLimit)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
	require.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "llm: [unclosed")
	_, err := load(path, envMap(nil))
	require.ErrorContains(t, err, "parsing config")
}

func TestRequireLLMKey(t *testing.T) {
	cfg, err := load(writeFile(t, "c.yaml", "llm: {provider: openai}"), envMap(nil))
	require.NoError(t, err)

	err = cfg.RequireLLMKey()
	require.ErrorIs(t, err, ErrMissingKey)
	var mk *MissingKeyError
	require.True(t, errors.As(err, &mk))
	assert.Equal(t, []string{"OPENAI_API_KEY"}, mk.Vars)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg.LLM.Provider = "mock"
	assert.NoError(t, cfg.RequireLLMKey())

	require.ErrorIs(t, cfg.RequireAlchemystKey(), ErrMissingKey)
}

func TestAlchemystProviderUsesAlchemystSettings(t *testing.T) {
	cfg, err := load(writeFile(t, "c.yaml", "llm: {provider: alchemyst}\nalchemyst: {base_url: 'http://localhost:1'}"),
		envMap(map[string]string{"ALCHEMYST_AI_API_KEY": "k"}))
	require.NoError(t, err)
	assert.Equal(t, "k", cfg.LLM.APIKey)
	assert.Equal(t, "http://localhost:1", cfg.LLM.BaseURL)
	assert.NoError(t, cfg.RequireLLMKey())
}

func TestApplyOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	cfg, err := load(writeFile(t, "c.yaml", "llm: {provider: openai, api_key: sk-open, model: gpt-x}"), envMap(nil))
	require.NoError(t, err)

	cfg.Apply(Overrides{Provider: "Anthropic", OutputDir: "dist"})
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-ant", cfg.LLM.APIKey)
	assert.Equal(t, "claude-sonnet-4-5", cfg.LLM.Model)
	assert.Equal(t, "dist", cfg.OutputDir)

	cfg.Apply(Overrides{Model: "claude-custom", ServerAddr: ":1"})
	assert.Equal(t, "claude-custom", cfg.LLM.Model)
	assert.Equal(t, ":1", cfg.ServerAddr)
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(p, []byte("AGENTS_TEST_A=fromfile\nAGENTS_TEST_B=fromfile\n"), 0o644))
	t.Setenv("AGENTS_TEST_A", "fromenv")
	t.Setenv("AGENTS_TEST_B", "")
	os.Unsetenv("AGENTS_TEST_B")

	require.NoError(t, LoadDotEnv(p, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "fromenv", os.Getenv("AGENTS_TEST_A"))
	assert.Equal(t, "fromfile", os.Getenv("AGENTS_TEST_B"))
}
