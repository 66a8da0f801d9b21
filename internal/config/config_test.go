package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
database:
  url: postgres://localhost/pipeline
redis:
  url: localhost:6379
`))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Queue.BackoffUnit)
	assert.Equal(t, 45*time.Second, cfg.Media.FetchTimeout)
	assert.Equal(t, 120*time.Second, cfg.OCR.RequestTimeout)
	assert.Equal(t, 300*time.Second, cfg.Pipeline.InvocationTimeout)
	assert.Equal(t, "http://localhost:8001", cfg.OCR.BaseURL)
	assert.Equal(t, "hi-IN", cfg.Video.LanguageCode)
	assert.Equal(t, []string{"en-IN", "sa"}, cfg.Video.AltLanguages)
	assert.Equal(t, cfg.AI.ReconstructModel, cfg.AI.TranslateModel)
}

func TestParse_ExpandsEnvAndDurations(t *testing.T) {
	t.Setenv("PIPELINE_TEST_DB", "postgres://db/x")
	cfg, err := Parse([]byte(`
database:
  url: ${PIPELINE_TEST_DB}
redis:
  url: localhost:6379
ai:
  provider: OpenAI
ocr:
  base_url: http://ocr:9000/
queue:
  backoff_unit: 10s
  max_attempts: 5
`))
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/x", cfg.Database.URL)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "http://ocr:9000", cfg.OCR.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Queue.BackoffUnit)
	assert.Equal(t, 5, cfg.Queue.MaxAttempts)
}

func TestParse_Validation(t *testing.T) {
	_, err := Parse([]byte(`redis: {url: "x"}`))
	assert.EqualError(t, err, "database.url is required")

	_, err = Parse([]byte(`database: {url: "x"}`))
	assert.EqualError(t, err, "redis.url is required")

	_, err = Parse([]byte(`
database: {url: "x"}
redis: {url: "y"}
ai: {provider: "claude"}
`))
	assert.Error(t, err)
}

func TestLoadConfig_SetsRuntime(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("database: {url: a}\nredis: {url: b}\n"), 0o600))

	cfg, err := LoadConfig(p, true)
	require.NoError(t, err)
	assert.True(t, cfg.Runtime.Dev)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), false)
	assert.Error(t, err)
}
