package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func TestMissingFileGivesDefaults(t *testing.T) {
	for _, k := range []string{"RMDIGIT_MODEL_URL", "RMDIGIT_MODEL_KIND", "RMDIGIT_ADDR", "RMDIGIT_TRACE"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 400, cfg.Surface.Width)
	assert.Equal(t, DefaultModelURL, cfg.Classifier.Location)
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
surface:
  width: 280
  height: 200
classifier:
  kind: tfserving
  location: http://serving:8501
  version: "3"
  timeout: 2s
match:
  policy: exact
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 280, cfg.Surface.Width)
	assert.Equal(t, 200, cfg.Surface.Height)
	assert.Equal(t, 11.0, cfg.Pen.Width)
	assert.Equal(t, "tfserving", cfg.Classifier.Kind)
	assert.Equal(t, 2*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, "mnist", cfg.Classifier.Model)
	assert.Equal(t, "exact", cfg.Match.Policy)
	assert.Equal(t, float32(1), cfg.Match.Value)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RMDIGIT_MODEL_URL", "/models/mnist/model.json")
	t.Setenv("RMDIGIT_TRACE", "1")
	t.Setenv("RMDIGIT_ADDR", ":9000")

	cfg, err := Load(writeConfig(t, "log:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "/models/mnist/model.json", cfg.Classifier.Location)
	assert.True(t, cfg.Log.Trace)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"surface":   func(c *Config) { c.Surface.Width = 0 },
		"pen":       func(c *Config) { c.Pen.Width = -1 },
		"sampler":   func(c *Config) { c.Sampler.Size = 0 },
		"scale":     func(c *Config) { c.Sampler.Scale = 0 },
		"negscale":  func(c *Config) { c.Sampler.Scale = -1 },
		"resampler": func(c *Config) { c.Sampler.Resampler = "cubic" },
		"kind":      func(c *Config) { c.Classifier.Kind = "onnx" },
		"location":  func(c *Config) { c.Classifier.Location = "" },
		"inflight":  func(c *Config) { c.Classifier.MaxInflight = 0 },
		"policy":    func(c *Config) { c.Match.Policy = "vote" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestBadYaml(t *testing.T) {
	_, err := Load(writeConfig(t, "surface: [1, 2"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	out, err := Default().Marshal()
	require.NoError(t, err)
	cfg, err := Load(writeConfig(t, string(out)))
	require.NoError(t, err)
	assert.Equal(t, Default().Surface, cfg.Surface)
}
