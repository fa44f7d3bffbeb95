// Package config loads the rmdigit YAML configuration.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	defaultConfigFile = ".rmdigit.yaml"
	appName           = "rmdigit"
	configFileName    = "config.yaml"

	// DefaultModelURL is where the training backend publishes the model.
	DefaultModelURL = "http://localhost:3000/model.json"
)

type Surface struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Pen struct {
	Width float64 `yaml:"width"`
	Color string  `yaml:"color"`
}

type Sampler struct {
	Size      int     `yaml:"size"`
	Resampler string  `yaml:"resampler"`
	Scale     float32 `yaml:"scale"`
}

type Classifier struct {
	// Kind is "layers" or "tfserving".
	Kind string `yaml:"kind"`
	// Location is a model.json URL or path for layers, the server base
	// URL for tfserving. "{version}" is replaced by Version.
	Location    string        `yaml:"location"`
	Model       string        `yaml:"model"`
	Version     string        `yaml:"version"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxInflight int64         `yaml:"max_inflight"`
	// NoCache disables the on-disk artifact cache.
	NoCache bool `yaml:"no_cache"`
}

type Match struct {
	Policy string  `yaml:"policy"`
	Floor  float32 `yaml:"floor"`
	Value  float32 `yaml:"value"`
}

type Server struct {
	Addr   string `yaml:"addr"`
	Secret string `yaml:"secret"`
	// TokenTTL bounds session token lifetime, 0 means no expiry.
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type Log struct {
	Level string `yaml:"level"`
	Trace bool   `yaml:"trace"`
}

type Config struct {
	Surface    Surface    `yaml:"surface"`
	Pen        Pen        `yaml:"pen"`
	Sampler    Sampler    `yaml:"sampler"`
	Classifier Classifier `yaml:"classifier"`
	Match      Match      `yaml:"match"`
	Server     Server     `yaml:"server"`
	Log        Log        `yaml:"log"`
}

// Default matches the web canvas: a 400x400 surface, an 11px
// #111111 pen, a 28x28 frame and the model served on localhost:3000.
func Default() Config {
	return Config{
		Surface: Surface{Width: 400, Height: 400},
		Pen:     Pen{Width: 11, Color: "#111111"},
		Sampler: Sampler{Size: 28, Resampler: "area", Scale: 1},
		Classifier: Classifier{
			Kind:        "layers",
			Location:    DefaultModelURL,
			Model:       "mnist",
			MaxInflight: 2,
		},
		Match:  Match{Policy: "argmax", Value: 1},
		Server: Server{Addr: ":8080"},
		Log:    Log{Level: "info"},
	}
}

// ConfigPath returns the file Load reads when no path is given.
func ConfigPath() (string, error) {
	if p := os.Getenv("RMDIGIT_CONFIG"); p != "" {
		return p, nil
	}
	if dir, err := os.UserConfigDir(); err == nil {
		p := filepath.Join(dir, appName, configFileName)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "can't find home directory")
	}
	return filepath.Join(home, defaultConfigFile), nil
}

// Load reads path (or ConfigPath when empty) over the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "failed to parse %s", path)
		}
	case os.IsNotExist(err):
	default:
		return cfg, errors.Wrapf(err, "failed to read %s", path)
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RMDIGIT_MODEL_URL"); v != "" {
		cfg.Classifier.Location = v
	}
	if v := os.Getenv("RMDIGIT_MODEL_KIND"); v != "" {
		cfg.Classifier.Kind = v
	}
	if v := os.Getenv("RMDIGIT_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v, err := strconv.ParseBool(os.Getenv("RMDIGIT_TRACE")); err == nil {
		cfg.Log.Trace = v
	}
}

func (c Config) Validate() error {
	if c.Surface.Width <= 0 || c.Surface.Height <= 0 {
		return errors.Errorf("invalid surface size %dx%d", c.Surface.Width, c.Surface.Height)
	}
	if c.Pen.Width <= 0 {
		return errors.Errorf("invalid pen width %v", c.Pen.Width)
	}
	if c.Sampler.Size <= 0 {
		return errors.Errorf("invalid sampler size %d", c.Sampler.Size)
	}
	if c.Sampler.Scale <= 0 {
		return errors.Errorf("invalid sampler scale %v", c.Sampler.Scale)
	}
	switch c.Sampler.Resampler {
	case "", "area", "bilinear", "nearest":
	default:
		return errors.Errorf("unknown resampler %q", c.Sampler.Resampler)
	}
	switch c.Classifier.Kind {
	case "layers", "tfserving":
	default:
		return errors.Errorf("unknown classifier kind %q", c.Classifier.Kind)
	}
	if c.Classifier.Location == "" {
		return errors.New("classifier location is required")
	}
	if c.Classifier.MaxInflight <= 0 {
		return errors.Errorf("invalid classifier max_inflight %d", c.Classifier.MaxInflight)
	}
	switch c.Match.Policy {
	case "", "argmax", "exact":
	default:
		return errors.Errorf("unknown match policy %q", c.Match.Policy)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
