package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const FileName = "config.yaml"

type RenderTarget struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Defaults struct {
	BackgroundColor    string `yaml:"background_color"`
	BackgroundImage    string `yaml:"background_image"`
	PremultipliedAlpha bool   `yaml:"premultiplied_alpha"`
	Loop               bool   `yaml:"loop"`
}

type Config struct {
	DataDir         string       `yaml:"-"`
	DBPath          string       `yaml:"db_path"`
	LogLevel        string       `yaml:"log_level"`
	MetricsAddr     string       `yaml:"metrics_addr"`
	InspectorPlugin string       `yaml:"inspector_plugin"`
	CharactersFile  string       `yaml:"characters_file"`
	RepairBaseURL   string       `yaml:"repair_base_url"`
	RenderTarget    RenderTarget `yaml:"render_target"`
	Defaults        Defaults     `yaml:"defaults"`
}

// New returns the defaults for dataDir overlaid with dataDir/config.yaml when present.
func New(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	cfg := Config{
		DataDir:  dataDir,
		DBPath:   filepath.Join(dataDir, "modpreview.db"),
		LogLevel: "info",
		RenderTarget: RenderTarget{
			Width:  1280,
			Height: 720,
		},
		Defaults: Defaults{
			BackgroundColor:    "#1e1e2e",
			PremultipliedAlpha: true,
			Loop:               true,
		},
	}
	raw, err := os.ReadFile(filepath.Join(dataDir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.DataDir = dataDir
	cfg.resolvePaths()
	return cfg, nil
}

func (c *Config) resolvePaths() {
	for _, p := range []*string{&c.DBPath, &c.InspectorPlugin, &c.CharactersFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Clean(filepath.Join(c.DataDir, *p))
		}
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "modpreview.db")
	}
}

// DefaultDataDir is the per-user directory used when no --data-dir is given.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "modpreview")
	}
	return ".modpreview"
}
