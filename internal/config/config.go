package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Environment overrides, applied after the config file
const (
	EnvDataDir    = "TABREEL_DATA_DIR"
	EnvWorkDir    = "TABREEL_WORK_DIR"
	EnvFFmpegPath = "TABREEL_FFMPEG_PATH"
	EnvAddr       = "TABREEL_ADDR"
	EnvPublish    = "TABREEL_PUBLISH"
	EnvS3Bucket   = "TABREEL_S3_BUCKET"
	EnvS3Region   = "TABREEL_S3_REGION"
	EnvS3Endpoint = "TABREEL_S3_ENDPOINT"
)

const dbFilename = "tabreel.db"

// Config holds all application configuration
type Config struct {
	// Core settings
	DataDir string `yaml:"data_dir"`
	WorkDir string `yaml:"work_dir"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Export defaults
	Export ExportConfig `yaml:"export"`

	// Preview settings
	Preview PreviewConfig `yaml:"preview"`

	// HTTP API settings
	Server ServerConfig `yaml:"server"`

	// Artifact publishing
	Publish PublishConfig `yaml:"publish"`
}

type FFmpegConfig struct {
	BinaryPath   string        `yaml:"binary_path"`
	ProbePath    string        `yaml:"probe_path"`
	Threads      int           `yaml:"threads"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

type ExportConfig struct {
	Format    string `yaml:"format"`
	Quality   string `yaml:"quality"`
	FPS       int    `yaml:"fps"`
	OutputDir string `yaml:"output_dir"`
}

type PreviewConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type PublishConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint"`
}

// Load reads configuration from file or returns defaults. A .env file in the
// working directory is loaded first so TABREEL_* overrides can live there.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DBPath is the recording store database
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFilename)
}

// CacheDir holds downloaded sources handed to ffprobe and the preview decoder
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvWorkDir); v != "" {
		c.WorkDir = v
	}
	if v := os.Getenv(EnvFFmpegPath); v != "" {
		c.FFmpeg.BinaryPath = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvPublish); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPublish, err)
		}
		c.Publish.Enabled = enabled
	}
	if v := os.Getenv(EnvS3Bucket); v != "" {
		c.Publish.Bucket = v
	}
	if v := os.Getenv(EnvS3Region); v != "" {
		c.Publish.Region = v
	}
	if v := os.Getenv(EnvS3Endpoint); v != "" {
		c.Publish.Endpoint = v
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		WorkDir: "",
		FFmpeg: FFmpegConfig{
			Threads:      0,
			ProbeTimeout: 30 * time.Second,
		},
		Export: ExportConfig{
			Format:    "mp4",
			Quality:   "high",
			FPS:       30,
			OutputDir: ".",
		},
		Preview: PreviewConfig{
			Width:  960,
			Height: 540,
			FPS:    30,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8790",
		},
		Publish: PublishConfig{
			Region: "us-east-1",
			Prefix: "exports/",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tabreel"
	}
	return filepath.Join(home, ".tabreel")
}

func findConfigFile() string {
	candidates := []string{
		"./tabreel.yaml",
		"./tabreel.yml",
		filepath.Join(defaultDataDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
