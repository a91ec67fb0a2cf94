package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the server and CLI look for the config file.
const DefaultPath = "config/config.yaml"

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Workers struct {
		Count     int `yaml:"count"`
		QueueSize int `yaml:"queue_size"`
	} `yaml:"workers"`

	Storage struct {
		WorkspaceDir string `yaml:"workspace_dir"`
		OutputDir    string `yaml:"output_dir"`
		Database     string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
		OutputMaxDays   int `yaml:"output_max_days"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MinScriptChars int `yaml:"min_script_chars"`
		MaxScriptChars int `yaml:"max_script_chars"`
	} `yaml:"limits"`

	Render struct {
		Mode         string `yaml:"mode"`
		Language     string `yaml:"language"`
		Slow         bool   `yaml:"slow"`
		FontPath     string `yaml:"font_path"`
		FallbackFont string `yaml:"fallback_font"`
	} `yaml:"render"`

	TTS struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"tts"`

	Background struct {
		URLTemplate    string `yaml:"url_template"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"background"`

	Music struct {
		Enabled        bool     `yaml:"enabled"`
		URLs           []string `yaml:"urls"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
	} `yaml:"music"`

	FFmpeg struct {
		Path           string `yaml:"path"`
		ProbePath      string `yaml:"probe_path"`
		TimeoutMinutes int    `yaml:"timeout_minutes"`
	} `yaml:"ffmpeg"`

	Fetch struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"fetch"`

	Redis struct {
		Enabled       bool   `yaml:"enabled"`
		Addr          string `yaml:"addr"`
		RequestList   string `yaml:"request_list"`
		ResultChannel string `yaml:"result_channel"`
	} `yaml:"redis"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}

	c.Server.Port = 8080
	c.Server.Host = "0.0.0.0"

	c.Workers.Count = 2
	c.Workers.QueueSize = 100

	c.Storage.WorkspaceDir = "./jobs"
	c.Storage.OutputDir = "./outputs"
	c.Storage.Database = "./renders.db"

	c.Cleanup.IntervalMinutes = 30
	c.Cleanup.MaxAgeHours = 2
	c.Cleanup.OutputMaxDays = 7

	c.GoogleDrive.CredentialsFile = "./credentials.json"
	c.GoogleDrive.TokenFile = "./token.json"
	c.GoogleDrive.FolderName = "Script Videos"

	c.Limits.MinScriptChars = 15
	c.Limits.MaxScriptChars = 3000

	c.Render.Mode = "typewriter"
	c.Render.Language = "hi"
	c.Render.FontPath = "/usr/share/fonts/truetype/noto/NotoSansDevanagari-Bold.ttf"
	c.Render.FallbackFont = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"

	c.TTS.TimeoutSeconds = 120

	c.Background.TimeoutSeconds = 15

	c.Music.Enabled = true
	c.Music.TimeoutSeconds = 20

	c.FFmpeg.Path = "ffmpeg"
	c.FFmpeg.ProbePath = "ffprobe"
	c.FFmpeg.TimeoutMinutes = 10

	c.Fetch.RequestsPerSecond = 5
	c.Fetch.Burst = 5

	c.Redis.Addr = "localhost:6379"
	c.Redis.RequestList = "render:requests"
	c.Redis.ResultChannel = "render:results"

	return c
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Config file %s not found, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}

	strs := map[string]*string{
		"HOST":          &c.Server.Host,
		"WORKSPACE_DIR": &c.Storage.WorkspaceDir,
		"OUTPUT_DIR":    &c.Storage.OutputDir,
		"DATABASE_PATH": &c.Storage.Database,
		"FFMPEG_PATH":   &c.FFmpeg.Path,
		"FFPROBE_PATH":  &c.FFmpeg.ProbePath,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	return nil
}
