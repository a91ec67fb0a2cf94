package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Render.Language != "hi" || cfg.Limits.MinScriptChars != 15 || cfg.Limits.MaxScriptChars != 3000 {
		t.Errorf("unexpected defaults: %+v", cfg.Render)
	}
	if cfg.FFmpeg.TimeoutMinutes != 10 || cfg.TTS.TimeoutSeconds != 120 {
		t.Errorf("unexpected timeouts: ffmpeg=%d tts=%d", cfg.FFmpeg.TimeoutMinutes, cfg.TTS.TimeoutSeconds)
	}
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9090
render:
  mode: slide
music:
  enabled: false
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Render.Mode != "slide" || cfg.Music.Enabled {
		t.Errorf("file values not applied: port=%d mode=%s music=%v", cfg.Server.Port, cfg.Render.Mode, cfg.Music.Enabled)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Workers.Count != 2 {
		t.Error("defaults lost for keys absent from the file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("WORKSPACE_DIR", "/tmp/ws")
	t.Setenv("REDIS_URL", "redis:6379")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7000 || cfg.Storage.WorkspaceDir != "/tmp/ws" {
		t.Errorf("env not applied: %d %s", cfg.Server.Port, cfg.Storage.WorkspaceDir)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" {
		t.Errorf("REDIS_URL should enable the feeder: %+v", cfg.Redis)
	}
}

func TestLoad_BadPort(t *testing.T) {
	t.Setenv("PORT", "eighty")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for non-numeric PORT")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
