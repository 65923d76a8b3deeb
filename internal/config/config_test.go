package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Default()
	if cfg != want {
		t.Errorf("Load() = %#v, want %#v", cfg, want)
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
music_directory = "/srv/music"
default_volume = 40

[playback]
shuffle = true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MusicDirectory != "/srv/music" {
		t.Errorf("MusicDirectory = %q, want %q", cfg.MusicDirectory, "/srv/music")
	}
	if cfg.DefaultVolume != 40 {
		t.Errorf("DefaultVolume = %d, want 40", cfg.DefaultVolume)
	}
	if !cfg.Playback.Shuffle {
		t.Error("Playback.Shuffle = false, want true")
	}
	// Untouched keys keep their defaults.
	if !cfg.Playback.Repeat {
		t.Error("Playback.Repeat = false, want default true")
	}
	if cfg.LogFile != Default().LogFile {
		t.Errorf("LogFile = %q, want default %q", cfg.LogFile, Default().LogFile)
	}
}

func TestLoadClampsVolume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("default_volume = 180\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultVolume != 100 {
		t.Errorf("DefaultVolume = %d, want 100", cfg.DefaultVolume)
	}
}

func TestLoadMalformedFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("music_directory = [oops\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
	if cfg != Default() {
		t.Errorf("Load() = %#v, want defaults", cfg)
	}
}

func TestExpandUser(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandUser("~/Music"); got != filepath.Join(home, "Music") {
		t.Errorf("expandUser(~/Music) = %q, want %q", got, filepath.Join(home, "Music"))
	}
	if got := expandUser("/srv/music"); got != "/srv/music" {
		t.Errorf("expandUser(/srv/music) = %q, want unchanged", got)
	}
}
