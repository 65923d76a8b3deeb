package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where the player looks for its configuration when
// --config is not given.
const DefaultPath = "/etc/tunes/config.toml"

// Playback holds the startup playback toggles.
type Playback struct {
	Shuffle  bool `toml:"shuffle"`
	Repeat   bool `toml:"repeat"`
	Autoplay bool `toml:"autoplay"`
}

// Config is the player configuration. Zero values are never used
// directly; start from Default and overlay a file on top.
type Config struct {
	MusicDirectory    string   `toml:"music_directory"`
	LogFile           string   `toml:"log_file"`
	DefaultVolume     int      `toml:"default_volume"`
	UseSyslog         bool     `toml:"use_syslog"`
	PlaylistDirectory string   `toml:"playlist_directory"`
	Playback          Playback `toml:"playback"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MusicDirectory:    expandUser("~/Music"),
		LogFile:           "/var/log/tunes/tunes.log",
		DefaultVolume:     70,
		UseSyslog:         true,
		PlaylistDirectory: expandUser("~/.local/share/tunes/playlists"),
		Playback: Playback{
			Shuffle:  false,
			Repeat:   true,
			Autoplay: false,
		},
	}
}

// Load reads the configuration file at path on top of the defaults.
// A missing file is not an error; a malformed one returns the defaults
// along with the parse error so the caller can warn and carry on.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.MusicDirectory = expandUser(cfg.MusicDirectory)
	cfg.PlaylistDirectory = expandUser(cfg.PlaylistDirectory)
	if cfg.DefaultVolume < 0 {
		cfg.DefaultVolume = 0
	}
	if cfg.DefaultVolume > 100 {
		cfg.DefaultVolume = 100
	}
	return cfg, nil
}

func expandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
