package rename

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Naming patterns for generated file names.
const (
	PatternTimestamp  = "timestamp"
	PatternSequential = "sequential"
	PatternCleanOnly  = "clean_only"
)

// Config drives the renaming rules.
type Config struct {
	WatchDirectory    string   `toml:"watch_directory"`
	NamingPattern     string   `toml:"naming_pattern"`
	TimestampFormat   string   `toml:"timestamp_format"`
	Prefix            string   `toml:"add_prefix"`
	Suffix            string   `toml:"add_suffix"`
	AllowedExtensions []string `toml:"allowed_extensions"`
	IgnoredExtensions []string `toml:"ignored_extensions"`
	CleanNames        bool     `toml:"clean_names"`
	HandleDuplicates  bool     `toml:"handle_duplicates"`
	LogFile           string   `toml:"log_file"`
	LogLevel          string   `toml:"log_level"`
}

// DefaultConfig returns the built-in rules: clean names, timestamp pattern,
// common download extensions, transfer leftovers ignored.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		WatchDirectory:  filepath.Join(home, "Downloads"),
		NamingPattern:   PatternTimestamp,
		TimestampFormat: "20060102_150405",
		AllowedExtensions: []string{
			"pdf", "doc", "docx", "txt", "jpg", "jpeg", "png", "gif", "zip", "tar", "gz",
		},
		IgnoredExtensions: []string{"tmp", "part", "crdownload"},
		CleanNames:        true,
		HandleDuplicates:  true,
		LogFile:           "logs/renamer.log",
		LogLevel:          "info",
	}
}

// FindConfig returns the first existing config file among the standard
// locations, or empty when none exists.
func FindConfig() string {
	home, _ := os.UserHomeDir()
	for _, path := range []string{
		"config/renamer.toml",
		"/etc/renamer/renamer.toml",
		filepath.Join(home, ".config", "renamer", "renamer.toml"),
	} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadConfig overlays the file at path on the defaults. An empty path means
// defaults only.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}
