package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"homebin/internal/config"
	"homebin/internal/input"
	"homebin/internal/logging"
	"homebin/internal/media"
	"homebin/internal/meta"
	"homebin/internal/playback"
)

// options holds the parsed command-line flags. The flag set is kept so
// explicitly set flags can override config file values.
type options struct {
	file           string
	directory      string
	playlist       string
	volume         int
	shuffle        bool
	repeat         bool
	daemon         bool
	configPath     string
	createPlaylist string
	logLevel       string

	set *pflag.FlagSet
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := pflag.NewFlagSet("tunes", pflag.ContinueOnError)
	fs.StringVarP(&o.file, "file", "f", "", "play a single file")
	fs.StringVarP(&o.directory, "directory", "d", "", "play all files in directory")
	fs.StringVarP(&o.playlist, "playlist", "p", "", "load and play M3U playlist")
	fs.IntVarP(&o.volume, "volume", "v", 70, "set volume (0-100)")
	fs.BoolVarP(&o.shuffle, "shuffle", "s", false, "enable shuffle mode")
	fs.BoolVarP(&o.repeat, "repeat", "r", false, "enable repeat mode")
	fs.BoolVar(&o.daemon, "daemon", false, "run as daemon")
	fs.StringVarP(&o.configPath, "config", "c", config.DefaultPath, "config file path")
	fs.StringVar(&o.createPlaylist, "create-playlist", "", "create playlist with given name")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warning, error)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.set = fs
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	log := logging.New(logging.Options{
		Level:     logging.ParseLevel(opts.logLevel),
		File:      cfg.LogFile,
		UseSyslog: cfg.UseSyslog,
		Tag:       "tunes",
	})
	defer log.Sync()

	if opts.createPlaylist != "" {
		return createPlaylist(opts, cfg, log)
	}

	// Flags the user actually passed win over the config file.
	volume := cfg.DefaultVolume
	if opts.set.Changed("volume") {
		volume = opts.volume
	}
	shuffle := cfg.Playback.Shuffle
	if opts.set.Changed("shuffle") {
		shuffle = opts.shuffle
	}
	repeat := cfg.Playback.Repeat
	if opts.set.Changed("repeat") {
		repeat = opts.repeat
	}

	explicitSource := opts.file != "" || opts.directory != "" || opts.playlist != ""

	var playlist []string
	switch {
	case opts.file != "":
		if _, err := os.Stat(opts.file); err != nil {
			fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", opts.file)
			return 1
		}
		playlist = []string{opts.file}
		log.Info("added single file", zap.String("path", opts.file))

	case opts.directory != "":
		tracks, err := media.Scan(opts.directory, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Directory not found: %s\n", opts.directory)
			return 1
		}
		playlist = tracks
		log.Info("scanned directory",
			zap.String("path", opts.directory), zap.Int("tracks", len(tracks)))

	case opts.playlist != "":
		path := resolvePlaylist(opts.playlist, cfg.PlaylistDirectory)
		if path == "" {
			fmt.Fprintf(os.Stderr, "Error: Playlist not found: %s\n", opts.playlist)
			return 1
		}
		entries, err := media.ParsePlaylist(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		playable, dropped := media.FilterPlayable(entries)
		for _, d := range dropped {
			log.Warn("skipping unplayable playlist entry", zap.String("path", d))
		}
		playlist = playable
		log.Info("loaded playlist", zap.String("path", path), zap.Int("tracks", len(playlist)))
	}

	if !opts.daemon {
		fmt.Println("🎵 CLI Music Player v1.0.0")
		fmt.Println(strings.Repeat("=", 40))
		fmt.Println("Loading configuration...")
	}

	if !explicitSource {
		tracks, code := scanDefaultDirectory(cfg.MusicDirectory, opts.daemon, log)
		if code >= 0 {
			return code
		}
		playlist = tracks
	}

	if opts.daemon {
		log.Info("starting music player daemon")
	} else {
		fmt.Println()
		fmt.Println("Controls: [SPACE] Play/Pause | [n] Next | [q] Quit | [h] Help")
		fmt.Println("Press 'h' for full help")
		fmt.Println()
	}

	// Keyboard input is set up before the fx app so the deferred Close
	// restores the terminal on every exit path.
	var reader *input.Reader
	if !opts.daemon {
		reader, err = input.New()
		if err != nil {
			if !errors.Is(err, input.ErrNotInteractive) {
				fmt.Fprintf(os.Stderr, "Warning: keyboard input unavailable: %v\n", err)
			}
			log.Warn("running without keyboard controls", zap.Error(err))
			reader = nil
		} else {
			defer reader.Close()
		}
	}

	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Provide(
			func() *zap.Logger { return log },
			func(log *zap.Logger) (playback.Supervisor, error) {
				return playback.NewSupervisor(playback.DefaultDecoder, log)
			},
			func(sup playback.Supervisor, log *zap.Logger) *playback.Controller {
				return playback.New(playback.Options{
					Supervisor: sup,
					Playlist:   playlist,
					Volume:     volume,
					Shuffle:    shuffle,
					Repeat:     repeat,
					Autoplay:   cfg.Playback.Autoplay || opts.daemon,
					Daemon:     opts.daemon,
					RawOutput:  reader != nil,
					Logger:     log,
				})
			},
			func() *input.Reader { return reader },
		),
		fx.Invoke(registerHooks),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		if errors.Is(err, playback.ErrDecoderMissing) {
			fmt.Fprintln(os.Stderr, "Error: mpg123 is required but not installed.")
			fmt.Fprintln(os.Stderr, "Install it with: sudo apt install mpg123")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	select {
	case <-ctx.Done():
		log.Info("interrupted by user")
	case <-app.Wait():
	}

	if err := app.Stop(context.Background()); err != nil {
		log.Error("shutdown failed", zap.Error(err))
		return 1
	}
	return 0
}

// registerHooks ties the controller's lifetime to the fx app: the command
// loop and the keyboard reader start together, and shutdown waits for the
// controller to stop the decoder before returning.
func registerHooks(lc fx.Lifecycle, sd fx.Shutdowner, c *playback.Controller, r *input.Reader, log *zap.Logger) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				c.Run(runCtx)
				_ = sd.Shutdown()
			}()
			if r != nil {
				go r.Run(runCtx, c.Submit)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-c.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
			log.Info("player shut down")
			return nil
		},
	})
}

func createPlaylist(opts *options, cfg config.Config, log *zap.Logger) int {
	if opts.directory == "" {
		fmt.Fprintln(os.Stderr, "Error: --directory required when creating playlist")
		return 1
	}
	tracks, err := media.Scan(opts.directory, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Directory not found: %s\n", opts.directory)
		return 1
	}
	entries := make([]media.PlaylistEntry, 0, len(tracks))
	for _, path := range tracks {
		t := meta.Probe(path)
		entries = append(entries, media.PlaylistEntry{
			Path:     path,
			Title:    t.DisplayTitle(),
			Duration: t.Duration,
		})
	}
	path, err := media.SavePlaylist(entries, opts.createPlaylist, cfg.PlaylistDirectory)
	if err != nil {
		log.Error("creating playlist", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error creating playlist")
		return 1
	}
	log.Info("created playlist", zap.String("path", path), zap.Int("tracks", len(entries)))
	fmt.Printf("Playlist '%s' created successfully\n", opts.createPlaylist)
	return 0
}

// scanDefaultDirectory loads the configured music directory when no source
// flag was given. The returned code is -1 when playback should proceed.
func scanDefaultDirectory(dir string, daemon bool, log *zap.Logger) ([]string, int) {
	if !daemon {
		fmt.Printf("Scanning music directory: %s\n", dir)
	}
	tracks, err := media.Scan(dir, true)
	if err != nil {
		if daemon {
			log.Error("music directory not found", zap.String("path", dir))
			return nil, 1
		}
		fmt.Fprintf(os.Stderr, "Error: Directory not found: %s\n", dir)
		return nil, 1
	}
	if len(tracks) == 0 {
		if !daemon {
			fmt.Println("No audio files found")
		}
		log.Warn("no audio files found", zap.String("path", dir))
		return nil, 0
	}
	if !daemon {
		fmt.Printf("Found %d audio files\n", len(tracks))
	}
	return tracks, -1
}

// resolvePlaylist accepts either a path to a playlist file or the bare name
// of one stored in the playlist directory.
func resolvePlaylist(name, dir string) string {
	if _, err := os.Stat(name); err == nil {
		return name
	}
	for _, candidate := range []string{
		filepath.Join(dir, name),
		filepath.Join(dir, name+".m3u"),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
