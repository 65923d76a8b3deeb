package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"homebin/internal/logging"
	"homebin/internal/rename"
)

const version = "1.0.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("renamer", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "configuration file path")
	existing := fs.BoolP("existing", "e", false, "process existing files and exit")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Println("renamer " + version)
		return 0
	}

	path := *configPath
	if path == "" {
		path = rename.FindConfig()
	}
	cfg, err := rename.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	log := logging.New(logging.Options{
		Level:   logging.ParseLevel(cfg.LogLevel),
		File:    cfg.LogFile,
		Console: true,
	})
	defer log.Sync()

	r := rename.New(cfg, log)

	if *existing {
		if err := r.ProcessExisting(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := r.Watch(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
