package main

import (
	"errors"
	"os"

	"github.com/spf13/pflag"

	"homebin/internal/hostreq"
	"homebin/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var logLevel string
	fs := pflag.NewFlagSet("hostcheck", pflag.ContinueOnError)
	fs.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warning, error)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	log := logging.New(logging.Options{
		Level:   logging.ParseLevel(logLevel),
		Console: true,
	})
	defer log.Sync()

	if hostreq.New(log.Sugar()).Run() {
		return 0
	}
	return 1
}
