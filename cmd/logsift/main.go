package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"homebin/internal/logging"
	"homebin/internal/logscan"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("logsift", pflag.ContinueOnError)
	file := fs.StringP("file", "f", "", "path to log file to parse")
	category := fs.StringP("category", "c", "", "pattern category to use (apache, syslog, application, custom)")
	output := fs.StringP("output", "o", "json", "output format (json, csv, txt)")
	write := fs.StringP("write", "w", "", "write results to file instead of stdout")
	configPath := fs.String("config", logscan.DefaultConfigPath, "pattern file path")
	maxLines := fs.Int("max-lines", 0, "maximum number of lines to process")
	report := fs.Bool("report", false, "generate summary report")
	listPatterns := fs.Bool("patterns", false, "list available patterns and exit")
	verbose := fs.BoolP("verbose", "v", false, "enable verbose logging")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	log := logging.New(logging.Options{
		Level:   logging.ParseLevel(level),
		File:    "logs/logsift.log",
		Console: true,
	})
	defer log.Sync()

	set, err := logscan.LoadPatterns(*configPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *listPatterns {
		fmt.Println("Available patterns:")
		for _, cat := range set.Categories {
			fmt.Printf("\n[%s]\n", cat.Name)
			for _, p := range cat.Patterns {
				fmt.Printf("  %s: %s\n", p.Name, p.Expr)
			}
		}
		return 0
	}

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		fs.Usage()
		return 2
	}

	sc := logscan.NewScanner(set, log)
	log.Info("starting to parse", zap.String("file", *file))
	results, err := sc.ParseFile(*file, *category, *maxLines)
	if err != nil {
		log.Error("parsing failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *report {
		rep := logscan.BuildReport(results, sc.Stats(), time.Now())
		fmt.Println()
		fmt.Print(logscan.FormatReport(rep))
		log.Info("parsing completed successfully")
		return 0
	}

	var rendered string
	switch strings.ToLower(*output) {
	case "json":
		rendered, err = logscan.FormatJSON(results)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	case "csv":
		rendered = logscan.FormatCSV(results)
	case "txt":
		rendered = logscan.FormatText(results)
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported output format: %s\n", *output)
		return 2
	}

	if *write != "" {
		if err := os.WriteFile(*write, []byte(rendered), 0o644); err != nil {
			log.Error("writing results", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		log.Info("results written", zap.String("path", *write))
	} else {
		fmt.Println(rendered)
	}

	log.Info("parsing completed successfully")
	return 0
}
