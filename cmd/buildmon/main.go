package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nxadm/tail"
	"github.com/spf13/pflag"

	"homebin/internal/buildstate"
	"homebin/internal/util"
)

type options struct {
	logDir  string
	follow  bool
	status  bool
	summary bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("buildmon", pflag.ContinueOnError)
	fs.StringVar(&opts.logDir, "log-dir", buildstate.DefaultLogDir, "build log directory")
	fs.BoolVar(&opts.follow, "follow", false, "follow the main build log")
	fs.BoolVar(&opts.status, "status", false, "print a one-shot status report")
	fs.BoolVar(&opts.summary, "summary", false, "print a short build summary")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
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

	mon := buildstate.New(opts.logDir)

	switch {
	case opts.follow:
		return followLog(mon)
	case opts.status:
		printStatus(mon)
		return 0
	case opts.summary:
		printSummary(mon)
		return 0
	}

	if _, err := tea.NewProgram(newDashboardModel(mon), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func followLog(mon *buildstate.Monitor) int {
	logPath := mon.MainLog()
	if _, err := os.Stat(logPath); err != nil {
		fmt.Printf("Log file not found: %s\n", logPath)
		return 1
	}

	fmt.Printf("Following log file: %s\n", logPath)
	fmt.Println("Press Ctrl+C to exit")
	fmt.Println(strings.Repeat("-", 50))

	t, err := tail.TailFile(logPath, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:   tail.DiscardingLogger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			t.Stop()
			t.Cleanup()
			fmt.Println("\nLog following stopped")
			return 0
		case line, ok := <-t.Lines:
			if !ok {
				fmt.Println("\nLog following stopped")
				return 0
			}
			if line.Err != nil {
				continue
			}
			fmt.Println(line.Text)
		}
	}
}

func progressBar(progress float64, width int) string {
	filled := int(progress / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func printStatus(mon *buildstate.Monitor) {
	st := mon.Snapshot(time.Now())

	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("Linux From Scratch (LFS) Build Monitor")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Current Phase: %s\n", st.Phase)
	fmt.Printf("Current Package: %s\n", st.Package)
	fmt.Printf("Progress: [%s] %.1f%%\n", progressBar(st.Progress, 50), st.Progress)

	if st.HasTime {
		fmt.Printf("Build Time: %s\n", buildstate.FormatBuildTime(st.BuildTime))
		if est, ok := buildstate.EstimateRemaining(st.BuildTime, st.Progress); ok {
			fmt.Printf("Estimated Remaining: %s\n", est)
		}
	}

	fmt.Printf("Errors: %d  Warnings: %d\n", st.Errors, st.Warnings)

	if res, err := buildstate.ReadResources(time.Second); err == nil {
		fmt.Println()
		fmt.Println("System Resources:")
		fmt.Printf("  CPU: %.1f%%\n", res.CPUPercent)
		fmt.Printf("  Memory: %.1f%% (%s / %s)\n",
			res.MemoryPercent, util.FormatBytes(res.MemoryUsed), util.FormatBytes(res.MemoryTotal))
		fmt.Printf("  Disk: %.1f%% (%s / %s)\n",
			res.DiskPercent, util.FormatBytes(res.DiskUsed), util.FormatBytes(res.DiskTotal))
	}

	if recent := mon.TailLines(recentLogLines); len(recent) > 0 {
		fmt.Println()
		fmt.Println("Recent Log Entries:")
		for _, line := range recent {
			fmt.Printf("  %s\n", line)
		}
	}
	fmt.Println(strings.Repeat("=", 70))
}

func printSummary(mon *buildstate.Monitor) {
	st := mon.Snapshot(time.Now())

	fmt.Println(strings.Repeat("=", 40))
	fmt.Println("LFS Build Summary")
	fmt.Println(strings.Repeat("=", 40))
	fmt.Printf("Phase: %s\n", st.Phase)
	fmt.Printf("Progress: %.1f%%\n", st.Progress)
	fmt.Printf("Errors: %d\n", st.Errors)
	fmt.Printf("Warnings: %d\n", st.Warnings)
	if st.HasTime {
		fmt.Printf("Build Time: %s\n", buildstate.FormatBuildTime(st.BuildTime))
	}

	switch {
	case st.Complete():
		fmt.Println("Status: BUILD COMPLETE ✓")
	case st.Failed():
		fmt.Println("Status: BUILD FAILED ✗")
	default:
		fmt.Println("Status: BUILD IN PROGRESS...")
	}
	fmt.Println(strings.Repeat("=", 40))
}
