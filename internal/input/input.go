package input

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/muesli/cancelreader"
	"golang.org/x/term"

	"homebin/internal/playback"
)

// ErrNotInteractive reports that stdin is not a terminal, so no key loop can
// run. The player session continues without interactive controls.
var ErrNotInteractive = errors.New("stdin is not a terminal")

// Reader reads raw keystrokes from stdin and turns them into commands. It
// owns the terminal mode for its lifetime: raw on New, restored on Close.
type Reader struct {
	src       cancelreader.CancelReader
	fd        int
	oldState  *term.State
	closeOnce sync.Once
}

// New switches stdin into raw mode. Callers must Close the reader on every
// exit path so the terminal is restored.
func New() (*Reader, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return nil, ErrNotInteractive
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("entering raw mode: %w", err)
	}

	src, err := cancelreader.NewReader(os.Stdin)
	if err != nil {
		term.Restore(fd, oldState)
		return nil, fmt.Errorf("preparing input reader: %w", err)
	}

	return &Reader{src: src, fd: fd, oldState: oldState}, nil
}

// Run reads keystrokes until the context is cancelled or stdin closes,
// submitting each decoded command. Unrecognized keys decode to CmdNone and
// are not submitted.
func (r *Reader) Run(ctx context.Context, submit func(playback.Command)) {
	go func() {
		<-ctx.Done()
		r.src.Cancel()
	}()

	var buf [8]byte
	for {
		n, err := r.src.Read(buf[:])
		if err != nil {
			return
		}
		if cmd := Decode(buf[:n]); cmd != playback.CmdNone {
			submit(cmd)
		}
	}
}

// Close cancels any blocked read and restores the terminal. Idempotent.
func (r *Reader) Close() {
	r.closeOnce.Do(func() {
		r.src.Cancel()
		r.src.Close()
		term.Restore(r.fd, r.oldState)
	})
}
