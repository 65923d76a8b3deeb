package playback

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultDecoder is the external decoder the player drives.
const DefaultDecoder = "mpg123"

const defaultStopTimeout = 5 * time.Second

// ErrDecoderMissing reports that the decoder executable is not on PATH.
var ErrDecoderMissing = errors.New("decoder not found in PATH")

// Handle is an opaque reference to a spawned decoder process.
type Handle interface {
	// PID returns the decoder's process id.
	PID() int
	// Alive reports whether the process has not yet exited.
	Alive() bool
	// Wait blocks until the process is reaped or the timeout elapses,
	// reporting whether it exited in time.
	Wait(d time.Duration) bool
}

// Supervisor owns the lifecycle of at most one decoder process at a time.
type Supervisor interface {
	Start(path string, volume int) (Handle, error)
	Pause(h Handle) error
	Resume(h Handle) error
	Stop(h Handle) error
}

// DecoderSupervisor runs mpg123 (or a flag-compatible decoder) as a child
// process and controls it with job-control signals. It is not safe for
// concurrent use; the controller loop is its only caller.
type DecoderSupervisor struct {
	bin         string
	log         *zap.Logger
	stopTimeout time.Duration
	current     *process
}

// NewSupervisor resolves the decoder executable once. A missing decoder is
// fatal for the whole session, so the lookup happens here rather than per
// track.
func NewSupervisor(decoder string, log *zap.Logger) (*DecoderSupervisor, error) {
	bin, err := exec.LookPath(decoder)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDecoderMissing, decoder)
	}
	return &DecoderSupervisor{bin: bin, log: log, stopTimeout: defaultStopTimeout}, nil
}

type process struct {
	cmd    *exec.Cmd
	pid    int
	paused bool
	done   chan struct{}
}

func (p *process) PID() int { return p.pid }

func (p *process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *process) Wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.done:
		return true
	case <-t.C:
		return false
	}
}

// Start spawns the decoder for one track. Any process still owned by the
// supervisor is stopped first, so there is never more than one live child.
func (s *DecoderSupervisor) Start(path string, volume int) (Handle, error) {
	if s.current != nil {
		if err := s.Stop(s.current); err != nil {
			s.log.Warn("stopping previous decoder", zap.Error(err))
		}
	}

	args := []string{"--stereo", "--buffer", "1024"}
	if volume != 100 {
		args = append(args, "--scale", strconv.Itoa(volume))
	}
	args = append(args, path)

	cmd := exec.Command(s.bin, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting decoder: %w", err)
	}

	p := &process{cmd: cmd, pid: cmd.Process.Pid, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		s.log.Debug("decoder exited", zap.Int("pid", p.pid), zap.Error(err))
		close(p.done)
	}()

	s.current = p
	s.log.Debug("decoder started", zap.Int("pid", p.pid), zap.String("track", path))
	return p, nil
}

// Pause suspends the decoder in place with SIGSTOP. The decoder keeps its
// buffer and position, so Resume continues where playback left off.
func (s *DecoderSupervisor) Pause(h Handle) error {
	p, ok := h.(*process)
	if !ok || p == nil || p.paused {
		return nil
	}
	if !p.Alive() {
		s.log.Debug("pause ignored, decoder already exited", zap.Int("pid", p.pid))
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGSTOP); err != nil {
		return fmt.Errorf("suspending decoder: %w", err)
	}
	p.paused = true
	return nil
}

// Resume continues a suspended decoder with SIGCONT.
func (s *DecoderSupervisor) Resume(h Handle) error {
	p, ok := h.(*process)
	if !ok || p == nil || !p.paused {
		return nil
	}
	if !p.Alive() {
		s.log.Debug("resume ignored, decoder already exited", zap.Int("pid", p.pid))
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGCONT); err != nil {
		return fmt.Errorf("resuming decoder: %w", err)
	}
	p.paused = false
	return nil
}

// Stop terminates the decoder: SIGTERM, a bounded wait, then SIGKILL. The
// supervisor forgets the handle on return even when signalling fails.
func (s *DecoderSupervisor) Stop(h Handle) error {
	p, ok := h.(*process)
	if !ok || p == nil {
		return nil
	}
	defer func() {
		if s.current == p {
			s.current = nil
		}
	}()

	if !p.Alive() {
		return nil
	}

	// A suspended process leaves SIGTERM pending until it is continued.
	if p.paused {
		p.cmd.Process.Signal(syscall.SIGCONT)
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		s.log.Debug("terminate signal failed", zap.Int("pid", p.pid), zap.Error(err))
	}
	if p.Wait(s.stopTimeout) {
		return nil
	}

	s.log.Warn("decoder ignored SIGTERM, killing", zap.Int("pid", p.pid))
	if err := p.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("killing decoder: %w", err)
	}
	p.Wait(time.Second)
	return nil
}
