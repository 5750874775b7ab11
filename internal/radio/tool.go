package radio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/radio-channelizer/internal/fault"
	"github.com/roman-kulish/radio-channelizer/internal/iq"
)

const (
	readBufferSize = 1 << 20
	waitDelay      = time.Second
)

// ErrNotConfigured is returned by ReadBurst before Configure succeeded
var ErrNotConfigured = errors.New("radio is not configured")

// Handler describes one streaming tool: how to build its command line and
// how to decode what it writes to stdout
type Handler interface {
	Device() string
	Limits() Limits
	Format() Format
	Args(s Settings) ([]string, error)
}

// WithLogger sets the logger for the tool radio
func WithLogger(logger *slog.Logger) func(r *ToolRadio) {
	return func(r *ToolRadio) {
		r.logger = logger.With(slog.String("device", r.handler.Device()))
	}
}

// ToolRadio is a Radio backed by a vendor streaming tool that writes raw
// interleaved samples to stdout. The child process is started on the first
// read after Configure and is torn down on any read failure, so the next read
// starts a fresh one.
type ToolRadio struct {
	binPath string
	handler Handler
	logger  *slog.Logger

	mu   sync.Mutex
	args []string
	proc *process
	raw  []byte
}

// process owns one running child. It never leaves this package.
type process struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdout *bufio.Reader
	stderr sync.WaitGroup
}

// NewToolRadio creates a tool radio running binPath with a discard logger
func NewToolRadio(binPath string, h Handler, options ...func(r *ToolRadio)) *ToolRadio {
	r := ToolRadio{
		binPath: binPath,
		handler: h,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Configure validates the settings and prepares the tool arguments. A running
// process is stopped so the next read picks up the new tuning.
func (r *ToolRadio) Configure(s Settings) error {
	if err := r.handler.Limits().Check(r.handler.Device(), s); err != nil {
		return err
	}

	args, err := r.handler.Args(s)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.stop()
	r.args = args

	r.logger.Info("configured", slog.String("settings", s.String()))
	return nil
}

// ReadBurst blocks until buf is filled from the tool's stdout
func (r *ToolRadio) ReadBurst(ctx context.Context, buf []iq.Sample) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.args == nil {
		return 0, ErrNotConfigured
	}

	if r.proc == nil {
		if err := r.start(ctx); err != nil {
			return 0, fault.Transient(err)
		}
	}

	format := r.handler.Format()
	need := len(buf) * format.Size()
	if cap(r.raw) < need {
		r.raw = make([]byte, need)
	}
	raw := r.raw[:need]

	if _, err := io.ReadFull(r.proc.stdout, raw); err != nil {
		r.stop()
		return 0, fault.Transient(fmt.Errorf("reading %s stream: %w", r.handler.Device(), err))
	}

	return format.Decode(buf, raw)
}

// MaxBandwidth returns the widest analog bandwidth the hardware supports
func (r *ToolRadio) MaxBandwidth() float64 {
	return r.handler.Limits().MaxBandwidth
}

// Device returns the device type
func (r *ToolRadio) Device() string {
	return r.handler.Device()
}

// Close stops the tool if it is running
func (r *ToolRadio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stop()
	return nil
}

// start launches the tool. Every resource acquired here is released before an
// error is returned.
func (r *ToolRadio) start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, r.binPath, r.args...)
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("error creating stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("error creating stderr pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("error starting %s: %w", r.binPath, err)
	}

	p := process{
		cmd:    cmd,
		cancel: cancel,
		stdout: bufio.NewReaderSize(stdout, readBufferSize),
	}

	p.stderr.Add(1)
	go r.handleStderr(stderr, &p.stderr)

	r.proc = &p
	r.logger.Info("stream started", slog.String("cmd", r.binPath+" "+strings.Join(r.args, " ")))
	return nil
}

// stop kills and reaps the running tool, if any
func (r *ToolRadio) stop() {
	if r.proc == nil {
		return
	}

	p := r.proc
	r.proc = nil

	// stderr is drained before Wait closes the pipe. A descendant holding the
	// pipe open only delays this by waitDelay.
	p.cancel()
	drained := make(chan struct{})
	go func() {
		p.stderr.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(waitDelay):
	}

	if err := p.cmd.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Debug("stream exited", slog.String("error", err.Error()))
	}
	<-drained

	r.logger.Info("stream stopped")
}

// handleStderr logs what the tool prints on stderr
func (r *ToolRadio) handleStderr(stderr io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		r.logger.Warn(fmt.Sprintf("%s >> %s", r.handler.Device(), line))
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn(fmt.Sprintf("error reading stderr: %s", err.Error()))
	}
}
