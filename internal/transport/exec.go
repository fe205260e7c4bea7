package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"

	"deskbridge/internal/domain"
)

// hostExitGrace is how long Close waits for the host to exit after its stdin
// is closed before killing it.
const hostExitGrace = 2 * time.Second

// ExecDialer starts the companion host as a child process per Dial.
type ExecDialer struct {
	Path   string
	Args   []string
	Env    []string  // appended to the current environment
	Stderr io.Writer // host diagnostics; defaults to os.Stderr
}

// Dial starts the host and returns a port over its stdin/stdout.
func (d *ExecDialer) Dial(ctx context.Context) (domain.Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Path == "" {
		return nil, fmt.Errorf("native host path not configured")
	}

	cmd := exec.Command(d.Path, d.Args...)
	cmd.Env = append(os.Environ(), d.Env...)
	cmd.Stderr = d.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open host stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open host stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start native host %s: %w", d.Path, err)
	}
	log.Info().Str("path", d.Path).Int("pid", cmd.Process.Pid).Msg("Started native host")

	return NewStreamPort(stdout, stdin, func() error {
		_ = stdin.Close()
		// Wait closes stdout, so it only runs once the port is done reading.
		exited := make(chan error, 1)
		go func() { exited <- cmd.Wait() }()
		select {
		case err := <-exited:
			return ignoreExit(err)
		case <-time.After(hostExitGrace):
			_ = cmd.Process.Kill()
			return ignoreExit(<-exited)
		}
	}), nil
}

func ignoreExit(err error) error {
	if _, ok := err.(*exec.ExitError); ok {
		return nil
	}
	return err
}

// Compile-time assertion that ExecDialer implements domain.Dialer.
var _ domain.Dialer = (*ExecDialer)(nil)
