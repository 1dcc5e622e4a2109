// Package ffmpeg wraps invocation of the ffmpeg binary for frame compositing.
//
// Binary discovery order:
//  1. explicit FFMPEG_PATH override from configuration
//  2. vendored binaries under third_party/ffmpeg/<os>-<arch>/
//  3. ffmpeg on the process PATH (logged, since a missing system binary is a
//     common deployment failure)
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
)

// SpawnError means the process could not be started at all: missing binary,
// bad permissions. A deployment/configuration defect, not a media problem.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("ffmpeg could not be started (%s): %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError means the process ran and exited non-zero, usually because the
// input media is malformed. Stderr carries the ffmpeg diagnostics.
type ExitError struct {
	Path     string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("ffmpeg exited with status %d", e.ExitCode)
}

// candidate maps a {GOOS, GOARCH} pair to a vendored binary location relative
// to the working directory. Kept as an explicit table so the fallback chain is
// testable rather than buried in conditionals.
type candidate struct {
	goos   string
	goarch string
	path   string
}

var vendoredCandidates = []candidate{
	{"linux", "amd64", "third_party/ffmpeg/linux-amd64/ffmpeg"},
	{"linux", "arm64", "third_party/ffmpeg/linux-arm64/ffmpeg"},
	{"darwin", "amd64", "third_party/ffmpeg/darwin-amd64/ffmpeg"},
	{"darwin", "arm64", "third_party/ffmpeg/darwin-arm64/ffmpeg"},
	{"windows", "amd64", "third_party/ffmpeg/windows-amd64/ffmpeg.exe"},
}

// Runner executes ffmpeg and captures its diagnostic output.
type Runner struct {
	path string
	log  zerolog.Logger
}

// NewRunner resolves the ffmpeg binary and returns a Runner bound to it.
// overridePath, when non-empty, wins over every other resolution step.
func NewRunner(overridePath string, log zerolog.Logger) *Runner {
	logger := log.With().Str("component", "ffmpeg-runner").Logger()
	path := resolveBinary(overridePath, runtime.GOOS, runtime.GOARCH, logger)
	logger.Info().Str("path", path).Msg("ffmpeg binary resolved")
	return &Runner{path: path, log: logger}
}

// Path returns the resolved ffmpeg binary path.
func (r *Runner) Path() string { return r.path }

// Run invokes ffmpeg with the given arguments and blocks until it exits.
// Stderr is captured fully in memory; success requires exit status 0.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, r.path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return &SpawnError{Path: r.path, Err: err}
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.log.Error().
				Int("exit_code", exitErr.ExitCode()).
				Str("stderr", tail(stderr.String(), 2000)).
				Msg("ffmpeg failed")
			return &ExitError{
				Path:     r.path,
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}
		return &SpawnError{Path: r.path, Err: err}
	}

	return nil
}

// resolveBinary walks the discovery chain and returns the binary to use.
// The final PATH fallback returns "ffmpeg" unresolved so that a later spawn
// failure reports the real cause; LookPath success short-circuits that.
func resolveBinary(override, goos, goarch string, log zerolog.Logger) string {
	if override != "" {
		return override
	}

	for _, c := range vendoredCandidates {
		if c.goos != goos || c.goarch != goarch {
			continue
		}
		if info, err := os.Stat(c.path); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(c.path)
			if err != nil {
				return c.path
			}
			return abs
		}
	}

	log.Warn().
		Str("os", goos).
		Str("arch", goarch).
		Msg("no vendored ffmpeg binary found, falling back to PATH lookup")

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path
	}
	return "ffmpeg"
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
