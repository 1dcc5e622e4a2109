// Package workspace manages scratch directories used to stage video files
// around an ffmpeg invocation.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Manager creates uniquely named scratch directories under a root.
type Manager struct {
	root string
	log  zerolog.Logger
}

// NewManager returns a Manager rooted at root; an empty root uses the OS
// temp directory.
func NewManager(root string, log zerolog.Logger) *Manager {
	return &Manager{
		root: root,
		log:  log.With().Str("component", "workspace").Logger(),
	}
}

// Workspace is a scratch directory exclusively owned by one in-flight
// operation. It must never be shared or reused across requests.
type Workspace struct {
	dir string
	log zerolog.Logger
}

// Acquire creates a fresh scratch directory. The name is unique per call, so
// concurrent requests never collide.
func (m *Manager) Acquire() (*Workspace, error) {
	dir, err := os.MkdirTemp(m.root, "watermark-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir, log: m.log}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Path returns the path of name inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Cleanup removes the workspace recursively. Intended for defer: it runs on
// every exit path, and a removal failure is logged rather than returned so it
// can never mask the pipeline's own error.
func (w *Workspace) Cleanup() {
	if err := os.RemoveAll(w.dir); err != nil {
		w.log.Error().Err(err).Str("dir", w.dir).Msg("workspace cleanup failed")
	}
}
