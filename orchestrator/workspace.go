package orchestrator

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// ErrWorkspaceBusy is returned when another run already holds the workspace path.
var ErrWorkspaceBusy = errors.New("orchestrator: workspace already in use")

var (
	activeMu   sync.Mutex
	activeDirs = map[string]bool{}
)

// Workspace is the scratch directory of one run invocation. Intermediate
// files are named by slide number so concurrent slides never collide.
type Workspace struct {
	Dir string

	once sync.Once
}

// PrepareWorkspace claims dir exclusively, removes whatever a previous run
// left there and recreates it empty. Callers must Release it once the video
// is assembled or the run has failed.
func PrepareWorkspace(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace %s: %w", dir, err)
	}

	activeMu.Lock()
	if activeDirs[abs] {
		activeMu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceBusy, abs)
	}
	activeDirs[abs] = true
	activeMu.Unlock()

	ws := &Workspace{Dir: abs}
	if err := os.RemoveAll(abs); err != nil {
		ws.Release()
		return nil, fmt.Errorf("clear workspace: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		ws.Release()
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return ws, nil
}

// ImagePath is where slide n's composed PNG lives.
func (w *Workspace) ImagePath(n int) string {
	return filepath.Join(w.Dir, fmt.Sprintf("slide_%d.png", n))
}

// AudioPath is where slide n's narration lives.
func (w *Workspace) AudioPath(n int) string {
	return filepath.Join(w.Dir, fmt.Sprintf("slide_%d.mp3", n))
}

// Release deletes the workspace directory and gives up the claim on its
// path. Slides cached by the orchestrator are written again on the next run.
func (w *Workspace) Release() {
	w.once.Do(func() {
		if err := os.RemoveAll(w.Dir); err != nil {
			log.Printf("⚠️  [run] failed to remove workspace %s: %v", w.Dir, err)
		}
		activeMu.Lock()
		delete(activeDirs, w.Dir)
		activeMu.Unlock()
	})
}
