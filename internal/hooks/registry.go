package hooks

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joestump/hookline/internal/templates"
)

// Registry holds the live workspaces of this process, keyed by id. Nothing is
// persisted: a restart discards every workspace.
type Registry struct {
	mu  sync.RWMutex
	all map[string]*Workspace
	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{all: make(map[string]*Workspace), now: time.Now}
}

// Open creates a workspace for owner with the given templates.
func (r *Registry) Open(owner string, set templates.Set) *Workspace {
	ws := newWorkspace(uuid.NewString(), owner, set, r.now)
	r.mu.Lock()
	r.all[ws.ID] = ws
	r.mu.Unlock()
	return ws
}

func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.all[id]
	return ws, ok
}

// Drop discards the workspace and its results.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	delete(r.all, id)
	r.mu.Unlock()
}

// Len returns the number of open workspaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

// Sweep drops workspaces unused for longer than idle and returns how many it
// dropped. Sessions expire after their lifetime without a logout, so passing
// the session lifetime discards the results of every ended session. A
// workspace with a generation in flight is kept.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for id, ws := range r.all {
		if ws.LastUsed().Before(cutoff) && !ws.busy() {
			delete(r.all, id)
			dropped++
		}
	}
	return dropped
}
