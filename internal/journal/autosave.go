package journal

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// An Autosaver coalesces rapid entry updates (editor keystrokes) into one
// write after a quiet period. Combined with the store's equality
// suppression, an autosave loop with no actual change performs no I/O.
type Autosaver struct {
	journal   *Journal
	debounced func(func())

	mu      sync.Mutex
	pending map[string]Patch
	passkey string
}

// NewAutosaver returns an Autosaver flushing after the given quiet period.
func NewAutosaver(j *Journal, wait time.Duration) *Autosaver {
	return &Autosaver{
		journal:   j,
		debounced: debounce.New(wait),
		pending:   map[string]Patch{},
	}
}

// Queue merges the patch into the pending set and (re)arms the flush timer.
func (a *Autosaver) Queue(id string, patch Patch, passkey string) {
	a.mu.Lock()
	merged := a.pending[id]
	if patch.Title != nil {
		merged.Title = patch.Title
	}
	if patch.Body != nil {
		merged.Body = patch.Body
	}
	if patch.Date != nil {
		merged.Date = patch.Date
	}
	a.pending[id] = merged
	a.passkey = passkey
	a.mu.Unlock()

	a.debounced(func() {
		if err := a.Flush(); err != nil {
			a.journal.log.WithError(err).Error("could not autosave journal entries")
		}
	})
}

// Flush applies all pending patches now. Called on foreground exit so no
// buffered keystrokes are lost. Returns the first update error.
func (a *Autosaver) Flush() error {
	a.mu.Lock()
	pending := a.pending
	passkey := a.passkey
	a.pending = map[string]Patch{}
	a.mu.Unlock()

	var first error
	for id, patch := range pending {
		if err := a.journal.UpdateEntry(id, patch, passkey); err != nil && first == nil {
			first = err
		}
	}
	return first
}
