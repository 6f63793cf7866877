package transfer

import (
	"strings"
	"time"
)

// transferState is the single shared state object. Every field is guarded
// by Engine.mu; no method here takes the lock itself.
type transferState struct {
	items      []QueueItem // FIFO queue, head-of-line priority
	processing string      // id of the item being processed, "" when idle
	activeItem QueueItem   // copy of the item currently in the active slot

	completed map[string]struct{}
	failed    map[string]string // id -> failure reason

	folderIDMap    map[string]string   // local path -> server folder id, write-once
	pendingFolders map[string]struct{} // folder paths requested but not yet confirmed

	paused    bool
	startTime time.Time
	shareID   string // session anchor from the first selection

	// Idempotency sets. Each guards one side-effecting emission; all
	// entries for an id are cleared together when it reaches a terminal
	// state.
	initializedFiles   map[string]struct{}
	initializedFolders map[string]struct{}
	finalizeNotified   map[string]struct{} // finalize requests / folder completions sent
	blockNotified      map[string]struct{} // "fileID:blockID:index" block completions sent

	// Duplicate-reply guards for the inbound channel.
	urlResponseExpected    map[string]struct{}
	folderResponseExpected map[string]struct{}

	// Outstanding external requests, for the staleness sweep.
	requestDeadlines map[string]time.Time
}

func newTransferState() transferState {
	return transferState{
		items:                  make([]QueueItem, 0),
		completed:              make(map[string]struct{}),
		failed:                 make(map[string]string),
		folderIDMap:            make(map[string]string),
		pendingFolders:         make(map[string]struct{}),
		startTime:              time.Now(),
		initializedFiles:       make(map[string]struct{}),
		initializedFolders:     make(map[string]struct{}),
		finalizeNotified:       make(map[string]struct{}),
		blockNotified:          make(map[string]struct{}),
		urlResponseExpected:    make(map[string]struct{}),
		folderResponseExpected: make(map[string]struct{}),
		requestDeadlines:       make(map[string]time.Time),
	}
}

// isTerminal reports whether id already completed or failed.
func (s *transferState) isTerminal(id string) bool {
	if _, ok := s.completed[id]; ok {
		return true
	}
	_, ok := s.failed[id]
	return ok
}

// clearTracking drops every idempotency and correlation guard for id.
// Called exactly when id transitions to a terminal state (or is cancelled).
func (s *transferState) clearTracking(id string) {
	delete(s.initializedFiles, id)
	delete(s.initializedFolders, id)
	delete(s.finalizeNotified, id)
	delete(s.urlResponseExpected, id)
	delete(s.folderResponseExpected, id)
	delete(s.requestDeadlines, id)
}

// clearBlockTracking drops block-completion guards for a server file id.
func (s *transferState) clearBlockTracking(fileID string) {
	prefix := fileID + ":"
	for key := range s.blockNotified {
		if strings.HasPrefix(key, prefix) {
			delete(s.blockNotified, key)
		}
	}
}

// itemName resolves a display name for id, preferring the active slot,
// then the queue.
func (s *transferState) itemName(id string) string {
	if s.processing == id || s.activeItem.ID == id {
		if s.activeItem.ID == id {
			return s.activeItem.Name
		}
	}
	for _, item := range s.items {
		if item.ID == id {
			return item.Name
		}
	}
	return "Unknown"
}

// itemPath resolves the source path for id, used by the stuck sweep to
// release pending-folder entries.
func (s *transferState) itemPath(id string) (string, bool) {
	if s.activeItem.ID == id {
		return s.activeItem.Path, true
	}
	for _, item := range s.items {
		if item.ID == id {
			return item.Path, true
		}
	}
	return "", false
}

// removeItem deletes the queued item with the given id, preserving the
// relative order of the rest. Returns true when found.
func (s *transferState) removeItem(id string) bool {
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}
