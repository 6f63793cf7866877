package transfer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blockgate/blockgate/internal/bridge"
	"github.com/blockgate/blockgate/internal/config"
	"github.com/blockgate/blockgate/internal/events"
	"github.com/blockgate/blockgate/internal/logging"
	"github.com/blockgate/blockgate/internal/protocol"
	"github.com/blockgate/blockgate/internal/uploader"
)

// errRequestTimedOut is the synthetic failure used when the staleness
// sweep gives up on an outstanding external request.
var errRequestTimedOut = errors.New("Request timed out")

// Engine is the transfer engine. It owns the guarded state, the reply
// correlator and the outbound bus, and serializes all item processing
// through a single active slot.
type Engine struct {
	mu sync.Mutex
	st transferState

	cfg  *config.Config
	bus  *events.Bus
	corr *bridge.Correlator
	up   *uploader.Uploader
	log  *logging.Logger
}

// New creates an Engine. The bus is the outbound channel to the
// orchestration service; inbound replies are delivered through the
// Handle* methods.
func New(cfg *config.Config, bus *events.Bus, log *logging.Logger) *Engine {
	return &Engine{
		st:   newTransferState(),
		cfg:  cfg,
		bus:  bus,
		corr: bridge.New(log),
		up: uploader.New(log,
			uploader.WithMaxRetries(cfg.Upload.MaxRetries),
			uploader.WithRetryUnit(cfg.RetryUnit()),
			uploader.WithTimeouts(cfg.BlockTimeout(), cfg.ThumbnailTimeout())),
		log: log,
	}
}

// SelectFiles validates and enqueues file paths for upload. Invalid paths
// produce a transfer-error message and are skipped; valid ones are queued.
func (e *Engine) SelectFiles(paths []string, shareID, parentID string) {
	items := make([]QueueItem, 0, len(paths))
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			e.bus.Publish(protocol.MsgTransferError, protocol.TransferError{
				Message: fmt.Sprintf("Invalid file path: %s", path),
			})
			continue
		}
		items = append(items, QueueItem{
			Kind:     ItemFile,
			ID:       GenerateID(),
			Path:     path,
			Name:     filepath.Base(path),
			ParentID: parentID,
			Depth:    0,
		})
	}
	e.Enqueue(items, shareID)
}

// SelectFolders validates and enqueues folder paths for upload.
func (e *Engine) SelectFolders(paths []string, shareID, parentID string) {
	items := make([]QueueItem, 0, len(paths))
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil || !fi.IsDir() {
			e.bus.Publish(protocol.MsgTransferError, protocol.TransferError{
				Message: fmt.Sprintf("Invalid folder path: %s", path),
			})
			continue
		}
		items = append(items, QueueItem{
			Kind:     ItemFolder,
			ID:       GenerateID(),
			Path:     path,
			Name:     filepath.Base(path),
			ParentID: parentID,
			Depth:    0,
		})
	}
	e.Enqueue(items, shareID)
}

// Enqueue appends items to the queue, recording the session anchor, and
// starts processing when the engine is idle and not paused.
func (e *Engine) Enqueue(items []QueueItem, shareID string) {
	e.mu.Lock()
	if shareID != "" {
		e.st.shareID = shareID
	}
	e.st.items = append(e.st.items, items...)
	start := e.st.processing == "" && !e.st.paused
	e.mu.Unlock()

	if start {
		go e.run()
	}
}

// Pause stops new dequeues without disturbing in-flight work. The active
// block loop notices the pause at its next iteration.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.st.paused = true
	e.mu.Unlock()
}

// Resume restarts processing if the engine is idle. A non-empty shareID
// replaces the stored session anchor for subsequent requests.
func (e *Engine) Resume(shareID string) {
	e.mu.Lock()
	e.st.paused = false
	if shareID != "" {
		e.st.shareID = shareID
	}
	start := e.st.processing == "" && len(e.st.items) > 0
	e.mu.Unlock()

	if start {
		go e.run()
	}
}

// CancelTransfer cancels one item by id, whether queued or active. The
// item is marked failed with a cancellation reason and all its tracking
// state is cleared. An active item stops at its next cooperative check.
func (e *Engine) CancelTransfer(id string) {
	e.mu.Lock()
	active := e.st.processing == id
	if active {
		e.st.processing = ""
	} else {
		e.st.removeItem(id)
	}
	e.st.failed[id] = "Cancelled by user"
	e.st.clearTracking(id)
	e.mu.Unlock()

	if active {
		// Wake a waiter blocked on negotiation so the drain loop can
		// move on without waiting out the reply timeout.
		e.corr.FailAny(id, errors.New("Cancelled by user"))
	}
}

// CancelAll cancels the active item and every queued item.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	activeID := e.st.processing
	if activeID != "" {
		e.st.processing = ""
		e.st.failed[activeID] = "Cancelled by user"
		e.st.clearTracking(activeID)
	}

	for _, item := range e.st.items {
		e.st.failed[item.ID] = "Cancelled by user"
		e.st.clearTracking(item.ID)
	}
	e.st.items = e.st.items[:0]
	e.st.pendingFolders = make(map[string]struct{})
	e.st.blockNotified = make(map[string]struct{})
	e.mu.Unlock()

	if activeID != "" {
		e.corr.FailAny(activeID, errors.New("Cancelled by user"))
	}
}

// run drains the queue until it is empty, paused, or no ready item
// exists. The original expressed this as tail recursion; here it is an
// explicit loop owned by whichever goroutine observed the idle engine.
func (e *Engine) run() {
	for {
		item, ok := e.dequeueNext()
		if !ok {
			return
		}

		switch item.Kind {
		case ItemFolder:
			e.processFolder(item)
		case ItemFile:
			e.processFile(item)
		default:
			e.log.Warn().Str("kind", string(item.Kind)).Msg("unknown item kind")
			e.mu.Lock()
			e.st.processing = ""
			e.mu.Unlock()
		}
	}
}

// dequeueNext picks the next ready item and claims the active slot.
//
// Ordering rules: a folder at the head is always taken; a file at the
// head is taken only when its parent directory is not pending server-side
// creation. Otherwise the queue is scanned for the first item that is
// either a folder or a file with a non-pending parent. Every dequeued
// folder is recorded in pendingFolders before processing begins so its
// children cannot race the creation reply.
func (e *Engine) dequeueNext() (QueueItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.paused || e.st.processing != "" {
		return QueueItem{}, false
	}

	e.sweepStaleRequestsLocked()

	if len(e.st.items) == 0 {
		return QueueItem{}, false
	}

	head := e.st.items[0]
	if head.Kind == ItemFolder {
		e.st.items = e.st.items[1:]
		return e.claimLocked(head), true
	}

	parent := filepath.Dir(head.Path)
	if _, pending := e.st.pendingFolders[parent]; !pending {
		e.st.items = e.st.items[1:]
		return e.claimLocked(head), true
	}

	e.log.Debugf("Skipping file because parent folder is still pending: %s", parent)

	for i, item := range e.st.items {
		if item.Kind == ItemFile {
			itemParent := filepath.Dir(item.Path)
			if _, pending := e.st.pendingFolders[itemParent]; pending {
				continue
			}
		}
		e.st.items = append(e.st.items[:i], e.st.items[i+1:]...)
		return e.claimLocked(item), true
	}

	// Everything ready is gated on pending folder creation; the next
	// trigger (reply, sweep, or repair) retries.
	return QueueItem{}, false
}

// claimLocked moves item into the active slot. Dequeued folders become
// pending immediately.
func (e *Engine) claimLocked(item QueueItem) QueueItem {
	if item.Kind == ItemFolder {
		e.st.pendingFolders[item.Path] = struct{}{}
	}
	e.st.processing = item.ID
	e.st.activeItem = item
	return item
}

// sweepStaleRequestsLocked resolves outstanding external requests older
// than the staleness threshold with a synthetic timeout, so one lost
// reply cannot starve the scheduler forever.
func (e *Engine) sweepStaleRequestsLocked() {
	now := time.Now()
	var stale []string
	for id, started := range e.st.requestDeadlines {
		if now.Sub(started) > e.cfg.StalenessThreshold() {
			e.log.Warnf("Detected hanging request for ID: %s, cleaning up", id)
			stale = append(stale, id)
		}
	}

	for _, id := range stale {
		e.corr.FailAny(id, errRequestTimedOut)
		delete(e.st.requestDeadlines, id)
		delete(e.st.urlResponseExpected, id)
		delete(e.st.folderResponseExpected, id)
	}
}

// emitProgress publishes a transfer-progress update.
func (e *Engine) emitProgress(item QueueItem, progress float64, status string, message string, speed *float64, remaining *int64, size *int64) {
	var msg *string
	if message != "" {
		msg = &message
	}
	e.bus.Publish(protocol.MsgTransferProgress, protocol.TransferProgress{
		ID:            item.ID,
		Name:          item.Name,
		ItemType:      string(item.Kind),
		Progress:      progress,
		Status:        status,
		Message:       msg,
		Speed:         speed,
		RemainingTime: remaining,
		Size:          size,
	})
}
