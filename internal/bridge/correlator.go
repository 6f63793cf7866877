// Package bridge turns the one-way inbound message stream from the
// orchestration service into awaitable calls. A single-use reply slot is
// registered per item id before the outbound request is emitted; whichever
// arrives first - a success payload, an error payload, or a synthetic
// timeout from the staleness sweep - resolves the slot exactly once.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/blockgate/blockgate/internal/logging"
	"github.com/blockgate/blockgate/internal/protocol"
)

// ErrSlotTimeout is returned when no reply arrives within the await window.
var ErrSlotTimeout = errors.New("reply slot timed out")

type result[T any] struct {
	value T
	err   error
}

// slotMap holds single-use reply slots keyed by item id. Each slot is a
// buffered channel of capacity 1 so a resolve never blocks; removing the
// slot from the map before sending makes resolution at-most-once.
type slotMap[T any] struct {
	mu      sync.Mutex
	pending map[string]chan result[T]
}

func newSlotMap[T any]() *slotMap[T] {
	return &slotMap[T]{pending: make(map[string]chan result[T])}
}

func (s *slotMap[T]) register(id string) <-chan result[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan result[T], 1)
	s.pending[id] = ch
	return ch
}

func (s *slotMap[T]) take(id string) (chan result[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	return ch, ok
}

func (s *slotMap[T]) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// Correlator owns the reply slots for both negotiation kinds.
type Correlator struct {
	uploads *slotMap[protocol.UploadURLsResponse]
	folders *slotMap[protocol.FolderCreatedResponse]
	log     *logging.Logger
}

// New creates a Correlator.
func New(log *logging.Logger) *Correlator {
	return &Correlator{
		uploads: newSlotMap[protocol.UploadURLsResponse](),
		folders: newSlotMap[protocol.FolderCreatedResponse](),
		log:     log,
	}
}

// AwaitUploadURLs registers a reply slot for id, runs emit (which must send
// the outbound request), and waits for the reply. The slot exists before
// emit runs so a reply racing the request cannot be lost.
func (c *Correlator) AwaitUploadURLs(ctx context.Context, id string, timeout time.Duration, emit func()) (protocol.UploadURLsResponse, error) {
	ch := c.uploads.register(id)
	emit()
	return awaitSlot(ctx, ch, timeout, func() { c.uploads.remove(id) })
}

// AwaitFolderCreated registers a reply slot for id, runs emit, and waits
// for the folder-creation reply.
func (c *Correlator) AwaitFolderCreated(ctx context.Context, id string, timeout time.Duration, emit func()) (protocol.FolderCreatedResponse, error) {
	ch := c.folders.register(id)
	emit()
	return awaitSlot(ctx, ch, timeout, func() { c.folders.remove(id) })
}

func awaitSlot[T any](ctx context.Context, ch <-chan result[T], timeout time.Duration, cleanup func()) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case r := <-ch:
		return r.value, r.err
	case <-timer.C:
		cleanup()
		return zero, ErrSlotTimeout
	case <-ctx.Done():
		cleanup()
		return zero, ctx.Err()
	}
}

// ResolveUploadURLs delivers a success payload to the waiting slot.
// Returns false when no slot is registered (late or duplicate reply); the
// caller is expected to drop the reply and clear residual tracking.
func (c *Correlator) ResolveUploadURLs(id string, resp protocol.UploadURLsResponse) bool {
	ch, ok := c.uploads.take(id)
	if !ok {
		c.log.Debug().Str("transfer_id", id).Msg("upload reply receiver gone")
		return false
	}
	ch <- result[protocol.UploadURLsResponse]{value: resp}
	return true
}

// FailUpload delivers an error to the waiting upload slot.
func (c *Correlator) FailUpload(id string, err error) bool {
	ch, ok := c.uploads.take(id)
	if !ok {
		c.log.Debug().Str("transfer_id", id).Msg("upload reply receiver gone")
		return false
	}
	ch <- result[protocol.UploadURLsResponse]{err: err}
	return true
}

// ResolveFolderCreated delivers a success payload to the waiting folder slot.
func (c *Correlator) ResolveFolderCreated(id string, resp protocol.FolderCreatedResponse) bool {
	ch, ok := c.folders.take(id)
	if !ok {
		c.log.Debug().Str("transfer_id", id).Msg("folder reply receiver gone")
		return false
	}
	ch <- result[protocol.FolderCreatedResponse]{value: resp}
	return true
}

// FailFolder delivers an error to the waiting folder slot.
func (c *Correlator) FailFolder(id string, err error) bool {
	ch, ok := c.folders.take(id)
	if !ok {
		c.log.Debug().Str("transfer_id", id).Msg("folder reply receiver gone")
		return false
	}
	ch <- result[protocol.FolderCreatedResponse]{err: err}
	return true
}

// FailAny resolves whichever slot kind is registered for id with err.
// Used by the staleness sweep, which does not know the request kind.
func (c *Correlator) FailAny(id string, err error) bool {
	resolved := false
	if ch, ok := c.uploads.take(id); ok {
		ch <- result[protocol.UploadURLsResponse]{err: err}
		resolved = true
	}
	if ch, ok := c.folders.take(id); ok {
		ch <- result[protocol.FolderCreatedResponse]{err: err}
		resolved = true
	}
	return resolved
}
