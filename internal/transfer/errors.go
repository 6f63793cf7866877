package transfer

import (
	"github.com/blockgate/blockgate/internal/protocol"
)

// failFile marks a file item failed, clears its tracking, and announces
// the failure with a progress update and a terminal completion message.
// The caller must NOT hold the engine lock.
func (e *Engine) failFile(item QueueItem, size *int64, err error) {
	e.log.Errorf("File transfer failed: %s (%s): %v", item.Name, item.ID, err)

	e.mu.Lock()
	if e.st.processing == item.ID {
		e.st.processing = ""
	}
	e.st.failed[item.ID] = err.Error()
	e.st.clearTracking(item.ID)
	e.mu.Unlock()

	reason := err.Error()
	e.emitProgress(item, 0, "failed", reason, nil, nil, size)
	e.bus.Publish(protocol.MsgTransferComplete, protocol.TransferComplete{
		ID:      item.ID,
		Name:    item.Name,
		Status:  "failed",
		Message: reason,
	})
}

// failFolder is the folder-side counterpart of failFile. It additionally
// releases the pending-folder entry so gated children are not stranded
// behind a folder that will never be created.
func (e *Engine) failFolder(item QueueItem, err error) {
	e.log.Errorf("Folder transfer failed: %s (%s): %v", item.Name, item.ID, err)

	e.mu.Lock()
	if e.st.processing == item.ID {
		e.st.processing = ""
	}
	e.st.failed[item.ID] = err.Error()
	e.st.clearTracking(item.ID)
	delete(e.st.pendingFolders, item.Path)
	e.mu.Unlock()

	reason := err.Error()
	e.emitProgress(item, 0, "failed", reason, nil, nil, nil)
	e.bus.Publish(protocol.MsgTransferComplete, protocol.TransferComplete{
		ID:      item.ID,
		Name:    item.Name,
		Status:  "failed",
		Message: reason,
	})
}
