package transfer

import (
	"errors"
	"fmt"

	"github.com/blockgate/blockgate/internal/protocol"
)

// HandleUploadURLsResponse delivers an upload-URLs reply to the waiting
// transfer. Late or duplicate replies are dropped after clearing any
// residual tracking they would otherwise leak.
func (e *Engine) HandleUploadURLsResponse(id string, resp protocol.UploadURLsResponse) {
	if e.corr.ResolveUploadURLs(id, resp) {
		return
	}
	e.mu.Lock()
	delete(e.st.urlResponseExpected, id)
	delete(e.st.requestDeadlines, id)
	e.mu.Unlock()
}

// HandleUploadErrorResponse delivers an upload-negotiation error. When no
// waiter exists the failure is applied directly so the item does not hang.
func (e *Engine) HandleUploadErrorResponse(id string, message string) {
	err := errors.New(message)
	if e.corr.FailUpload(id, err) {
		return
	}

	e.mu.Lock()
	delete(e.st.urlResponseExpected, id)
	delete(e.st.requestDeadlines, id)
	item, found := e.lookupItemLocked(id)
	e.mu.Unlock()

	if found && item.Kind == ItemFile {
		e.failFile(item, nil, err)
		go e.run()
	}
}

// HandleFolderCreatedResponse delivers a folder-creation reply.
func (e *Engine) HandleFolderCreatedResponse(id string, resp protocol.FolderCreatedResponse) {
	if e.corr.ResolveFolderCreated(id, resp) {
		return
	}
	e.mu.Lock()
	delete(e.st.folderResponseExpected, id)
	delete(e.st.requestDeadlines, id)
	e.mu.Unlock()
}

// HandleFolderErrorResponse delivers a folder-creation error.
func (e *Engine) HandleFolderErrorResponse(id string, message string) {
	err := errors.New(message)
	if e.corr.FailFolder(id, err) {
		return
	}

	e.mu.Lock()
	delete(e.st.folderResponseExpected, id)
	delete(e.st.requestDeadlines, id)
	item, found := e.lookupItemLocked(id)
	e.mu.Unlock()

	if found && item.Kind == ItemFolder {
		e.failFolder(item, err)
		go e.run()
	}
}

// lookupItemLocked finds the item for id in the active slot or the queue.
func (e *Engine) lookupItemLocked(id string) (QueueItem, bool) {
	if e.st.activeItem.ID == id {
		return e.st.activeItem, true
	}
	for _, item := range e.st.items {
		if item.ID == id {
			return item, true
		}
	}
	return QueueItem{}, false
}

// FinalizeComplete is the verification verdict for a finalize-transfer
// request. It drives the file to its terminal state and releases the
// active slot, which is what lets the next queued item start.
func (e *Engine) FinalizeComplete(transferID, fileID, parentID string, success bool, errMsg string) {
	e.mu.Lock()
	if _, done := e.st.completed[transferID]; done {
		e.log.Warnf("Duplicate finalize notification for %s, ignoring", transferID)
		e.mu.Unlock()
		return
	}
	name := e.st.itemName(transferID)
	e.st.completed[transferID] = struct{}{}
	e.st.clearTracking(transferID)
	if fileID != "" {
		e.st.clearBlockTracking(fileID)
	}
	if e.st.processing == transferID {
		e.st.processing = ""
	}
	e.mu.Unlock()

	if success {
		e.log.Infof("Transfer %s finalized successfully", transferID)
		e.bus.Publish(protocol.MsgTransferComplete, protocol.TransferComplete{
			ID:       transferID,
			Name:     name,
			FileID:   fileID,
			ParentID: parentID,
			Status:   "completed",
			Message:  "Upload complete and verified",
		})
	} else {
		// Verification failure is still a terminal completion: the blocks
		// are uploaded and the server owns the verdict.
		e.log.Warnf("Transfer %s finalized with verification failure: %s", transferID, errMsg)
		e.bus.Publish(protocol.MsgTransferComplete, protocol.TransferComplete{
			ID:      transferID,
			Name:    name,
			Status:  "completed",
			Message: fmt.Sprintf("Upload complete, but verification failed: %s", errMsg),
		})
	}

	go e.run()
}
