package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blockgate/blockgate/internal/bridge"
	"github.com/blockgate/blockgate/internal/protocol"
)

// processFolder creates the server-side folder, scans one level of its
// contents, and prepends the children to the queue depth-first: the
// folder's files first, then its subfolders, all ahead of whatever was
// queued before.
func (e *Engine) processFolder(item QueueItem) {
	e.log.Infof("Processing folder: %s (%s)", item.Name, item.ID)

	fi, err := os.Stat(item.Path)
	if err != nil || !fi.IsDir() {
		e.failFolder(item, fmt.Errorf("Folder not found or is not a directory: %s", item.Path))
		return
	}

	e.mu.Lock()
	if e.st.isTerminal(item.ID) {
		e.st.processing = ""
		delete(e.st.pendingFolders, item.Path)
		e.mu.Unlock()
		return
	}
	if _, dup := e.st.initializedFolders[item.ID]; dup {
		e.log.Warnf("Folder %s already initialized, skipping duplicate init", item.ID)
		e.mu.Unlock()
		return
	}
	e.st.initializedFolders[item.ID] = struct{}{}

	parentID := item.ParentID
	if mapped, ok := e.st.folderIDMap[item.ParentID]; ok {
		parentID = mapped
	}
	shareID := e.st.shareID

	if _, dup := e.st.folderResponseExpected[item.ID]; dup {
		e.log.Warnf("Folder creation request already outstanding for %s", item.ID)
		e.mu.Unlock()
		return
	}
	e.st.folderResponseExpected[item.ID] = struct{}{}
	e.st.requestDeadlines[item.ID] = time.Now()
	e.mu.Unlock()

	e.emitProgress(item, 0.0, "active", "Scanning folder contents...", nil, nil, nil)

	resp, err := e.corr.AwaitFolderCreated(context.Background(), item.ID, e.cfg.NegotiationTimeout(), func() {
		e.bus.Publish(protocol.MsgCreateFolder, protocol.CreateFolder{
			ID:       item.ID,
			Name:     item.Name,
			Path:     item.Path,
			ParentID: parentID,
			ShareID:  shareID,
		})
	})

	e.mu.Lock()
	delete(e.st.folderResponseExpected, item.ID)
	delete(e.st.requestDeadlines, item.ID)
	e.mu.Unlock()

	if err != nil {
		if errors.Is(err, bridge.ErrSlotTimeout) {
			err = errors.New("Timeout waiting for folder creation")
		}
		e.failFolder(item, err)
		return
	}

	entries, err := os.ReadDir(item.Path)
	if err != nil {
		e.failFolder(item, fmt.Errorf("Failed to scan folder: %s", err))
		return
	}

	var files, subfolders []QueueItem
	for _, entry := range entries {
		child := QueueItem{
			ID:       GenerateID(),
			Path:     filepath.Join(item.Path, entry.Name()),
			Name:     entry.Name(),
			ParentID: resp.FolderID,
			Depth:    item.Depth + 1,
		}
		if entry.IsDir() {
			child.Kind = ItemFolder
			subfolders = append(subfolders, child)
		} else if entry.Type().IsRegular() {
			child.Kind = ItemFile
			files = append(files, child)
		}
	}

	e.emitProgress(item, 0.3, "active",
		fmt.Sprintf("Found %d files and %d subfolders", len(files), len(subfolders)), nil, nil, nil)

	e.mu.Lock()
	e.st.folderIDMap[item.Path] = resp.FolderID

	// Depth-first: this folder's files run next, then its subfolders,
	// then everything that was already queued.
	children := append(files, subfolders...)
	e.st.items = append(children, e.st.items...)

	if _, dup := e.st.finalizeNotified[item.ID]; dup {
		if e.st.processing == item.ID {
			e.st.processing = ""
		}
		e.mu.Unlock()
		return
	}
	e.st.finalizeNotified[item.ID] = struct{}{}
	e.st.completed[item.ID] = struct{}{}
	e.st.clearTracking(item.ID)
	delete(e.st.pendingFolders, item.Path)
	if e.st.processing == item.ID {
		e.st.processing = ""
	}
	e.mu.Unlock()

	e.emitProgress(item, 1.0, "completed", "Folder processing complete, starting contents...", nil, nil, nil)
	e.bus.Publish(protocol.MsgTransferComplete, protocol.TransferComplete{
		ID:      item.ID,
		Name:    item.Name,
		FileID:  resp.FolderID,
		Status:  "completed",
		Message: "Folder created successfully",
	})
}
