package transfer

import (
	"time"

	"github.com/blockgate/blockgate/internal/protocol"
	"github.com/blockgate/blockgate/internal/version"
)

// QueueStatus is the lightweight queue snapshot.
type QueueStatus struct {
	QueueSize      int      `json:"queue_size"`
	Processing     string   `json:"processing,omitempty"`
	Completed      int      `json:"completed"`
	Failed         int      `json:"failed"`
	Paused         bool     `json:"paused"`
	ElapsedSecs    int64    `json:"elapsed_secs"`
	PendingFolders []string `json:"pending_folders"`
}

// QueueItemStatus describes one queued item in the detailed snapshot.
type QueueItemStatus struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Depth    int    `json:"depth"`
	ParentID string `json:"parent_id"`
}

// DetailedQueueStatus is the diagnostic snapshot including tracking-set
// sizes and the folder-id mappings.
type DetailedQueueStatus struct {
	Items          []QueueItemStatus `json:"items"`
	Processing     string            `json:"processing,omitempty"`
	PendingFolders []string          `json:"pending_folders"`
	FolderMappings map[string]string `json:"folder_mappings"`
	Completed      int               `json:"completed"`
	Failed         int               `json:"failed"`
	Paused         bool              `json:"paused"`

	InitializedFiles   int `json:"initialized_files"`
	InitializedFolders int `json:"initialized_folders"`
	FinalizeNotified   int `json:"finalize_notified"`
	BlockNotified      int `json:"block_notified"`
	PendingRequests    int `json:"pending_requests"`
}

// HealthStatus is the liveness report.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// CleanupResult reports what CleanupStuckTransfers discarded.
type CleanupResult struct {
	CleanedCount int      `json:"cleaned_count"`
	CleanedIDs   []string `json:"cleaned_ids"`
}

// RepairResult reports what RepairPendingFolders released.
type RepairResult struct {
	RepairedCount int `json:"repaired_count"`
}

// Status returns the lightweight queue snapshot.
func (e *Engine) Status() QueueStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending := make([]string, 0, len(e.st.pendingFolders))
	for path := range e.st.pendingFolders {
		pending = append(pending, path)
	}

	return QueueStatus{
		QueueSize:      len(e.st.items),
		Processing:     e.st.processing,
		Completed:      len(e.st.completed),
		Failed:         len(e.st.failed),
		Paused:         e.st.paused,
		ElapsedSecs:    int64(time.Since(e.st.startTime).Seconds()),
		PendingFolders: pending,
	}
}

// DetailedStatus returns the diagnostic snapshot.
func (e *Engine) DetailedStatus() DetailedQueueStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := make([]QueueItemStatus, 0, len(e.st.items))
	for _, item := range e.st.items {
		items = append(items, QueueItemStatus{
			ID:       item.ID,
			Type:     string(item.Kind),
			Name:     item.Name,
			Depth:    item.Depth,
			ParentID: item.ParentID,
		})
	}

	pending := make([]string, 0, len(e.st.pendingFolders))
	for path := range e.st.pendingFolders {
		pending = append(pending, path)
	}
	mappings := make(map[string]string, len(e.st.folderIDMap))
	for path, id := range e.st.folderIDMap {
		mappings[path] = id
	}

	return DetailedQueueStatus{
		Items:              items,
		Processing:         e.st.processing,
		PendingFolders:     pending,
		FolderMappings:     mappings,
		Completed:          len(e.st.completed),
		Failed:             len(e.st.failed),
		Paused:             e.st.paused,
		InitializedFiles:   len(e.st.initializedFiles),
		InitializedFolders: len(e.st.initializedFolders),
		FinalizeNotified:   len(e.st.finalizeNotified),
		BlockNotified:      len(e.st.blockNotified),
		PendingRequests:    len(e.st.requestDeadlines),
	}
}

// Health reports liveness.
func (e *Engine) Health() HealthStatus {
	return HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().Unix(),
		Version:   version.Version,
	}
}

// CleanupStuckTransfers force-fails every transfer whose external request
// has been outstanding longer than the staleness threshold. Each victim is
// resolved with a timeout, marked failed, announced, and its pending
// folder path (if any) is released so gated children can run.
func (e *Engine) CleanupStuckTransfers() CleanupResult {
	threshold := e.cfg.StalenessThreshold()
	now := time.Now()

	e.mu.Lock()
	var stuck []string
	for id, started := range e.st.requestDeadlines {
		if now.Sub(started) > threshold {
			stuck = append(stuck, id)
		}
	}

	type victim struct {
		id   string
		name string
	}
	victims := make([]victim, 0, len(stuck))
	for _, id := range stuck {
		e.log.Warnf("Cleaning up stuck transfer: %s", id)
		if path, ok := e.st.itemPath(id); ok {
			delete(e.st.pendingFolders, path)
		}
		e.st.failed[id] = "Request timed out"
		name := e.st.itemName(id)
		e.st.clearTracking(id)
		if e.st.processing == id {
			e.st.processing = ""
		}
		e.st.removeItem(id)
		victims = append(victims, victim{id: id, name: name})
	}
	idle := e.st.processing == "" && !e.st.paused && len(e.st.items) > 0
	e.mu.Unlock()

	ids := make([]string, 0, len(victims))
	for _, v := range victims {
		e.corr.FailAny(v.id, errRequestTimedOut)
		e.bus.Publish(protocol.MsgTransferComplete, protocol.TransferComplete{
			ID:      v.id,
			Name:    v.name,
			Status:  "failed",
			Message: "Request timed out",
		})
		ids = append(ids, v.id)
	}

	if idle {
		go e.run()
	}

	return CleanupResult{CleanedCount: len(ids), CleanedIDs: ids}
}

// RepairPendingFolders drops pending-folder entries that no queued or
// active folder item can ever resolve. Such orphans gate files forever;
// releasing them lets the scheduler make progress again.
func (e *Engine) RepairPendingFolders() RepairResult {
	e.mu.Lock()

	live := make(map[string]struct{})
	if e.st.processing != "" && e.st.activeItem.Kind == ItemFolder {
		live[e.st.activeItem.Path] = struct{}{}
	}
	for _, item := range e.st.items {
		if item.Kind == ItemFolder {
			live[item.Path] = struct{}{}
		}
	}

	repaired := 0
	for path := range e.st.pendingFolders {
		if _, ok := live[path]; !ok {
			e.log.Warnf("Releasing orphaned pending folder: %s", path)
			delete(e.st.pendingFolders, path)
			repaired++
		}
	}
	idle := repaired > 0 && e.st.processing == "" && !e.st.paused && len(e.st.items) > 0
	e.mu.Unlock()

	if idle {
		go e.run()
	}

	return RepairResult{RepairedCount: repaired}
}
