package protocol

// Inbound message names. Replies correlate back to a waiting transfer by
// id; commands drive the engine directly.
const (
	MsgUploadURLsReply    = "upload-urls-response"
	MsgUploadErrorReply   = "upload-error-response"
	MsgFolderCreatedReply = "folder-created-response"
	MsgFolderErrorReply   = "folder-error-response"
	MsgFinalizeReply      = "finalize-complete"

	MsgSelectFiles     = "select-files"
	MsgSelectFolders   = "select-folders"
	MsgPauseTransfers  = "pause-transfers"
	MsgResumeTransfers = "resume-transfers"
	MsgCancelTransfer  = "cancel-transfer"
	MsgCancelAll       = "cancel-all-transfers"

	MsgQueueStatus         = "queue-status"
	MsgDetailedQueueStatus = "detailed-queue-status"
	MsgHealthCheck         = "health-check"
	MsgCleanupStuck        = "cleanup-stuck-transfers"
	MsgRepairPending       = "repair-pending-folders"
)

// UploadURLsReply carries a successful InitFileUpload answer.
type UploadURLsReply struct {
	ID       string             `json:"id"`
	Response UploadURLsResponse `json:"response"`
}

// UploadErrorReply carries a failed InitFileUpload answer.
type UploadErrorReply struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// FolderCreatedReply carries a successful CreateFolder answer.
type FolderCreatedReply struct {
	ID       string                `json:"id"`
	Response FolderCreatedResponse `json:"response"`
}

// FolderErrorReply carries a failed CreateFolder answer.
type FolderErrorReply struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// FinalizeReply is the verification verdict for a FinalizeTransfer request.
type FinalizeReply struct {
	TransferID string `json:"transfer_id"`
	FileID     string `json:"file_id"`
	ParentID   string `json:"parent_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// SelectRequest enqueues file or folder paths for upload.
type SelectRequest struct {
	Paths    []string `json:"paths"`
	ShareID  string   `json:"share_id"`
	ParentID string   `json:"parent_id"`
}

// CancelRequest names the transfer to cancel.
type CancelRequest struct {
	ID string `json:"id"`
}

// ResumeRequest restarts processing under the given session.
type ResumeRequest struct {
	ShareID string `json:"share_id"`
}
