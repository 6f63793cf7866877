// Package protocol defines the wire payloads exchanged with the
// orchestration service. Outbound messages are emitted on the event bus;
// inbound replies are correlated back to waiting transfers by item id.
package protocol

// Outbound message names.
const (
	MsgInitFileUpload    = "init-file-upload"
	MsgCreateFolder      = "create-folder"
	MsgBlockComplete     = "block-complete"
	MsgThumbnailComplete = "thumbnail-complete"
	MsgFinalizeTransfer  = "finalize-transfer"
	MsgTransferProgress  = "transfer-progress"
	MsgTransferComplete  = "transfer-complete"
	MsgTransferError     = "transfer-error"
)

// InitFileUpload asks the orchestration service to allocate upload
// destinations and a content key for a file.
type InitFileUpload struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Path           string  `json:"path"`
	ParentID       string  `json:"parent_id"`
	ShareID        string  `json:"share_id"`
	Size           int64   `json:"size"`
	Xattrs         *string `json:"xattrs,omitempty"`
	MimeType       string  `json:"mime_type"`
	ModifiedDate   *int64  `json:"modified_date"`
	NeedsThumbnail bool    `json:"needs_thumbnail"`
}

// CreateFolder asks the orchestration service to create a server-side folder.
type CreateFolder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	ParentID string `json:"parent_id"`
	ShareID  string `json:"share_id"`
}

// BlockComplete reports a successfully uploaded block. Hash covers the
// ciphertext that was uploaded, not the plaintext.
type BlockComplete struct {
	BlockID string `json:"block_id"`
	Hash    string `json:"hash"`
	Index   int    `json:"index"`
	FileID  string `json:"file_id"`
}

// ThumbnailComplete reports a successfully uploaded encrypted thumbnail.
type ThumbnailComplete struct {
	ThumbnailID string `json:"thumbnail_id"`
	Hash        string `json:"hash"`
	Size        int    `json:"size"`
}

// FinalizeTransfer asks the orchestration service to verify and commit the
// uploaded content. ContentHash covers the plaintext.
type FinalizeTransfer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentHash string `json:"content_hash"`
	FileID      string `json:"file_id"`
	ParentID    string `json:"parent_id"`
	RevisionID  string `json:"revision_id"`
}

// TransferProgress is a user-visible progress update for one item.
type TransferProgress struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ItemType      string  `json:"type"`
	Progress      float64 `json:"progress"`
	Status        string  `json:"status"`
	Message       *string `json:"message,omitempty"`
	Speed         *float64 `json:"speed,omitempty"`
	RemainingTime *int64  `json:"remaining_time,omitempty"`
	Size          *int64  `json:"size,omitempty"`
}

// TransferComplete is the terminal event for one item.
type TransferComplete struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FileID   string `json:"file_id,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	Status   string `json:"status"` // "completed" or "failed"
	Message  string `json:"message"`
}

// TransferError reports a selection-time validation failure.
type TransferError struct {
	Message string `json:"message"`
}

// PresignedURL is one pre-authorized block destination.
type PresignedURL struct {
	URL       string `json:"url"`
	BlockID   string `json:"block_id"`
	Index     int    `json:"index"`
	ExpiresIn int    `json:"expires_in"`
}

// ThumbnailInfo describes the optional thumbnail destination. The content
// key is the same key as the main file.
type ThumbnailInfo struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	ExpiresIn  int    `json:"expires_in"`
	ContentKey string `json:"content_key"`
}

// UploadURLsResponse answers an InitFileUpload request.
type UploadURLsResponse struct {
	FileID      string         `json:"file_id"`
	RevisionID  string         `json:"revision_id"`
	TotalBlocks int            `json:"total_blocks"`
	BlockSize   int64          `json:"block_size"`
	UploadURLs  []PresignedURL `json:"upload_urls"`
	ContentKey  string         `json:"content_key"` // base64, 32 raw bytes
	Thumbnail   *ThumbnailInfo `json:"thumbnail,omitempty"`
}

// FolderCreatedResponse answers a CreateFolder request.
type FolderCreatedResponse struct {
	FolderID string `json:"folder_id"`
}
