package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/blockgate/blockgate/internal/bridge"
	"github.com/blockgate/blockgate/internal/crypto"
	"github.com/blockgate/blockgate/internal/fsmeta"
	"github.com/blockgate/blockgate/internal/protocol"
	"github.com/blockgate/blockgate/internal/thumbnail"
)

// processFile drives one file through the upload pipeline: validation,
// negotiation, optional thumbnail, the block loop, and the finalize
// request. The item stays in the active slot after finalize-transfer is
// emitted; only FinalizeComplete (or a failure) releases it.
func (e *Engine) processFile(item QueueItem) {
	e.log.Infof("Processing file: %s (%s)", item.Name, item.ID)

	fi, err := os.Stat(item.Path)
	if err != nil || !fi.Mode().IsRegular() {
		e.failFile(item, nil, fmt.Errorf("File not found or is not a file: %s", item.Path))
		return
	}
	size := fi.Size()
	if size == 0 {
		e.failFile(item, &size, fmt.Errorf("File is empty (0 bytes): %s", item.Path))
		return
	}

	e.mu.Lock()
	if e.st.isTerminal(item.ID) {
		// A stale re-dispatch of an item that already finished; let the
		// scheduler move on.
		e.st.processing = ""
		e.mu.Unlock()
		return
	}
	if _, dup := e.st.initializedFiles[item.ID]; dup {
		// Init already sent and still outstanding: re-enter the active
		// slot and wait for the external side rather than re-emitting.
		e.log.Warnf("File %s already initialized, skipping duplicate init", item.ID)
		e.mu.Unlock()
		return
	}
	e.st.initializedFiles[item.ID] = struct{}{}

	parentID := item.ParentID
	if mapped, ok := e.st.folderIDMap[item.ParentID]; ok {
		parentID = mapped
	}
	shareID := e.st.shareID

	if _, dup := e.st.urlResponseExpected[item.ID]; dup {
		e.log.Warnf("Upload URL request already outstanding for %s", item.ID)
		e.mu.Unlock()
		return
	}
	e.st.urlResponseExpected[item.ID] = struct{}{}
	e.st.requestDeadlines[item.ID] = time.Now()
	e.mu.Unlock()

	e.emitProgress(item, 0.0, "active", "Preparing upload...", nil, nil, &size)

	meta := fsmeta.Gather(item.Path, fi.ModTime())

	resp, err := e.corr.AwaitUploadURLs(context.Background(), item.ID, e.cfg.NegotiationTimeout(), func() {
		e.bus.Publish(protocol.MsgInitFileUpload, protocol.InitFileUpload{
			ID:             item.ID,
			Name:           item.Name,
			Path:           item.Path,
			ParentID:       parentID,
			ShareID:        shareID,
			Size:           size,
			Xattrs:         meta.Xattrs,
			MimeType:       meta.MimeType,
			ModifiedDate:   meta.ModifiedDate,
			NeedsThumbnail: fsmeta.NeedsThumbnail(meta.IsImage, size),
		})
	})

	e.mu.Lock()
	delete(e.st.urlResponseExpected, item.ID)
	delete(e.st.requestDeadlines, item.ID)
	e.mu.Unlock()

	if err != nil {
		if errors.Is(err, bridge.ErrSlotTimeout) {
			err = errors.New("Timeout waiting for presigned URLs")
		}
		e.failFile(item, &size, err)
		return
	}

	cipher, err := crypto.NewContentCipher(resp.ContentKey)
	if err != nil {
		e.failFile(item, &size, err)
		return
	}

	if resp.Thumbnail != nil {
		e.uploadThumbnail(item, size, cipher, resp.Thumbnail)
	}

	e.emitProgress(item, 0.05, "active",
		fmt.Sprintf("Starting upload of %d blocks...", resp.TotalBlocks), nil, nil, &size)

	if err := e.uploadBlocks(item, size, cipher, &resp); err != nil {
		if errors.Is(err, errHalted) {
			// Cancelled or paused mid-flight; the cancel path already
			// recorded the outcome.
			return
		}
		e.failFile(item, &size, err)
		return
	}
}

// errHalted signals a cooperative stop of the block loop (cancel/pause).
var errHalted = errors.New("transfer halted")

// uploadThumbnail generates, encrypts and uploads the preview image.
// Failures here never fail the file; the upload proceeds without a
// thumbnail.
func (e *Engine) uploadThumbnail(item QueueItem, size int64, cipher *crypto.ContentCipher, info *protocol.ThumbnailInfo) {
	e.emitProgress(item, 0.02, "active", "Generating thumbnail...", nil, nil, &size)

	thumb, err := thumbnail.Generate(item.Path)
	if err != nil {
		e.log.Warnf("Thumbnail generation failed for %s: %v", item.Name, err)
		return
	}

	encrypted := cipher.EncryptThumbnail(thumb)
	if err := e.up.PutThumbnail(context.Background(), info.URL, encrypted); err != nil {
		e.log.Warnf("Thumbnail upload failed for %s: %v", item.Name, err)
		return
	}

	e.bus.Publish(protocol.MsgThumbnailComplete, protocol.ThumbnailComplete{
		ThumbnailID: info.ID,
		Hash:        crypto.HashHex(encrypted),
		Size:        len(encrypted),
	})
}

// uploadBlocks runs the per-block loop and the finalize emission.
func (e *Engine) uploadBlocks(item QueueItem, size int64, cipher *crypto.ContentCipher, resp *protocol.UploadURLsResponse) error {
	f, err := os.Open(item.Path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	urls := make([]protocol.PresignedURL, len(resp.UploadURLs))
	copy(urls, resp.UploadURLs)
	sort.Slice(urls, func(i, j int) bool { return urls[i].Index < urls[j].Index })

	hasher := crypto.NewContentHasher()
	speed := newSpeedWindow(e.cfg.Engine.SpeedSamples)
	buf := make([]byte, resp.BlockSize)
	var uploaded int64

	for _, u := range urls {
		e.mu.Lock()
		halted := e.st.processing != item.ID || e.st.paused
		e.mu.Unlock()
		if halted {
			e.log.Infof("Halting block loop for %s", item.ID)
			return errHalted
		}

		offset := int64(u.Index) * resp.BlockSize
		remaining := size - offset
		if remaining <= 0 {
			return fmt.Errorf("block %d starts beyond end of file", u.Index)
		}
		n := resp.BlockSize
		if remaining < n {
			n = remaining
		}

		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek to block %d: %w", u.Index, err)
		}
		block := buf[:n]
		if _, err := io.ReadFull(f, block); err != nil {
			return fmt.Errorf("failed to read block %d: %w", u.Index, err)
		}
		hasher.Write(block)

		encrypted := cipher.EncryptBlock(u.Index, block)

		start := time.Now()
		if err := e.up.PutBlock(context.Background(), u.URL, encrypted); err != nil {
			return err
		}
		if elapsed := time.Since(start).Seconds(); elapsed > 0 {
			speed.Add(float64(len(encrypted)) / elapsed)
		}
		uploaded += n

		blockKey := fmt.Sprintf("%s:%s:%d", resp.FileID, u.BlockID, u.Index)
		e.mu.Lock()
		_, dup := e.st.blockNotified[blockKey]
		if !dup {
			e.st.blockNotified[blockKey] = struct{}{}
		}
		e.mu.Unlock()
		if !dup {
			e.bus.Publish(protocol.MsgBlockComplete, protocol.BlockComplete{
				BlockID: u.BlockID,
				Hash:    crypto.HashHex(encrypted),
				Index:   u.Index,
				FileID:  resp.FileID,
			})
		}

		avg := speed.Average()
		rem := estimateRemaining(size-uploaded, avg, e.cfg.Engine.DefaultRemainingSecs)
		progress := 0.05 + 0.95*(float64(u.Index+1)/float64(resp.TotalBlocks))
		e.emitProgress(item, progress, "active",
			fmt.Sprintf("Uploading block %d/%d", u.Index+1, resp.TotalBlocks),
			&avg, &rem, &size)
	}

	e.mu.Lock()
	if _, dup := e.st.finalizeNotified[item.ID]; dup {
		e.mu.Unlock()
		return nil
	}
	e.st.finalizeNotified[item.ID] = struct{}{}
	parentID := item.ParentID
	if mapped, ok := e.st.folderIDMap[item.ParentID]; ok {
		parentID = mapped
	}
	e.mu.Unlock()

	e.emitProgress(item, 1.0, "active", "Upload complete, finalizing...", nil, nil, &size)

	e.bus.Publish(protocol.MsgFinalizeTransfer, protocol.FinalizeTransfer{
		ID:          item.ID,
		Name:        item.Name,
		Size:        size,
		ContentHash: crypto.SumHex(hasher),
		FileID:      resp.FileID,
		ParentID:    parentID,
		RevisionID:  resp.RevisionID,
	})

	// The item stays active until FinalizeComplete arrives; verification
	// happens on the other side of the bridge.
	return nil
}
