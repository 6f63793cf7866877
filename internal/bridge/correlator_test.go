package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blockgate/blockgate/internal/logging"
	"github.com/blockgate/blockgate/internal/protocol"
)

func newTestCorrelator() *Correlator {
	return New(logging.NewDefaultLogger())
}

func TestAwaitUploadURLsResolved(t *testing.T) {
	c := newTestCorrelator()

	emitted := false
	done := make(chan struct{})
	var got protocol.UploadURLsResponse
	var err error

	go func() {
		got, err = c.AwaitUploadURLs(context.Background(), "t1", time.Second, func() {
			emitted = true
			// Reply arrives after the slot is registered.
			go c.ResolveUploadURLs("t1", protocol.UploadURLsResponse{FileID: "f1"})
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Await did not return")
	}

	if !emitted {
		t.Error("emit callback was not invoked")
	}
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if got.FileID != "f1" {
		t.Errorf("Expected file id f1, got %s", got.FileID)
	}
}

func TestReplyBeforeAwaitCompletesIsNotLost(t *testing.T) {
	c := newTestCorrelator()

	// Resolve synchronously inside emit: the slot must already exist.
	got, err := c.AwaitUploadURLs(context.Background(), "t2", time.Second, func() {
		if !c.ResolveUploadURLs("t2", protocol.UploadURLsResponse{FileID: "early"}) {
			t.Error("Slot should be registered before emit runs")
		}
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if got.FileID != "early" {
		t.Errorf("Expected early reply to be delivered, got %s", got.FileID)
	}
}

func TestAwaitUploadURLsError(t *testing.T) {
	c := newTestCorrelator()

	wantErr := errors.New("bucket unavailable")
	_, err := c.AwaitUploadURLs(context.Background(), "t3", time.Second, func() {
		c.FailUpload("t3", wantErr)
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected %v, got %v", wantErr, err)
	}
}

func TestAwaitTimeout(t *testing.T) {
	c := newTestCorrelator()

	start := time.Now()
	_, err := c.AwaitUploadURLs(context.Background(), "t4", 50*time.Millisecond, func() {})
	if !errors.Is(err, ErrSlotTimeout) {
		t.Fatalf("Expected ErrSlotTimeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Timeout took far longer than configured")
	}

	// Slot was cleaned up: a late reply finds no receiver.
	if c.ResolveUploadURLs("t4", protocol.UploadURLsResponse{}) {
		t.Error("Late reply after timeout should find no slot")
	}
}

func TestResolveAtMostOnce(t *testing.T) {
	c := newTestCorrelator()

	done := make(chan protocol.FolderCreatedResponse, 1)
	go func() {
		resp, _ := c.AwaitFolderCreated(context.Background(), "t5", time.Second, func() {
			c.ResolveFolderCreated("t5", protocol.FolderCreatedResponse{FolderID: "first"})
		})
		done <- resp
	}()

	resp := <-done
	if resp.FolderID != "first" {
		t.Errorf("Expected first resolution to win, got %s", resp.FolderID)
	}

	// Second resolution is a no-op.
	if c.ResolveFolderCreated("t5", protocol.FolderCreatedResponse{FolderID: "second"}) {
		t.Error("Second resolution should report receiver gone")
	}
	if c.FailFolder("t5", errors.New("late error")) {
		t.Error("Fail after resolution should report receiver gone")
	}
}

func TestResolveWithoutSlot(t *testing.T) {
	c := newTestCorrelator()

	if c.ResolveUploadURLs("nobody", protocol.UploadURLsResponse{}) {
		t.Error("Resolution without a registered slot must be dropped")
	}
	if c.FailAny("nobody", errors.New("x")) {
		t.Error("FailAny without slots must report nothing resolved")
	}
}

func TestFailAnyResolvesEitherKind(t *testing.T) {
	c := newTestCorrelator()
	sweepErr := errors.New("Request timed out")

	uploadDone := make(chan error, 1)
	go func() {
		_, err := c.AwaitUploadURLs(context.Background(), "u1", time.Second, func() {
			c.FailAny("u1", sweepErr)
		})
		uploadDone <- err
	}()
	if err := <-uploadDone; !errors.Is(err, sweepErr) {
		t.Errorf("Expected sweep error on upload slot, got %v", err)
	}

	folderDone := make(chan error, 1)
	go func() {
		_, err := c.AwaitFolderCreated(context.Background(), "g1", time.Second, func() {
			c.FailAny("g1", sweepErr)
		})
		folderDone <- err
	}()
	if err := <-folderDone; !errors.Is(err, sweepErr) {
		t.Errorf("Expected sweep error on folder slot, got %v", err)
	}
}

func TestAwaitContextCancelled(t *testing.T) {
	c := newTestCorrelator()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.AwaitFolderCreated(ctx, "t6", time.Hour, func() {
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context cancellation, got %v", err)
	}
}
