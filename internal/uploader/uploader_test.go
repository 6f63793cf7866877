package uploader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blockgate/blockgate/internal/logging"
)

func newTestUploader() *Uploader {
	return New(logging.NewDefaultLogger(),
		WithRetryUnit(time.Millisecond),
		WithTimeouts(5*time.Second, 5*time.Second))
}

func TestPutBlockSuccess(t *testing.T) {
	var gotBody []byte
	var gotMethod, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestUploader().PutBlock(context.Background(), srv.URL, []byte("ciphertext"))
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("Expected PUT, got %s", gotMethod)
	}
	if gotContentType != "application/octet-stream" {
		t.Errorf("Expected octet-stream content type, got %s", gotContentType)
	}
	if string(gotBody) != "ciphertext" {
		t.Errorf("Body mismatch: %q", gotBody)
	}
}

func TestPutBlockRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestUploader().PutBlock(context.Background(), srv.URL, []byte("x"))
	if err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestPutBlockExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := newTestUploader().PutBlock(context.Background(), srv.URL, []byte("x"))
	if err == nil {
		t.Fatal("Expected failure after exhausting retries")
	}
	if err.Error() != "Upload failed after 3 retries" {
		t.Errorf("Unexpected error message: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestPutBlockCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := newTestUploader().PutBlock(ctx, srv.URL, []byte("x")); err == nil {
		t.Error("Expected cancelled context to abort upload")
	}
}

func TestPutThumbnail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	if err := newTestUploader().PutThumbnail(context.Background(), srv.URL, []byte("thumb")); err != nil {
		t.Errorf("Expected 201 to count as success, got %v", err)
	}
}
