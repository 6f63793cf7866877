// Package constants centralizes tuning values for the transfer engine.
package constants

import (
	"time"
)

// Negotiation and staleness thresholds
const (
	// NegotiationTimeout - how long to wait for the orchestration service to
	// answer an init-file-upload or create-folder request (30s)
	// Replies arrive as independent inbound messages, so this bounds the
	// correlation slot wait, not an HTTP round trip.
	NegotiationTimeout = 30 * time.Second

	// StalenessThreshold - age after which an outstanding request is presumed
	// lost and synthetically failed (35s)
	// Slightly above NegotiationTimeout so the sweep only catches requests
	// whose waiter is already gone.
	StalenessThreshold = 35 * time.Second
)

// Upload transport
const (
	// BlockUploadTimeout - per-attempt timeout for a block PUT (300s)
	// Blocks can be tens of MB over slow links.
	BlockUploadTimeout = 300 * time.Second

	// ThumbnailUploadTimeout - per-attempt timeout for a thumbnail PUT (60s)
	ThumbnailUploadTimeout = 60 * time.Second

	// UploadMaxRetries - attempts per block before the item fails (3)
	UploadMaxRetries = 3

	// UploadRetryUnit - linear backoff unit; attempt N sleeps N * this (1s)
	UploadRetryUnit = 1 * time.Second
)

// Thumbnails
const (
	// ThumbnailMaxDimension - thumbnails fit inside this square (300px)
	ThumbnailMaxDimension = 300

	// ThumbnailSizeLimit - only images smaller than this get a thumbnail (5 MiB)
	ThumbnailSizeLimit = 5 * 1024 * 1024

	// ThumbnailJPEGQuality - re-encode quality for generated thumbnails
	ThumbnailJPEGQuality = 80
)

// Progress reporting
const (
	// SpeedSampleWindow - number of per-block throughput samples averaged for
	// the reported speed (5)
	SpeedSampleWindow = 5

	// DefaultRemainingSecs - remaining-time floor reported when measured
	// throughput is negligible (1 hour)
	// Presentation heuristic; overridable via config.
	DefaultRemainingSecs = 3600

	// SpeedFloor - below this many bytes/sec the estimate falls back to
	// DefaultRemainingSecs
	SpeedFloor = 0.1
)

// Event system
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - cap for high-throughput subscribers (5000)
	EventBusMaxBuffer = 5000
)

// Crypto
const (
	// ContentKeySize - AES-256 key length in bytes
	ContentKeySize = 32

	// NonceSize - AES-GCM nonce length in bytes (96 bits)
	NonceSize = 12
)
