// Package crypto implements the content encryption used by the block
// pipeline: AES-256-GCM with nonces derived from the block index, plus the
// hashing helpers the orchestration service verifies against.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/blockgate/blockgate/internal/constants"
)

// ContentCipher encrypts blocks and thumbnails with a server-issued key.
type ContentCipher struct {
	aead cipher.AEAD
}

// NewContentCipher decodes a base64 content key and builds the AEAD.
// The decoded key must be exactly 32 bytes (AES-256).
func NewContentCipher(encodedKey string) (*ContentCipher, error) {
	keyBytes, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(keyBytes) != constants.ContentKeySize {
		return nil, fmt.Errorf("invalid encryption key length, must be %d bytes", constants.ContentKeySize)
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &ContentCipher{aead: aead}, nil
}

// BlockNonce derives the 96-bit nonce for a block: the big-endian bytes of
// the index fill the leading bytes, the rest stay zero.
//
// The nonce for index 0 is all zeros and therefore identical to
// ThumbnailNonce under the same key. The orchestration service's decryption
// path depends on this derivation, so it is preserved as-is; see the package
// tests for the collision it implies.
func BlockNonce(index int) []byte {
	nonce := make([]byte, constants.NonceSize)
	var indexBytes [8]byte
	binary.BigEndian.PutUint64(indexBytes[:], uint64(index))
	copy(nonce, indexBytes[:])
	return nonce
}

// ThumbnailNonce returns the fixed all-zero nonce used for thumbnail
// encryption.
func ThumbnailNonce() []byte {
	return make([]byte, constants.NonceSize)
}

// Encrypt seals plaintext with the given nonce.
func (c *ContentCipher) Encrypt(nonce, plaintext []byte) []byte {
	return c.aead.Seal(nil, nonce, plaintext, nil)
}

// Decrypt opens ciphertext sealed with Encrypt.
func (c *ContentCipher) Decrypt(nonce, ciphertext []byte) ([]byte, error) {
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt block: %w", err)
	}
	return plaintext, nil
}

// EncryptBlock seals one content block using its index-derived nonce.
func (c *ContentCipher) EncryptBlock(index int, plaintext []byte) []byte {
	return c.Encrypt(BlockNonce(index), plaintext)
}

// EncryptThumbnail seals thumbnail bytes with the fixed zero nonce.
func (c *ContentCipher) EncryptThumbnail(data []byte) []byte {
	return c.Encrypt(ThumbnailNonce(), data)
}

// NewContentHasher returns the running hash accumulated over plaintext for
// whole-file verification.
func NewContentHasher() hash.Hash {
	return sha256.New()
}

// HashHex returns the lowercase hex SHA-256 of data. Used for per-block
// ciphertext hashes and thumbnail hashes.
func HashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// SumHex finalizes a running hasher to lowercase hex.
func SumHex(h hash.Hash) string {
	return fmt.Sprintf("%x", h.Sum(nil))
}
