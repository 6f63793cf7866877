// Package transfer implements the upload engine: a single-flight queue of
// file and folder items, folder expansion, and the encrypted block
// pipeline. All shared state lives in one guarded structure; processing is
// an explicit drain loop triggered whenever the engine might have become
// idle with work remaining.
package transfer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItemKind distinguishes file and folder work units.
type ItemKind string

const (
	ItemFile   ItemKind = "file"
	ItemFolder ItemKind = "folder"
)

// QueueItem is one unit of work. Items are created by a user selection or
// a folder expansion, consumed exactly once by the scheduler, and never
// mutated afterwards.
type QueueItem struct {
	Kind     ItemKind
	ID       string
	Path     string // absolute source path
	Name     string // display name
	ParentID string // server folder id, or a local placeholder resolved via the folder-id map
	Depth    int    // nesting level, informational only
}

// GenerateID returns a unique transfer item id.
func GenerateID() string {
	return fmt.Sprintf("transfer-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
