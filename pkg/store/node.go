package store

import (
	"github.com/cairnfs/cairn/pkg/access"
)

// NodeID is an opaque, monotonically increasing node handle. IDs are never
// reused, even after deletion. RootID is fixed at creation time.
type NodeID uint64

// RootID is the root directory's id.
const RootID NodeID = 0

// Self and parent bindings present in every directory's entry table.
// They are excluded from size and emptiness calculations and from
// external listings.
const (
	selfEntry   = "."
	parentEntry = ".."
)

// Kind discriminates the two node variants.
type Kind uint8

const (
	// KindFile is a regular file holding text content.
	KindFile Kind = iota

	// KindDir is a directory holding named child entries.
	KindDir
)

// String returns the listing label for the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "unknown"
	}
}

// Node is a single record in the arena. Exactly one of Content/Entries is
// meaningful depending on Kind. Directory entries are non-owning id
// references into the arena, so `.`/`..` back-references never form
// ownership cycles.
type Node struct {
	ID   NodeID `cbor:"1,keyasint"`
	Kind Kind   `cbor:"2,keyasint"`

	// Content is the file text. Only used when Kind == KindFile.
	Content string `cbor:"3,keyasint,omitempty"`

	// Entries maps child names to node ids. Always contains the "." and
	// ".." self-bindings. Only used when Kind == KindDir.
	Entries map[string]NodeID `cbor:"4,keyasint,omitempty"`

	// ACL is the per-user capability map for this node.
	ACL access.Map `cbor:"5,keyasint"`
}

// newFile returns a file node with empty content and an empty access map.
func newFile(id NodeID) *Node {
	return &Node{ID: id, Kind: KindFile, ACL: access.NewMap()}
}

// newDir returns a directory node bound to its parent. The root passes its
// own id as parent, making ".." self-referential there.
func newDir(id, parentID NodeID) *Node {
	return &Node{
		ID:   id,
		Kind: KindDir,
		Entries: map[string]NodeID{
			selfEntry:   id,
			parentEntry: parentID,
		},
		ACL: access.NewMap(),
	}
}

// entryCount is the number of real children, excluding "." and "..".
func (n *Node) entryCount() int {
	return len(n.Entries) - 2
}

// size is the listing size: byte length for files, entry count for
// directories.
func (n *Node) size() int {
	if n.Kind == KindDir {
		return n.entryCount()
	}
	return len(n.Content)
}

// Entry is one visible row of a directory listing.
type Entry struct {
	// Kind is "file" or "dir".
	Kind string `cbor:"1,keyasint"`

	// Name is the child's name in its parent directory.
	Name string `cbor:"2,keyasint"`

	// Perms is the caller's own effective permission string on the child.
	Perms string `cbor:"3,keyasint"`

	// Size is the byte length for files and the entry count for
	// directories.
	Size int `cbor:"4,keyasint"`
}
