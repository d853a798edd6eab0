// Package store implements the node graph: a flat arena of file and
// directory records addressed by path, with a per-node capability check on
// every traversal step.
//
// The store is not safe for concurrent use on its own; the system
// dispatcher serializes all access behind one lock (there are no internal
// suspension points, so operations run synchronously under it).
package store

import (
	"sort"

	"github.com/cairnfs/cairn/pkg/access"
	"github.com/cairnfs/cairn/pkg/errdefs"
	"github.com/cairnfs/cairn/pkg/users"
)

// Store owns the node arena. All cross-references between nodes are
// expressed as NodeID lookups into the arena, never as direct ownership,
// which keeps the `.`/`..` cycles harmless.
//
// Arena invariant: every id reachable from a directory's entries (other
// than `.`/`..`) denotes a live node; removal unbinds names before freeing
// nodes so no dangling ids exist.
type Store struct {
	nodes   map[NodeID]*Node
	counter NodeID
}

// New creates a store holding only the root directory. The root's ".."
// points to itself.
func New() *Store {
	root := newDir(RootID, RootID)
	return &Store{
		nodes:   map[NodeID]*Node{RootID: root},
		counter: RootID + 1,
	}
}

// node fetches an arena record. A miss is a bug: ids only circulate while
// their node is live.
func (s *Store) node(id NodeID) *Node {
	n, exists := s.nodes[id]
	if n == nil || !exists {
		panic("store: dangling node id")
	}
	return n
}

// resolve walks segments from the root, enforcing read capability on every
// fetched node, intermediates included. The starting root itself is not
// fetched through an entry table and is therefore not checked.
func (s *Store) resolve(uid users.ID, segments []string) (*Node, error) {
	n := s.node(RootID)
	for _, name := range segments {
		if n.Kind != KindDir {
			return nil, errdefs.TypeMismatch("is not a directory", name)
		}
		childID, exists := n.Entries[name]
		if !exists {
			return nil, errdefs.NotFound(name)
		}
		child := s.node(childID)
		if !child.ACL.Allows(uid, access.PermRead) {
			return nil, errdefs.PermissionDenied(name)
		}
		n = child
	}
	return n, nil
}

// resolvePath resolves a full path string.
func (s *Store) resolvePath(uid users.ID, path string) (*Node, error) {
	return s.resolve(uid, splitPath(path))
}

// Read returns the content of the file at path.
func (s *Store) Read(uid users.ID, path string) (string, error) {
	n, err := s.resolvePath(uid, path)
	if err != nil {
		return "", err
	}
	if n.Kind != KindFile {
		return "", errdefs.TypeMismatch("is not a regular file", path)
	}
	return n.Content, nil
}

// Write replaces the entire content of the file at path. The final fetch
// requires write capability on the target in addition to the read checks
// of resolution.
func (s *Store) Write(uid users.ID, path, data string) error {
	n, err := s.resolvePath(uid, path)
	if err != nil {
		return err
	}
	if !n.ACL.Allows(uid, access.PermWrite) {
		return errdefs.PermissionDenied(path)
	}
	if n.Kind != KindFile {
		return errdefs.TypeMismatch("is not a regular file", path)
	}
	n.Content = data
	return nil
}

// NewFile creates an empty file at path.
func (s *Store) NewFile(uid users.ID, path string) error {
	_, err := s.create(uid, path, KindFile)
	return err
}

// NewDir creates an empty directory at path.
func (s *Store) NewDir(uid users.ID, path string) error {
	_, err := s.create(uid, path, KindDir)
	return err
}

// create resolves the parent directory (read-checked along the way),
// requires write capability on it, and binds a fresh node under the final
// name. The creator receives no implicit grant on the new node.
func (s *Store) create(uid users.ID, path string, kind Kind) (NodeID, error) {
	parentSegments, name, err := splitParent(path)
	if err != nil {
		return 0, err
	}
	parent, err := s.resolve(uid, parentSegments)
	if err != nil {
		return 0, err
	}
	if parent.Kind != KindDir {
		return 0, errdefs.TypeMismatch("is not a directory", path)
	}
	if !parent.ACL.Allows(uid, access.PermWrite) {
		return 0, errdefs.PermissionDenied(path)
	}
	if _, taken := parent.Entries[name]; taken {
		return 0, errdefs.AlreadyExists(path)
	}

	id := s.counter
	s.counter++

	var n *Node
	if kind == KindDir {
		n = newDir(id, parent.ID)
	} else {
		n = newFile(id)
	}
	s.nodes[id] = n
	parent.Entries[name] = id
	return id, nil
}

// Remove unbinds the target from its parent and frees its subtree. The
// parent requires write capability, the target a read-checked fetch.
// Removing a non-empty directory is rejected.
func (s *Store) Remove(uid users.ID, path string) error {
	parentSegments, name, err := splitParent(path)
	if err != nil {
		return err
	}
	parent, err := s.resolve(uid, parentSegments)
	if err != nil {
		return err
	}
	if parent.Kind != KindDir {
		return errdefs.TypeMismatch("is not a directory", path)
	}
	if !parent.ACL.Allows(uid, access.PermWrite) {
		return errdefs.PermissionDenied(path)
	}
	targetID, exists := parent.Entries[name]
	if !exists {
		return errdefs.NotFound(name)
	}
	target := s.node(targetID)
	if !target.ACL.Allows(uid, access.PermRead) {
		return errdefs.PermissionDenied(path)
	}
	if target.Kind == KindDir && target.entryCount() > 0 {
		return errdefs.Conflict("can't remove non-empty directory", path)
	}

	delete(parent.Entries, name)
	s.freeSubtree(targetID)
	return nil
}

// freeSubtree removes id and everything reachable below it from the arena.
// The walk is fully general even though the removal policy above only ever
// hands it files and empty directories today; a future forced delete needs
// only a policy change.
func (s *Store) freeSubtree(id NodeID) {
	n, exists := s.nodes[id]
	if !exists {
		return
	}
	delete(s.nodes, id)
	if n.Kind != KindDir {
		return
	}
	for name, childID := range n.Entries {
		if name == selfEntry || name == parentEntry {
			continue
		}
		s.freeSubtree(childID)
	}
}

// Exec checks exec capability on the leaf after a read-checked traversal.
// No execution happens here; running the target is the front end's
// business.
func (s *Store) Exec(uid users.ID, path string) error {
	n, err := s.resolvePath(uid, path)
	if err != nil {
		return err
	}
	if !n.ACL.Allows(uid, access.PermExec) {
		return errdefs.PermissionDenied(path)
	}
	return nil
}

// SetPerms overwrites targetUID's entry in the access map of the node at
// path. The caller needs write and control capability on the node. Setting
// the administrator's permissions is a silent no-op.
func (s *Store) SetPerms(uid, targetUID users.ID, path string, perms access.Perms) error {
	n, err := s.resolvePath(uid, path)
	if err != nil {
		return err
	}
	if !n.ACL.Allows(uid, access.PermWrite|access.PermControl) {
		return errdefs.PermissionDenied(path)
	}
	n.ACL.Set(targetUID, perms)
	return nil
}

// List returns the visible children of the directory at path, sorted by
// name. Children the caller cannot read are silently omitted rather than
// failing the whole call; this hiding is deliberate visibility design.
func (s *Store) List(uid users.ID, path string) ([]Entry, error) {
	n, err := s.resolvePath(uid, path)
	if err != nil {
		return nil, err
	}
	if n.Kind != KindDir {
		return nil, errdefs.TypeMismatch("is not a directory", path)
	}

	entries := make([]Entry, 0, n.entryCount())
	for name, childID := range n.Entries {
		if name == selfEntry || name == parentEntry {
			continue
		}
		child := s.node(childID)
		if !child.ACL.Allows(uid, access.PermRead) {
			continue
		}
		entries = append(entries, Entry{
			Kind:  child.Kind.String(),
			Name:  name,
			Perms: child.ACL.Get(uid).String(),
			Size:  child.size(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Image is the serializable projection of the arena for the snapshot.
type Image struct {
	Counter NodeID           `cbor:"1,keyasint"`
	Nodes   map[NodeID]*Node `cbor:"2,keyasint"`
}

// Snapshot extracts the store's durable state. Nodes are deep-copied so
// later mutations of the live store don't leak into a pending image.
func (s *Store) Snapshot() Image {
	image := Image{
		Counter: s.counter,
		Nodes:   make(map[NodeID]*Node, len(s.nodes)),
	}
	for id, n := range s.nodes {
		image.Nodes[id] = copyNode(n)
	}
	return image
}

// FromImage reconstructs a store from a snapshot.
func FromImage(image Image) *Store {
	nodes := make(map[NodeID]*Node, len(image.Nodes))
	for id, n := range image.Nodes {
		copied := copyNode(n)
		if copied.ACL == nil {
			copied.ACL = access.NewMap()
		}
		nodes[id] = copied
	}
	return &Store{nodes: nodes, counter: image.Counter}
}

// copyNode clones a node including its entry table and access map.
func copyNode(n *Node) *Node {
	copied := &Node{ID: n.ID, Kind: n.Kind, Content: n.Content, ACL: access.NewMap()}
	for id, perms := range n.ACL {
		copied.ACL[id] = perms
	}
	if n.Entries != nil {
		copied.Entries = make(map[string]NodeID, len(n.Entries))
		for name, id := range n.Entries {
			copied.Entries[name] = id
		}
	}
	return copied
}
