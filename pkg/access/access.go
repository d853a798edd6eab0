// Package access implements the per-node capability model: a 4-bit
// permission set per user and the access map stored on every node.
package access

import (
	"github.com/cairnfs/cairn/pkg/errdefs"
	"github.com/cairnfs/cairn/pkg/users"
)

// Perms is a capability bitset. Each node stores one Perms value per user.
type Perms uint8

const (
	// PermRead allows fetching a node during path resolution, reading
	// file content and seeing the node in directory listings.
	PermRead Perms = 1 << iota

	// PermWrite allows overwriting file content and, on directories,
	// adding and removing entries.
	PermWrite

	// PermExec allows the exec check on a node.
	PermExec

	// PermControl allows changing the node's access map.
	PermControl
)

// permChars is the fixed render order for String and Parse.
var permChars = [...]struct {
	bit  Perms
	char byte
}{
	{PermRead, 'r'},
	{PermWrite, 'w'},
	{PermExec, 'x'},
	{PermControl, 'c'},
}

// String renders the set as a fixed 4-character string in "rwxc" order,
// with '-' for absent capabilities.
func (p Perms) String() string {
	out := make([]byte, len(permChars))
	for i, pc := range permChars {
		if p&pc.bit != 0 {
			out[i] = pc.char
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}

// Parse is the inverse of String. It accepts exactly four characters, each
// either '-' or the capability letter at that position.
func Parse(s string) (Perms, error) {
	if len(s) != len(permChars) {
		return 0, &errdefs.Error{Code: errdefs.CodeTypeMismatch, Message: "permissions must be 4 characters, like r-x- or rwxc"}
	}
	var p Perms
	for i, pc := range permChars {
		switch s[i] {
		case pc.char:
			p |= pc.bit
		case '-':
		default:
			return 0, &errdefs.Error{Code: errdefs.CodeTypeMismatch, Message: "invalid permission character " + string(s[i])}
		}
	}
	return p, nil
}

// Contains reports whether every capability in requested is present.
// This is an all-of test: a multi-capability request only succeeds when
// the full set is granted.
func (p Perms) Contains(requested Perms) bool {
	return p&requested == requested
}

// Map is the per-node access map. A user absent from the map holds no
// capabilities. The administrator is never stored: it is short-circuited
// to all-capabilities at check time.
type Map map[users.ID]Perms

// NewMap returns an empty access map.
func NewMap() Map {
	return make(Map)
}

// Allows reports whether id holds every capability in requested on this
// node. The administrator is granted unconditionally.
func (m Map) Allows(id users.ID, requested Perms) bool {
	if id == users.AdminID {
		return true
	}
	return m[id].Contains(requested)
}

// Get returns the effective permissions of id on this node.
func (m Map) Get(id users.ID) Perms {
	if id == users.AdminID {
		return PermRead | PermWrite | PermExec | PermControl
	}
	return m[id]
}

// Set overwrites id's entry. Setting the administrator's permissions is a
// silent no-op; its grant is implicit and immutable.
func (m Map) Set(id users.ID, perms Perms) {
	if id == users.AdminID {
		return
	}
	m[id] = perms
}
