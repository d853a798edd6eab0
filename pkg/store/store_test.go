package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairnfs/cairn/pkg/access"
	"github.com/cairnfs/cairn/pkg/errdefs"
	"github.com/cairnfs/cairn/pkg/users"
)

const (
	admin = users.AdminID
	alice = users.ID(1)
)

func TestCreateWriteRead(t *testing.T) {
	s := New()

	require.NoError(t, s.NewDir(admin, "/dir"))
	require.NoError(t, s.NewFile(admin, "/dir/file"))
	require.NoError(t, s.Write(admin, "/dir/file", "42"))

	content, err := s.Read(admin, "/dir/file")
	require.NoError(t, err)
	assert.Equal(t, "42", content)
}

func TestWrite_Overwrites(t *testing.T) {
	s := New()
	require.NoError(t, s.NewFile(admin, "note"))

	require.NoError(t, s.Write(admin, "note", "first"))
	require.NoError(t, s.Write(admin, "note", "second"))

	content, err := s.Read(admin, "note")
	require.NoError(t, err)
	assert.Equal(t, "second", content, "write replaces, it does not append")
}

func TestRelativeAndAbsolutePathsAreEquivalent(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "dir"))
	require.NoError(t, s.NewFile(admin, "/dir/file"))
	require.NoError(t, s.Write(admin, "dir//file", "data"))

	// There is no current directory: all spellings resolve from the root.
	for _, path := range []string{"/dir/file", "dir/file", "./dir/file", "dir/./file", "/dir//file/"} {
		content, err := s.Read(admin, path)
		require.NoError(t, err, "path %q", path)
		assert.Equal(t, "data", content)
	}
}

func TestDotDotResolution(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "/a"))
	require.NoError(t, s.NewDir(admin, "/a/b"))
	require.NoError(t, s.NewFile(admin, "/a/file"))
	require.NoError(t, s.Write(admin, "/a/file", "x"))

	content, err := s.Read(admin, "/a/b/../file")
	require.NoError(t, err)
	assert.Equal(t, "x", content)

	// The root's ".." points to itself.
	entries, err := s.List(admin, "/../..")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRead_Directory(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "/dir"))

	_, err := s.Read(admin, "/dir")
	assert.True(t, errdefs.IsTypeMismatch(err))
}

func TestWrite_Directory(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "/dir"))

	err := s.Write(admin, "/dir", "data")
	assert.True(t, errdefs.IsTypeMismatch(err))
}

func TestMissingSegment(t *testing.T) {
	s := New()

	_, err := s.Read(admin, "/no/such/file")
	assert.True(t, errdefs.IsNotFound(err))

	err = s.NewFile(admin, "/no/file")
	assert.True(t, errdefs.IsNotFound(err))
}

func TestNewFile_AlreadyExists(t *testing.T) {
	s := New()
	require.NoError(t, s.NewFile(admin, "/file"))

	assert.True(t, errdefs.IsAlreadyExists(s.NewFile(admin, "/file")))
	assert.True(t, errdefs.IsAlreadyExists(s.NewDir(admin, "/file")))
}

func TestCreate_ThroughFile(t *testing.T) {
	s := New()
	require.NoError(t, s.NewFile(admin, "/file"))

	err := s.NewFile(admin, "/file/child")
	assert.True(t, errdefs.IsTypeMismatch(err))
}

func TestCreate_PathEndsInDots(t *testing.T) {
	s := New()

	assert.Error(t, s.NewFile(admin, "/"))
	assert.Error(t, s.NewFile(admin, "/dir/.."))
	assert.Error(t, s.NewDir(admin, "."))
}

// TestResolution_ReadCheckedAtEveryLevel verifies that a grant on the leaf
// alone is not enough: every intermediate directory fetch is checked too.
func TestResolution_ReadCheckedAtEveryLevel(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "/dir"))
	require.NoError(t, s.NewFile(admin, "/dir/file"))
	require.NoError(t, s.Write(admin, "/dir/file", "hello"))

	require.NoError(t, s.SetPerms(admin, alice, "/dir/file", access.PermRead))

	_, err := s.Read(alice, "/dir/file")
	assert.True(t, errdefs.IsPermissionDenied(err), "intermediate dir is not readable")

	require.NoError(t, s.SetPerms(admin, alice, "/dir", access.PermRead))

	content, err := s.Read(alice, "/dir/file")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
}

func TestWrite_RequiresWriteOnTarget(t *testing.T) {
	s := New()
	require.NoError(t, s.NewFile(admin, "/file"))
	require.NoError(t, s.SetPerms(admin, alice, "/file", access.PermRead))

	err := s.Write(alice, "/file", "data")
	assert.True(t, errdefs.IsPermissionDenied(err))

	require.NoError(t, s.SetPerms(admin, alice, "/file", access.PermRead|access.PermWrite))
	require.NoError(t, s.Write(alice, "/file", "data"))
}

func TestCreate_RequiresWriteOnParent(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "/dir"))
	require.NoError(t, s.SetPerms(admin, alice, "/dir", access.PermRead))

	assert.True(t, errdefs.IsPermissionDenied(s.NewFile(alice, "/dir/file")))

	require.NoError(t, s.SetPerms(admin, alice, "/dir", access.PermRead|access.PermWrite))
	require.NoError(t, s.NewFile(alice, "/dir/file"))
}

// TestCreate_NoImplicitGrant pins the default visibility of new nodes: a
// creator holds no capabilities on what it just created.
func TestCreate_NoImplicitGrant(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "/dir"))
	require.NoError(t, s.SetPerms(admin, alice, "/dir", access.PermRead|access.PermWrite))

	require.NoError(t, s.NewFile(alice, "/dir/file"))

	_, err := s.Read(alice, "/dir/file")
	assert.True(t, errdefs.IsPermissionDenied(err))
}

func TestRemove_NonEmptyDirectory(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "/dir"))
	require.NoError(t, s.NewFile(admin, "/dir/a"))
	require.NoError(t, s.NewFile(admin, "/dir/b"))

	err := s.Remove(admin, "/dir")
	assert.True(t, errdefs.IsConflict(err))

	// After removing all children the same path succeeds.
	require.NoError(t, s.Remove(admin, "/dir/a"))
	require.NoError(t, s.Remove(admin, "/dir/b"))
	require.NoError(t, s.Remove(admin, "/dir"))

	_, err = s.Read(admin, "/dir")
	assert.True(t, errdefs.IsNotFound(err))
}

func TestRemove_RequiresWriteOnParent(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "/dir"))
	require.NoError(t, s.NewFile(admin, "/dir/file"))
	require.NoError(t, s.SetPerms(admin, alice, "/dir", access.PermRead))
	require.NoError(t, s.SetPerms(admin, alice, "/dir/file", access.PermRead))

	assert.True(t, errdefs.IsPermissionDenied(s.Remove(alice, "/dir/file")))

	require.NoError(t, s.SetPerms(admin, alice, "/dir", access.PermRead|access.PermWrite))
	require.NoError(t, s.Remove(alice, "/dir/file"))
}

// TestFreeSubtree_MultiLevel exercises the recursive free on a tree deeper
// than the removal policy ever hands it today.
func TestFreeSubtree_MultiLevel(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "/a"))
	require.NoError(t, s.NewDir(admin, "/a/b"))
	require.NoError(t, s.NewDir(admin, "/a/b/c"))
	require.NoError(t, s.NewFile(admin, "/a/b/c/file"))
	require.NoError(t, s.NewFile(admin, "/a/file"))
	require.Len(t, s.nodes, 6)

	root := s.node(RootID)
	id := root.Entries["a"]
	delete(root.Entries, "a")
	s.freeSubtree(id)

	assert.Len(t, s.nodes, 1, "only the root survives")
	_, exists := s.nodes[RootID]
	assert.True(t, exists)
}

func TestNodeIDsNeverReused(t *testing.T) {
	s := New()
	require.NoError(t, s.NewFile(admin, "/file"))
	first := s.node(RootID).Entries["file"]

	require.NoError(t, s.Remove(admin, "/file"))
	require.NoError(t, s.NewFile(admin, "/file"))
	second := s.node(RootID).Entries["file"]

	assert.NotEqual(t, first, second)
	assert.Greater(t, second, first)
}

func TestExec(t *testing.T) {
	s := New()
	require.NoError(t, s.NewFile(admin, "/tool"))

	// Admin bypasses the exec check like any other.
	require.NoError(t, s.Exec(admin, "/tool"))

	assert.True(t, errdefs.IsPermissionDenied(s.Exec(alice, "/tool")))

	require.NoError(t, s.SetPerms(admin, alice, "/tool", access.PermRead|access.PermExec))
	require.NoError(t, s.Exec(alice, "/tool"))
}

func TestSetPerms_RequiresWriteAndControl(t *testing.T) {
	s := New()
	require.NoError(t, s.NewFile(admin, "/file"))
	require.NoError(t, s.SetPerms(admin, alice, "/file", access.PermRead|access.PermWrite))

	// Write alone is not enough; control is required as well.
	err := s.SetPerms(alice, alice, "/file", access.PermRead|access.PermWrite|access.PermControl)
	assert.True(t, errdefs.IsPermissionDenied(err))

	require.NoError(t, s.SetPerms(admin, alice, "/file", access.PermRead|access.PermWrite|access.PermControl))
	require.NoError(t, s.SetPerms(alice, users.ID(2), "/file", access.PermRead))
}

func TestSetPerms_AdminTargetIsNoOp(t *testing.T) {
	s := New()
	require.NoError(t, s.NewFile(admin, "/file"))

	require.NoError(t, s.SetPerms(admin, admin, "/file", 0))

	n := s.node(s.node(RootID).Entries["file"])
	assert.Empty(t, n.ACL, "admin must never appear in an access map")
	_, err := s.Read(admin, "/file")
	require.NoError(t, err)
}

func TestList(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "/docs"))
	require.NoError(t, s.NewFile(admin, "/docs/readme"))
	require.NoError(t, s.Write(admin, "/docs/readme", "hello"))
	require.NoError(t, s.NewDir(admin, "/docs/sub"))
	require.NoError(t, s.NewFile(admin, "/docs/sub/inner"))

	entries, err := s.List(admin, "/docs")
	require.NoError(t, err)
	require.Len(t, entries, 2, `"." and ".." never appear in listings`)

	// Sorted by name: readme before sub.
	assert.Equal(t, Entry{Kind: "file", Name: "readme", Perms: "rwxc", Size: 5}, entries[0])
	assert.Equal(t, Entry{Kind: "dir", Name: "sub", Perms: "rwxc", Size: 1}, entries[1])
}

func TestList_File(t *testing.T) {
	s := New()
	require.NoError(t, s.NewFile(admin, "/file"))

	_, err := s.List(admin, "/file")
	assert.True(t, errdefs.IsTypeMismatch(err))
}

// TestList_HidesUnreadableChildren pins the silent-omission policy: an
// unreadable child is skipped, not an error.
func TestList_HidesUnreadableChildren(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "/docs"))
	require.NoError(t, s.NewFile(admin, "/docs/public"))
	require.NoError(t, s.NewFile(admin, "/docs/secret"))
	require.NoError(t, s.SetPerms(admin, alice, "/docs", access.PermRead))
	require.NoError(t, s.SetPerms(admin, alice, "/docs/public", access.PermRead|access.PermWrite))

	entries, err := s.List(alice, "/docs")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "public", entries[0].Name)
	assert.Equal(t, "rw--", entries[0].Perms)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.NewDir(admin, "/docs"))
	require.NoError(t, s.NewFile(admin, "/docs/readme"))
	require.NoError(t, s.Write(admin, "/docs/readme", "hello"))
	require.NoError(t, s.SetPerms(admin, alice, "/docs", access.PermRead))
	require.NoError(t, s.SetPerms(admin, alice, "/docs/readme", access.PermRead))

	restored := FromImage(s.Snapshot())

	content, err := restored.Read(alice, "/docs/readme")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	entries, err := restored.List(admin, "/docs")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "readme", entries[0].Name)

	// The id counter carries over: new nodes don't collide with old ids.
	require.NoError(t, restored.NewFile(admin, "/docs/next"))
	docs := restored.node(restored.node(RootID).Entries["docs"])
	assert.Greater(t, docs.Entries["next"], docs.Entries["readme"])
}

// TestSnapshot_IsDeepCopy verifies a pending image doesn't chase later
// mutations of the live store.
func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := New()
	require.NoError(t, s.NewFile(admin, "/file"))
	require.NoError(t, s.Write(admin, "/file", "before"))

	image := s.Snapshot()
	require.NoError(t, s.Write(admin, "/file", "after"))
	require.NoError(t, s.NewFile(admin, "/other"))

	restored := FromImage(image)
	content, err := restored.Read(admin, "/file")
	require.NoError(t, err)
	assert.Equal(t, "before", content)

	_, err = restored.Read(admin, "/other")
	assert.True(t, errdefs.IsNotFound(err))
}
