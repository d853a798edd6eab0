package store

import (
	"strings"

	"github.com/cairnfs/cairn/pkg/errdefs"
)

// splitPath reduces a path to its segments. Leading slashes, trailing
// slashes and duplicate separators carry no meaning: resolution always
// starts at the root, so absolute and relative spellings are equivalent.
// "." and ".." are kept as ordinary segments and resolve through the
// directory entry tables.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// splitParent splits a path into the segments of its parent directory and
// the final name. Paths that do not end in a real name (the root, ".",
// "..") cannot be created or removed.
func splitParent(path string) ([]string, string, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, "", &errdefs.Error{Code: errdefs.CodeNotFound, Message: "path has no file name", Path: path}
	}
	name := segments[len(segments)-1]
	if name == selfEntry || name == parentEntry {
		return nil, "", &errdefs.Error{Code: errdefs.CodeNotFound, Message: "path can't end in " + name, Path: path}
	}
	return segments[:len(segments)-1], name, nil
}
