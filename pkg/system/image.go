package system

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cairnfs/cairn/pkg/codec"
	"github.com/cairnfs/cairn/pkg/store"
	"github.com/cairnfs/cairn/pkg/users"
)

// Image is the durable projection of the whole system: node graph, user
// directory and accumulated audit log. Sessions and credentials are never
// part of it; every user re-authenticates after a restart. There is no
// version tag and no partial format — a foreign or mismatched image either
// loads fully or fails outright.
type Image struct {
	FS    store.Image `cbor:"1,keyasint"`
	Users users.Image `cbor:"2,keyasint"`
	Audit []LogEntry  `cbor:"3,keyasint"`
}

// Pack extracts the system state into an image, swapping the live audit
// log for an empty one in the same step. It is meant to run once, at
// orderly shutdown; the system stays usable afterwards but its audit log
// starts over.
func (sys *System) Pack() Image {
	sys.mu.Lock()
	defer sys.mu.Unlock()

	return Image{
		FS:    sys.fs.Snapshot(),
		Users: sys.directory.Snapshot(),
		Audit: sys.audit.take(),
	}
}

// Unpack reconstructs a running system from an image. The stored audit log
// becomes the active log; the session and credential tables start empty.
func Unpack(image Image, opts Options) *System {
	opts = opts.withDefaults()
	audit := NewAuditLog()
	audit.entries = image.Audit

	return &System{
		fs:          store.FromImage(image.FS),
		directory:   users.FromImage(image.Users, opts.Hasher, opts.LockoutThreshold),
		lastLogin:   make(map[users.ID]time.Time),
		credentials: make(map[Credential]users.ID),
		audit:       audit,
		window:      opts.SessionWindow,
		now:         opts.Clock,
	}
}

// WriteImageFile serializes the image and writes it atomically: a rename
// over the destination, so a crash mid-write leaves the previous image
// intact.
func WriteImageFile(path string, image Image) error {
	data, err := codec.Marshal(image)
	if err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to install image: %w", err)
	}
	return nil
}

// ReadImageFile loads and decodes an image file.
func ReadImageFile(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, err
	}
	var image Image
	if err := codec.Unmarshal(data, &image); err != nil {
		return Image{}, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return image, nil
}

// Boot builds a system from the image at path, or a fresh one (root-only
// graph, single administrator with an empty password) when no prior image
// exists.
func Boot(path string, opts Options) (*System, error) {
	image, err := ReadImageFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(opts)
	}
	if err != nil {
		return nil, err
	}
	return Unpack(image, opts), nil
}
