// Package users implements the user directory: account storage, credential
// verification and the sticky login lockout.
//
// The directory is not safe for concurrent use on its own; the system
// dispatcher serializes all access behind its lock.
package users

import (
	"github.com/cairnfs/cairn/pkg/errdefs"
)

// ID identifies a user. IDs are assigned from a monotonically increasing
// counter and are never reused. The administrator always holds AdminID.
type ID uint64

// AdminID is the distinguished administrator id. It bypasses every
// per-node capability check and is the only id allowed to invoke
// user-management actions.
const AdminID ID = 0

// AdminName is the administrator's account name, created at first boot
// with an empty password.
const AdminName = "admin"

// DefaultLockoutThreshold is the number of consecutive failed logins after
// which an account becomes blocked.
const DefaultLockoutThreshold = 3

// User is a single account record.
type User struct {
	ID   ID     `cbor:"1,keyasint"`
	Name string `cbor:"2,keyasint"`

	// Hash is the opaque stored password, produced by the directory's
	// Hasher collaborator.
	Hash PasswordHash `cbor:"3,keyasint"`

	// FailedLogins counts consecutive failed verifications. Once it
	// reaches the lockout threshold the account is blocked until an
	// administrator resets it. Persisted so blocking survives restarts.
	FailedLogins int `cbor:"4,keyasint"`
}

// Directory holds all accounts, indexed both by id and by name.
//
// Names are case-sensitive, globally unique and immutable after creation.
// Accounts are never deleted, only blocked and unblocked.
type Directory struct {
	counter   ID
	byName    map[string]ID
	users     map[ID]*User
	hasher    Hasher
	threshold int
}

// NewDirectory creates a directory containing exactly one administrator
// account with an empty password.
func NewDirectory(hasher Hasher, lockoutThreshold int) (*Directory, error) {
	if lockoutThreshold <= 0 {
		lockoutThreshold = DefaultLockoutThreshold
	}
	directory := &Directory{
		byName:    make(map[string]ID),
		users:     make(map[ID]*User),
		hasher:    hasher,
		threshold: lockoutThreshold,
	}
	if _, err := directory.AddUser(AdminName, ""); err != nil {
		return nil, err
	}
	return directory, nil
}

// AddUser creates a new account with the given name and initial password.
// The first account created gets AdminID; ids count up from there.
func (directory *Directory) AddUser(name, password string) (ID, error) {
	if _, taken := directory.byName[name]; taken {
		return 0, &errdefs.Error{Code: errdefs.CodeAlreadyExists, Message: "user " + name + " already exists"}
	}

	hash, err := directory.hasher.Hash(password)
	if err != nil {
		return 0, err
	}

	id := directory.counter
	directory.counter++

	directory.users[id] = &User{ID: id, Name: name, Hash: hash}
	directory.byName[name] = id
	return id, nil
}

// IDOf resolves a username to its id.
func (directory *Directory) IDOf(name string) (ID, error) {
	id, exists := directory.byName[name]
	if !exists {
		return 0, errdefs.UserNotFound(name)
	}
	return id, nil
}

// NameOf resolves an id to its username. Ids handed out by this directory
// always stay valid, so a miss returns an empty string.
func (directory *Directory) NameOf(id ID) string {
	if user, exists := directory.users[id]; exists {
		return user.Name
	}
	return ""
}

// Login verifies the credentials for name and returns the account id.
//
// Unknown usernames and wrong passwords fail with the same generic error so
// login cannot be used to enumerate accounts. A blocked account fails
// immediately regardless of password correctness.
func (directory *Directory) Login(name, password string) (ID, error) {
	id, exists := directory.byName[name]
	if !exists {
		return 0, errdefs.BadCredentials()
	}
	if err := directory.verify(directory.users[id], password); err != nil {
		return 0, err
	}
	return id, nil
}

// ChangePassword re-verifies old through the same lockout path as Login
// before committing new. A blocked account cannot change its own password.
func (directory *Directory) ChangePassword(id ID, old, new string) error {
	user, exists := directory.users[id]
	if !exists {
		return errdefs.BadCredentials()
	}
	if err := directory.verify(user, old); err != nil {
		return err
	}

	hash, err := directory.hasher.Hash(new)
	if err != nil {
		return err
	}
	user.Hash = hash
	return nil
}

// Unblock resets the failure counter for name, clearing a sticky lockout.
func (directory *Directory) Unblock(name string) error {
	id, exists := directory.byName[name]
	if !exists {
		return errdefs.UserNotFound(name)
	}
	directory.users[id].FailedLogins = 0
	return nil
}

// verify runs one credential check with lockout accounting: success resets
// the failure counter, failure increments it. Blocking is sticky, not a
// timed lockout.
func (directory *Directory) verify(user *User, password string) error {
	if user.FailedLogins >= directory.threshold {
		return errdefs.AccountBlocked()
	}
	if !directory.hasher.Verify(user.Hash, password) {
		user.FailedLogins++
		return errdefs.BadCredentials()
	}
	user.FailedLogins = 0
	return nil
}

// Image is the serializable projection of a directory for the snapshot.
type Image struct {
	Counter ID          `cbor:"1,keyasint"`
	Users   map[ID]User `cbor:"2,keyasint"`
}

// Snapshot extracts the directory's durable state.
func (directory *Directory) Snapshot() Image {
	image := Image{
		Counter: directory.counter,
		Users:   make(map[ID]User, len(directory.users)),
	}
	for id, user := range directory.users {
		image.Users[id] = *user
	}
	return image
}

// FromImage reconstructs a directory from a snapshot. The hasher and the
// lockout threshold come from runtime configuration, not the image;
// per-account hash parameters are embedded in each stored hash.
func FromImage(image Image, hasher Hasher, lockoutThreshold int) *Directory {
	if lockoutThreshold <= 0 {
		lockoutThreshold = DefaultLockoutThreshold
	}
	directory := &Directory{
		counter:   image.Counter,
		byName:    make(map[string]ID, len(image.Users)),
		users:     make(map[ID]*User, len(image.Users)),
		hasher:    hasher,
		threshold: lockoutThreshold,
	}
	for id, user := range image.Users {
		stored := user
		directory.users[id] = &stored
		directory.byName[user.Name] = id
	}
	return directory
}
