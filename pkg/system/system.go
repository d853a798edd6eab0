// Package system composes the node store, the user directory, the session
// gate and the audit log into the action dispatcher, and defines the
// snapshot image that makes the whole state durable.
package system

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cairnfs/cairn/pkg/errdefs"
	"github.com/cairnfs/cairn/pkg/store"
	"github.com/cairnfs/cairn/pkg/users"
)

// DefaultSessionWindow is the absolute session lifetime measured from
// login. It is not an idle timeout: actions do not refresh it.
const DefaultSessionWindow = 60 * time.Second

// Credential is the opaque session token handed to the transport on a
// successful login. It must accompany every subsequent action call and is
// independent of the session window underneath. Credentials live only in
// memory; all of them are invalid after a restart.
type Credential string

// Options configures a system instance. Zero values fall back to
// defaults; a nil Hasher gets the PBKDF2 hasher with default parameters.
type Options struct {
	// SessionWindow is the absolute session lifetime.
	SessionWindow time.Duration

	// LockoutThreshold is the consecutive-failure count that blocks an
	// account.
	LockoutThreshold int

	// Hasher derives and verifies password hashes.
	Hasher users.Hasher

	// Clock overrides the time source. Tests use it to drive session
	// expiry deterministically.
	Clock func() time.Time
}

func (opts Options) withDefaults() Options {
	if opts.SessionWindow <= 0 {
		opts.SessionWindow = DefaultSessionWindow
	}
	if opts.LockoutThreshold <= 0 {
		opts.LockoutThreshold = users.DefaultLockoutThreshold
	}
	if opts.Hasher == nil {
		opts.Hasher = users.NewPBKDF2Hasher(0, 0)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return opts
}

// System is the long-lived dispatcher instance. The whole state — graph,
// directory, sessions, credentials, audit log — is one shared mutable
// resource guarded by a single lock: every entry point acquires it for the
// full duration of the call, which makes action effects linearizable in
// lock-acquisition order. Nothing inside the lock suspends or does I/O.
type System struct {
	mu sync.Mutex

	fs        *store.Store
	directory *users.Directory

	// lastLogin is the session table: populated only by successful
	// logins, consulted lazily by the gate, never persisted.
	lastLogin map[users.ID]time.Time

	// credentials maps live session tokens to user ids. Like the session
	// table it is ephemeral.
	credentials map[Credential]users.ID

	audit  *AuditLog
	window time.Duration
	now    func() time.Time
}

// New creates a fresh system: a root-only graph and a user directory
// containing exactly one administrator with an empty password.
func New(opts Options) (*System, error) {
	opts = opts.withDefaults()
	directory, err := users.NewDirectory(opts.Hasher, opts.LockoutThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to create user directory: %w", err)
	}
	return &System{
		fs:          store.New(),
		directory:   directory,
		lastLogin:   make(map[users.ID]time.Time),
		credentials: make(map[Credential]users.ID),
		audit:       NewAuditLog(),
		window:      opts.SessionWindow,
		now:         opts.Clock,
	}, nil
}

// Login verifies credentials and, on success, stamps the session table and
// mints an opaque credential bound to the user id. Every attempt appends
// an audit entry naming the attempted username; passwords are never
// logged.
func (sys *System) Login(name, password string) (Credential, users.ID, error) {
	sys.mu.Lock()
	defer sys.mu.Unlock()

	sys.log(LevelInfo, nil, fmt.Sprintf("new login with %q", name))

	uid, err := sys.directory.Login(name, password)
	if err != nil {
		sys.log(LevelError, nil, fmt.Sprintf("login with %q => failed", name))
		return "", 0, err
	}

	sys.lastLogin[uid] = sys.now()
	credential := Credential(uuid.NewString())
	sys.credentials[credential] = uid

	sys.log(LevelInfo, &uid, fmt.Sprintf("login with %q => ok", name))
	return credential, uid, nil
}

// Submit resolves a session credential and dispatches the action under the
// resolved user id. Unknown credentials fail exactly like missing
// sessions.
func (sys *System) Submit(credential Credential, action Action) (Result, error) {
	sys.mu.Lock()
	defer sys.mu.Unlock()

	uid, exists := sys.credentials[credential]
	if !exists {
		return Result{}, errdefs.AuthRequired()
	}
	return sys.exec(uid, action)
}

// Exec dispatches one authenticated action. It is the (userId, Action)
// entry point for front ends that manage their own credential mapping.
func (sys *System) Exec(uid users.ID, action Action) (Result, error) {
	sys.mu.Lock()
	defer sys.mu.Unlock()

	return sys.exec(uid, action)
}

// exec runs the session gate, routes the action and appends the audit
// entry. Callers hold the lock. The audit entry records success or
// failure, never the error text.
func (sys *System) exec(uid users.ID, action Action) (Result, error) {
	var result Result
	err := sys.gate(uid)
	if err == nil {
		result, err = sys.dispatch(uid, action)
	}

	if err == nil {
		sys.log(LevelInfo, &uid, fmt.Sprintf("action %s => ok", action))
	} else {
		sys.log(LevelError, &uid, fmt.Sprintf("action %s => failed", action))
	}
	return result, err
}

// gate rejects callers with no recorded login or an expired one. Expiry is
// measured from login time (absolute lifetime, not idle timeout) and
// evaluated lazily here, not by a timer. Expired entries are dropped so
// the table doesn't accumulate stale sessions.
func (sys *System) gate(uid users.ID) error {
	loginTime, exists := sys.lastLogin[uid]
	if !exists {
		return errdefs.AuthRequired()
	}
	if sys.now().Sub(loginTime) > sys.window {
		delete(sys.lastLogin, uid)
		return errdefs.AuthRequired()
	}
	return nil
}

// dispatch routes an action to the node store or the user directory.
// Collaborator failures propagate unchanged in kind and message.
func (sys *System) dispatch(uid users.ID, action Action) (Result, error) {
	switch action.Op {
	case OpRead:
		text, err := sys.fs.Read(uid, action.Path)
		if err != nil {
			return Result{}, err
		}
		return readResult(text), nil

	case OpWrite:
		return okResult(), sys.fs.Write(uid, action.Path, action.Data)

	case OpRemove:
		return okResult(), sys.fs.Remove(uid, action.Path)

	case OpNewFile:
		return okResult(), sys.fs.NewFile(uid, action.Path)

	case OpNewDir:
		return okResult(), sys.fs.NewDir(uid, action.Path)

	case OpExec:
		return okResult(), sys.fs.Exec(uid, action.Path)

	case OpSetPerms:
		targetUID, err := sys.directory.IDOf(action.Username)
		if err != nil {
			return Result{}, err
		}
		return okResult(), sys.fs.SetPerms(uid, targetUID, action.Path, action.Perms)

	case OpList:
		entries, err := sys.fs.List(uid, action.Path)
		if err != nil {
			return Result{}, err
		}
		return listResult(entries), nil

	case OpAddUser:
		if uid != users.AdminID {
			return Result{}, errdefs.NotAuthorized("only admin can manage users")
		}
		// New accounts start with an empty password; the user sets a
		// real one via ChangePassword.
		_, err := sys.directory.AddUser(action.Username, "")
		return okResult(), err

	case OpChangePassword:
		return okResult(), sys.directory.ChangePassword(uid, action.OldPassword, action.NewPassword)

	case OpUnblock:
		if uid != users.AdminID {
			return Result{}, errdefs.NotAuthorized("only admin can unblock the user")
		}
		return okResult(), sys.directory.Unblock(action.Username)

	case OpLogs:
		if uid != users.AdminID {
			return Result{}, errdefs.NotAuthorized("only admin can view the logs")
		}
		return logsResult(sys.audit.Entries()), nil

	default:
		return Result{}, &errdefs.Error{Code: errdefs.CodeNotFound, Message: "unknown action"}
	}
}

// log appends one audit entry stamped with the system clock.
func (sys *System) log(level Level, uid *users.ID, message string) {
	sys.audit.Append(LogEntry{Level: level, UID: uid, Message: message, Time: sys.now()})
}
