package system

import (
	"fmt"

	"github.com/cairnfs/cairn/pkg/access"
	"github.com/cairnfs/cairn/pkg/store"
)

// Op enumerates the closed set of action variants.
type Op uint8

const (
	OpRead Op = iota
	OpWrite
	OpRemove
	OpNewFile
	OpNewDir
	OpExec
	OpSetPerms
	OpList
	OpAddUser
	OpChangePassword
	OpUnblock
	OpLogs
)

// Action is one request submitted to the dispatcher. Op selects the
// variant; only the fields that variant uses are meaningful.
type Action struct {
	Op Op

	// Path is the target path for filesystem actions.
	Path string

	// Data is the Write payload.
	Data string

	// Username names the target account for SetPerms, AddUser and
	// Unblock.
	Username string

	// Perms is the permission set for SetPerms.
	Perms access.Perms

	// OldPassword and NewPassword belong to ChangePassword.
	OldPassword string
	NewPassword string
}

// Constructors for the action variants. These are the only supported ways
// to build an Action.

func ReadAction(path string) Action    { return Action{Op: OpRead, Path: path} }
func RemoveAction(path string) Action  { return Action{Op: OpRemove, Path: path} }
func NewFileAction(path string) Action { return Action{Op: OpNewFile, Path: path} }
func NewDirAction(path string) Action  { return Action{Op: OpNewDir, Path: path} }
func ExecAction(path string) Action    { return Action{Op: OpExec, Path: path} }
func ListAction(path string) Action    { return Action{Op: OpList, Path: path} }
func LogsAction() Action               { return Action{Op: OpLogs} }

func WriteAction(path, data string) Action {
	return Action{Op: OpWrite, Path: path, Data: data}
}

func SetPermsAction(path, username string, perms access.Perms) Action {
	return Action{Op: OpSetPerms, Path: path, Username: username, Perms: perms}
}

func AddUserAction(username string) Action {
	return Action{Op: OpAddUser, Username: username}
}

func ChangePasswordAction(old, new string) Action {
	return Action{Op: OpChangePassword, OldPassword: old, NewPassword: new}
}

func UnblockAction(username string) Action {
	return Action{Op: OpUnblock, Username: username}
}

// String renders a short human-readable description of the action kind.
// It is used verbatim as the audit message. Write payloads and passwords
// never appear here.
func (a Action) String() string {
	switch a.Op {
	case OpRead:
		return fmt.Sprintf("read(%q)", a.Path)
	case OpWrite:
		return fmt.Sprintf("write(%q)", a.Path)
	case OpRemove:
		return fmt.Sprintf("rm(%q)", a.Path)
	case OpNewFile:
		return fmt.Sprintf("new-file(%q)", a.Path)
	case OpNewDir:
		return fmt.Sprintf("new-dir(%q)", a.Path)
	case OpExec:
		return fmt.Sprintf("exec(%q)", a.Path)
	case OpSetPerms:
		return fmt.Sprintf("set-perms(%q, %q, %s)", a.Path, a.Username, a.Perms)
	case OpList:
		return fmt.Sprintf("ls(%q)", a.Path)
	case OpAddUser:
		return fmt.Sprintf("add-user(%q)", a.Username)
	case OpChangePassword:
		return "change-pass"
	case OpUnblock:
		return fmt.Sprintf("unblock(%q)", a.Username)
	case OpLogs:
		return "logs"
	default:
		return "unknown"
	}
}

// ResultKind discriminates the successful result variants.
type ResultKind uint8

const (
	// ResultOk carries no payload.
	ResultOk ResultKind = iota

	// ResultRead carries file text.
	ResultRead

	// ResultList carries directory entries.
	ResultList

	// ResultLogs carries audit entries.
	ResultLogs
)

// Result is the successful outcome of an action. Failures travel as
// errors, rendered by the transport as plain strings.
type Result struct {
	Kind    ResultKind
	Text    string
	Entries []store.Entry
	Logs    []LogEntry
}

func okResult() Result                       { return Result{Kind: ResultOk} }
func readResult(text string) Result          { return Result{Kind: ResultRead, Text: text} }
func listResult(e []store.Entry) Result      { return Result{Kind: ResultList, Entries: e} }
func logsResult(entries []LogEntry) Result   { return Result{Kind: ResultLogs, Logs: entries} }
