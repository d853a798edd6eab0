// Package errdefs defines the domain error taxonomy shared by the node
// store, the user directory and the action dispatcher.
//
// These are business logic errors (path not found, permission denied,
// account blocked, ...) as opposed to infrastructure errors (disk error,
// corrupt snapshot). Transport layers render any of them as a plain
// human-readable string; no structured codes cross the process boundary.
package errdefs

import "errors"

// Code is the category of a domain error.
type Code int

const (
	// CodeNotFound indicates a path segment does not exist.
	CodeNotFound Code = iota

	// CodeTypeMismatch indicates file/directory confusion: an operation
	// expected a file but resolved a directory, or the other way around.
	CodeTypeMismatch

	// CodeAlreadyExists indicates the target name is already bound in
	// its parent directory.
	CodeAlreadyExists

	// CodePermissionDenied indicates a per-node capability check failed.
	CodePermissionDenied

	// CodeConflict indicates a structural conflict, currently only the
	// removal of a non-empty directory.
	CodeConflict

	// CodeAuthRequired covers missing sessions, expired sessions and bad
	// login credentials. The three are deliberately indistinguishable so
	// callers cannot probe which one occurred.
	CodeAuthRequired

	// CodeAccountBlocked indicates the account is locked out after
	// repeated failed logins and needs an administrator unblock.
	CodeAccountBlocked

	// CodeNotAuthorized indicates a non-administrator invoked an
	// administrator-only action.
	CodeNotAuthorized

	// CodeUserNotFound indicates a username argument names no account.
	CodeUserNotFound
)

// Error is the single error type produced by the core. Path is optional
// and only set when a filesystem path is involved.
type Error struct {
	Code    Code
	Message string
	Path    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// NotFound returns a CodeNotFound error for the given path.
func NotFound(path string) *Error {
	return &Error{Code: CodeNotFound, Message: "no such file or directory", Path: path}
}

// TypeMismatch returns a CodeTypeMismatch error with a specific message
// ("is not a regular file", "is not a directory").
func TypeMismatch(message, path string) *Error {
	return &Error{Code: CodeTypeMismatch, Message: message, Path: path}
}

// AlreadyExists returns a CodeAlreadyExists error for the given path.
func AlreadyExists(path string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: "file exists", Path: path}
}

// PermissionDenied returns a CodePermissionDenied error for the given path.
func PermissionDenied(path string) *Error {
	return &Error{Code: CodePermissionDenied, Message: "permission denied", Path: path}
}

// Conflict returns a CodeConflict error for the given path.
func Conflict(message, path string) *Error {
	return &Error{Code: CodeConflict, Message: message, Path: path}
}

// AuthRequired returns a CodeAuthRequired error. The same message is used
// for missing and expired sessions.
func AuthRequired() *Error {
	return &Error{Code: CodeAuthRequired, Message: "authentication required"}
}

// BadCredentials returns a CodeAuthRequired error with the generic login
// failure message. Unknown usernames and wrong passwords produce this very
// error so login cannot be used to enumerate accounts.
func BadCredentials() *Error {
	return &Error{Code: CodeAuthRequired, Message: "wrong username or password"}
}

// AccountBlocked returns a CodeAccountBlocked error.
func AccountBlocked() *Error {
	return &Error{Code: CodeAccountBlocked, Message: "account is blocked"}
}

// NotAuthorized returns a CodeNotAuthorized error with the given message.
func NotAuthorized(message string) *Error {
	return &Error{Code: CodeNotAuthorized, Message: message}
}

// UserNotFound returns a CodeUserNotFound error for the given username.
func UserNotFound(username string) *Error {
	return &Error{Code: CodeUserNotFound, Message: "user " + username + " doesn't exist"}
}

// codeOf extracts the Code from err, or -1 if err is not a domain error.
func codeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return Code(-1)
}

// IsNotFound reports whether err is a CodeNotFound domain error.
func IsNotFound(err error) bool { return codeOf(err) == CodeNotFound }

// IsTypeMismatch reports whether err is a CodeTypeMismatch domain error.
func IsTypeMismatch(err error) bool { return codeOf(err) == CodeTypeMismatch }

// IsAlreadyExists reports whether err is a CodeAlreadyExists domain error.
func IsAlreadyExists(err error) bool { return codeOf(err) == CodeAlreadyExists }

// IsPermissionDenied reports whether err is a CodePermissionDenied domain error.
func IsPermissionDenied(err error) bool { return codeOf(err) == CodePermissionDenied }

// IsConflict reports whether err is a CodeConflict domain error.
func IsConflict(err error) bool { return codeOf(err) == CodeConflict }

// IsAuthRequired reports whether err is a CodeAuthRequired domain error.
func IsAuthRequired(err error) bool { return codeOf(err) == CodeAuthRequired }

// IsAccountBlocked reports whether err is a CodeAccountBlocked domain error.
func IsAccountBlocked(err error) bool { return codeOf(err) == CodeAccountBlocked }

// IsNotAuthorized reports whether err is a CodeNotAuthorized domain error.
func IsNotAuthorized(err error) bool { return codeOf(err) == CodeNotAuthorized }

// IsUserNotFound reports whether err is a CodeUserNotFound domain error.
func IsUserNotFound(err error) bool { return codeOf(err) == CodeUserNotFound }
