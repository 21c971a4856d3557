package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures that callers are expected to branch on.
type ErrorKind int

const (
	KindDuplicateEmail ErrorKind = iota + 1
	KindInvalidRole
	KindInvalidCredentials
	KindInvalidRefreshToken
	KindRefreshTokenExpired
	KindTokenExpired
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
)

var kindNames = map[ErrorKind]string{
	KindDuplicateEmail:      "DuplicateEmail",
	KindInvalidRole:         "InvalidRole",
	KindInvalidCredentials:  "InvalidCredentials",
	KindInvalidRefreshToken: "InvalidRefreshToken",
	KindRefreshTokenExpired: "RefreshTokenExpired",
	KindTokenExpired:        "TokenExpired",
	KindUnauthenticated:     "Unauthenticated",
	KindForbidden:           "Forbidden",
	KindNotFound:            "NotFound",
	KindValidation:          "Validation",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a typed service failure. Message is safe to show to clients.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of err, or 0 when err is not a service error.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return 0
}

// IsKind reports whether err is a service error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// Client-facing messages shared by several operations.
const (
	MsgDuplicateEmail      = "User with this email already exists"
	MsgInvalidRole         = "Invalid role ID"
	MsgInvalidCredentials  = "Invalid email or password"
	MsgInvalidRefreshToken = "Invalid refresh token"
	MsgRefreshTokenExpired = "Refresh token expired"
	MsgUserNotFound        = "User not found"
)
