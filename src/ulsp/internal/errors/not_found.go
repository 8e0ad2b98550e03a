package errors

import (
	stderr "errors"
	"fmt"
)

// SessionNotFoundError is a repository error for a key with no stored session.
type SessionNotFoundError struct {
	Key string
}

// Error is an implementation of the error interface.
func (n *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", n.Key)
}

// NotFoundSession returns the missing key and true if SessionNotFoundError is part of the
// error chain.
func NotFoundSession(e error) (_ string, ok bool) {
	var nf *SessionNotFoundError
	if !stderr.As(e, &nf) {
		return "", false
	}
	return nf.Key, true
}
