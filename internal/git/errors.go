package git

import (
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// Typed push errors enabling structured classification without string
// parsing upstream. Push failures never fail a cycle; the types exist so
// logs can distinguish an unconfigured remote from a rejected update.

type NoRemoteError struct {
	Remote string
	Err    error
}

func (e *NoRemoteError) Error() string {
	return fmt.Sprintf("push: remote %q not configured: %v", e.Remote, e.Err)
}
func (e *NoRemoteError) Unwrap() error { return e.Err }

type AuthError struct {
	Remote string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("push auth error for remote %q: %v", e.Remote, e.Err)
}
func (e *AuthError) Unwrap() error { return e.Err }

type NetworkError struct {
	Remote string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("push network error for remote %q: %v", e.Remote, e.Err)
}
func (e *NetworkError) Unwrap() error { return e.Err }

type RejectedError struct {
	Remote string
	Branch string
	Err    error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("push rejected for %s@%s: %v", e.Branch, e.Remote, e.Err)
}
func (e *RejectedError) Unwrap() error { return e.Err }

// classifyPushError wraps push failures into typed variants when possible.
func classifyPushError(remote, branch string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gogit.ErrRemoteNotFound) {
		return &NoRemoteError{Remote: remote, Err: err}
	}
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "remote not found") || strings.Contains(l, "repository does not exist"):
		return &NoRemoteError{Remote: remote, Err: err}
	case strings.Contains(l, "authentication") || strings.Contains(l, "authorization") || strings.Contains(l, "could not read username") || strings.Contains(l, "invalid credentials"):
		return &AuthError{Remote: remote, Err: err}
	case strings.Contains(l, "non-fast-forward") || strings.Contains(l, "rejected"):
		return &RejectedError{Remote: remote, Branch: branch, Err: err}
	case strings.Contains(l, "timeout") || strings.Contains(l, "connection refused") || strings.Contains(l, "connection reset") || strings.Contains(l, "no route to host") || strings.Contains(l, "no such host"):
		return &NetworkError{Remote: remote, Err: err}
	default:
		return err
	}
}
