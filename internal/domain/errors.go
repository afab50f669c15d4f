// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the request is valid but the resource is not in a
// state that allows it, such as confirming a session whose draft is not
// ready yet.
var ErrConflict = errors.New("conflict: request not allowed in current state")

// ErrSessionBusy indicates another turn is currently running for the session.
// Turns for the same session are serialized; callers should retry.
var ErrSessionBusy = errors.New("session busy: a turn is already in progress")

// ErrSessionClosed indicates the session reached a terminal state and no
// longer accepts requirement changes.
var ErrSessionClosed = errors.New("session closed to further changes")
