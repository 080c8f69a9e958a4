// Package treeerr defines the sentinel errors the core recognizes, per the
// error handling design: malformed commands, not-found/already-present
// business outcomes, and resource-limit rejections are all recoverable and
// reported to the client as text; they are never wrapped or retried.
package treeerr

import "errors"

var (
	// ErrAlreadyPresent is returned by Tree.Insert when the key already exists.
	ErrAlreadyPresent = errors.New("already in database")

	// ErrNotFound is returned by Tree.Remove when the key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrKeyTooLong is returned by Tree.Insert when the key exceeds MaxEntryLen.
	ErrKeyTooLong = errors.New("key too long")

	// ErrValueTooLong is returned by Tree.Insert when the value exceeds MaxEntryLen.
	ErrValueTooLong = errors.New("value too long")
)
