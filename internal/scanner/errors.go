package scanner

import "errors"

var (
	// ErrTimeout means the session ended because an attempt timed out.
	ErrTimeout = errors.New("attempt timed out")

	// ErrAttemptFailed means the session ended on an unclassified failure.
	ErrAttemptFailed = errors.New("attempt failed")

	// ErrPasswordList means the password list could not be read.
	ErrPasswordList = errors.New("cannot read password list")
)
