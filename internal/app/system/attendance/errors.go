package attendance

import "errors"

// Errors returned by Service. Callers branch with errors.Is; store failures are
// wrapped so the underlying cause stays in the message.
var (
	// ErrInvalidCode means the one-time code did not verify. Nothing was written.
	ErrInvalidCode = errors.New("invalid one-time code")

	// ErrAlreadyCheckedIn means the user already has a record for the current day.
	ErrAlreadyCheckedIn = errors.New("already checked in today")

	// ErrInvalidRange means a day key is malformed or start is after end.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrEmptyRange means the range is valid but holds no records.
	ErrEmptyRange = errors.New("no attendance in range")

	// ErrAliasSave means the alias registry write failed. Safe to retry.
	ErrAliasSave = errors.New("alias save failed")

	// ErrStorageUnavailable means the attendance store could not be reached. Safe to retry.
	ErrStorageUnavailable = errors.New("attendance storage unavailable")
)
