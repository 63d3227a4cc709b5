package names

import "errors"

var (
	// ErrInvalidArgument is returned for absent names and unrecognised thresholds.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConfigLoad is returned when the title or abbreviation table cannot be loaded.
	ErrConfigLoad = errors.New("configuration load failure")
	// ErrTooManyTokens is returned by Directory.Add for names above the token limit.
	ErrTooManyTokens = errors.New("too many name tokens")
	// ErrLengthMismatch is returned by Directory.AddNames when names and ids differ in length.
	ErrLengthMismatch = errors.New("names and ids length mismatch")
)
