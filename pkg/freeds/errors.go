package freeds

import (
	"errors"
)

var (
	ErrUnreachable          = errors.New("freeds: device unreachable")
	ErrAuthFailed           = errors.New("freeds: authentication failed")
	ErrProtocolUnrecognized = errors.New("freeds: protocol unrecognized")
	ErrReadFailure          = errors.New("freeds: read failure")
	ErrParseFailure         = errors.New("freeds: parse failure")
)

// IsAuthError reports whether err was caused by the device rejecting the credentials.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}

// IsConnectionError reports whether err is a transport level failure that is
// retried by the supervisor.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrReadFailure)
}
