package domain

import "errors"

var (
	ErrStorage            = errors.New("storage error")
	ErrRemoteRateNotFound = errors.New("remote rate not found")
	ErrConflict           = errors.New("remote version conflict")
	ErrRejected           = errors.New("remote rejected request")
	ErrAuthentication     = errors.New("authentication failed")
	ErrAlreadyActive      = errors.New("currency already active")
	ErrRemoteUnavailable  = errors.New("remote ledger unavailable")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrCredentialConflict = errors.New("credential was changed concurrently")
	ErrInvalidRange       = errors.New("invalid date range")
)
