package models

import "errors"

var (
	// ErrRateLimited marks a request the remote rejected for frequency (HTTP 429).
	ErrRateLimited = errors.New("rate limited")
	// ErrStatusNotOK is returned when the listing envelope status is not "ok".
	ErrStatusNotOK = errors.New("api returned error status")
	// ErrUnexpectedStatus covers any other non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected http status")
	// ErrParse marks a fetched document whose content could not be extracted.
	ErrParse = errors.New("parse failure")
)
