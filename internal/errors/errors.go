package errors

import "errors"

// Authentication errors.
var (
	ErrAuthExpired = errors.New("authentication token rejected by server")
	ErrNoToken     = errors.New("no authentication token available")
)

// Per-item errors.
var (
	ErrItemVanished = errors.New("local item can no longer be read")
)

// Server/transport errors.
var (
	ErrAPIRequest  = errors.New("API request failed")
	ErrAPIResponse = errors.New("unexpected API response")
)
