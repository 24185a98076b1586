package service

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	// ErrEmptyUsername is returned when Analyze is called without a player.
	ErrEmptyUsername = errors.New("username must not be empty")
	// ErrNotStarted is returned when Analyze runs before Start.
	ErrNotStarted = errors.New("service not started")
)
