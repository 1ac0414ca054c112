package github

import "errors"

// Sentinel errors for GitHub access.
var (
	// ErrGHNotFound indicates the gh CLI is not installed.
	ErrGHNotFound = errors.New("github: gh CLI not found")

	// ErrGHNotAuthenticated indicates gh has no valid credentials.
	ErrGHNotAuthenticated = errors.New("github: gh CLI not authenticated")

	// ErrPRNotFound indicates the pull request does not exist.
	ErrPRNotFound = errors.New("github: pull request not found")

	// ErrInvalidPRRef indicates an unparseable pull request reference.
	ErrInvalidPRRef = errors.New("github: invalid pull request reference")
)
