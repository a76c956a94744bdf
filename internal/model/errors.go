package model

import "errors"

// Common errors used across the application
var (
	// Account errors
	ErrAccountNotFound = errors.New("account not found")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Submission errors
	ErrInvalidSubmission = errors.New("invalid submission data")
	ErrUnknownProblem    = errors.New("problem not found")
	ErrForbiddenUser     = errors.New("cannot submit for another user")

	// Catalog errors
	ErrProblemNotFound = errors.New("problem directory not found")
)
