package util

import "errors"

var (
	ErrInvalidMode         = errors.New("mode must be Test or Practice")
	ErrValidation          = errors.New("validation failed")
	ErrTestNotFound        = errors.New("test not found")
	ErrSessionNotFound     = errors.New("session not found or not active")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrNoEndlessQuestions  = errors.New("no published questions available")
	ErrAuthenticationError = errors.New("authentication required")
)
