package service

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrEmailTaken          = errors.New("email already taken")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrInvalidAudio        = errors.New("file must be an audio file")
	ErrAudioTooLarge       = errors.New("audio file is too large")
	ErrWordNotInAssignment = errors.New("word not in assignment")
)
