package util

import "errors"

var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrAnswerAlreadySubmitted = errors.New("answer already submitted for this student")
	ErrSessionFinished        = errors.New("session already finished")
)
