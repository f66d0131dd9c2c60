package errors

import "errors"

var (
	ErrSagaNotFound     = errors.New("saga not found")
	ErrSagaFinished     = errors.New("saga already reached a terminal status")
	ErrSagaStillRunning = errors.New("saga is still running")
)
