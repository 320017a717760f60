package logger

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrUnsupportedLevel is returned if log.LogLevel is no zerolog level.
	ErrUnsupportedLevel = errors.New("log level is not supported")

	// ErrAppNameIsEmpty is returned if log.AppName was not defined.
	ErrAppNameIsEmpty = errors.New("config log.AppName can not be empty")

	// ErrServiceNameIsEmpty is returned if log.ServiceName was not defined.
	ErrServiceNameIsEmpty = errors.New("config log.ServiceName can not be empty")
)

// ErrorHandler reports events zerolog failed to write. It is installed as
// zerolog.ErrorHandler by Init.
func ErrorHandler(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "authchain: could not write log event: %v\n", err)
}
