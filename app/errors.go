package app

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is returned where there was a syntax error
var ErrSyntax = errors.New("syntax error")

// ErrWrongNumArgs is returned when the arg count is wrong
var ErrWrongNumArgs = errors.New("wrong number of arguments")

// ErrUnauthorized is returned when a client connection has not been authorized
var ErrUnauthorized = errors.New("unauthorized")

// ErrUnknownCommand is returned when a command is not known
var ErrUnknownCommand = errors.New("unknown command")

// ErrInvalid is returned when an operation has invalid arguments or options
var ErrInvalid = errors.New("invalid")

// ErrNoTransport is returned by CONNECT when no upstream is configured
var ErrNoTransport = errors.New("no transport configured")

func errUnknownCommand(args []string) error {
	return fmt.Errorf("%w '%s'", ErrUnknownCommand, strings.Join(args[:1], " "))
}

// respError renders err the way redis clients expect, with an ERR prefix
// unless the message already carries an upper case code.
func respError(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, ' '); i > 0 && strings.ToUpper(msg[:i]) == msg[:i] {
		return msg
	}
	return "ERR " + msg
}
