package engine

import "errors"

var (
	// ErrMailboxFull is returned when a signal is dropped because the
	// inbound queue is saturated.
	ErrMailboxFull = errors.New("engine: mailbox full")

	// ErrClosed is returned by every inbound method after Close.
	ErrClosed = errors.New("engine: closed")
)
