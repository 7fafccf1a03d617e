package db

import (
	"context"
	"time"
)

// Conn is a connected handle to a Redis-compatible server with the search module loaded.
type Conn interface {
	Pinger
	Commander
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Commander sends raw commands and returns raw replies.
//
// Replies are decoded into plain Go values: int64 for integers, string for simple and
// bulk strings, []any for arrays and nil for null replies. A server error reply is
// returned as *ServerError, a transport failure as *Error.
type Commander interface {
	Do(ctx context.Context, cmd Command) (any, error)
	// DoMulti sends all commands in one pipelined round trip. The returned slice has one
	// Reply per command, in order.
	DoMulti(ctx context.Context, cmds ...Command) []Reply
}

// Command is a named command with its positional arguments.
type Command struct {
	Name string
	Args []string
}

// NewCommand builds a Command.
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Reply is one pipelined reply.
type Reply struct {
	Value any
	Err   error
}
