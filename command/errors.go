package command

import (
	"fmt"
	"strings"

	"github.com/raniellyferreira/respkv/protocol"
)

// maxEchoedArgLen caps each argument quoted back in an unknown-command reply
const maxEchoedArgLen = 128

// Replier is implemented by errors that know their client-facing reply
type Replier interface {
	Reply() protocol.Frame
}

// ArityError reports a wrong number of arguments
type ArityError struct {
	Command string // lower case, e.g. "hmget" or "script|load"
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("ERR wrong number of arguments for '%s' command", e.Command)
}

// Reply returns the error as a SimpleError frame
func (e *ArityError) Reply() protocol.Frame {
	return protocol.SimpleError(oneLine(e.Error()))
}

// UnknownCommandError reports a command name missing from the command table
type UnknownCommandError struct {
	Name string
	Args []string
}

func (e *UnknownCommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ERR unknown command '%s', with args beginning with: ", truncate(e.Name))
	for _, arg := range e.Args {
		fmt.Fprintf(&b, "'%s' ", truncate(arg))
	}
	return b.String()
}

// Reply returns the error as a SimpleError frame
func (e *UnknownCommandError) Reply() protocol.Frame {
	return protocol.SimpleError(oneLine(e.Error()))
}

// ArgumentError reports an argument with an invalid shape or value. Message
// is the complete reply text, including its error code.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

// Reply returns the error as a SimpleError frame
func (e *ArgumentError) Reply() protocol.Frame {
	return protocol.SimpleError(oneLine(e.Message))
}

var (
	errNotArray      = &ArgumentError{Message: "ERR Protocol error: expected array of bulk strings"}
	errNotBulkString = &ArgumentError{Message: "ERR Protocol error: expected bulk string arguments"}
	errNotInteger    = &ArgumentError{Message: "ERR value is not an integer or out of range"}
	errNumKeys       = &ArgumentError{Message: "ERR Number of keys can't be negative or greater than args"}
	errSyntax        = &ArgumentError{Message: "ERR syntax error"}
)

func truncate(s string) string {
	if len(s) > maxEchoedArgLen {
		return s[:maxEchoedArgLen]
	}
	return s
}

// oneLine replaces line breaks, which would end a simple error early
func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
