package node

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolViolation marks a reply-only payload that answers nothing
	// this node sent. It is fatal.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrOutput marks a failed write or flush of the output stream. It is fatal.
	ErrOutput = errors.New("output failure")
)

type ProtocolViolationError struct {
	Type      string
	Src       string
	InReplyTo *uint64
}

func (e *ProtocolViolationError) Error() string {
	if e.InReplyTo == nil {
		return fmt.Sprintf("%v: unsolicited %s from %s", ErrProtocolViolation, e.Type, e.Src)
	}
	return fmt.Sprintf("%v: unsolicited %s from %s in reply to %d", ErrProtocolViolation, e.Type, e.Src, *e.InReplyTo)
}

func (e *ProtocolViolationError) Is(target error) bool { return target == ErrProtocolViolation }
