package errors

import "fmt"

var (
	ErrWorkerPanic   = fmt.Errorf("worker panic")
	ErrServerFull    = fmt.Errorf("no free session slot")
	ErrNoHistory     = fmt.Errorf("no history for room")
	ErrBadRoomName   = fmt.Errorf("room name contains path characters")
	ErrEmptyWords    = fmt.Errorf("no words have been found")
	ErrFilterNoReply = fmt.Errorf("filter produced no output")
	ErrMalformedLine = fmt.Errorf("malformed protocol line")
)
