package goecu

import (
	"errors"
	"fmt"
)

var (
	ErrBusClosed             = errors.New("bus is closed")
	ErrDroppedFrame          = errors.New("subscriber channel full, frame dropped")
	ErrResponseChannelClosed = errors.New("response channel closed")
	ErrSendTimeout           = errors.New("timeout sending frame")
)

type TimeoutError struct {
	Timeout    int64
	Identifier uint32
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout (%dms) waiting for frame 0x%03X", e.Timeout, e.Identifier)
}
