package goecu

import (
	"context"
	"sync"
	"time"
)

// DefaultResponseOffset is the usual UDS physical addressing convention,
// requests on 0x7E0 are answered on 0x7E8.
const DefaultResponseOffset uint32 = 0x08

// Session binds a request/response identifier pair for the duration of one
// diagnostic exchange. It owns a subscriber for the request identifier's
// inbound traffic and must be released on every exit path.
type Session struct {
	bus         *Bus
	reqID       uint32
	respID      uint32
	sub         *Subscriber
	releaseOnce sync.Once
}

// AcquireSession binds reqID for inbound frames and reqID+offset for
// outbound frames. offset 0 falls back to DefaultResponseOffset.
func (b *Bus) AcquireSession(reqID uint32, offset uint32) (*Session, error) {
	select {
	case <-b.closeChan:
		return nil, ErrBusClosed
	default:
	}
	if offset == 0 {
		offset = DefaultResponseOffset
	}
	return &Session{
		bus:    b,
		reqID:  reqID,
		respID: reqID + offset,
		sub:    b.Subscribe(reqID),
	}, nil
}

// Send transmits payload on the response identifier.
func (s *Session) Send(ctx context.Context, payload []byte) error {
	return s.bus.Send(ctx, NewFrame(s.respID, payload, Outgoing))
}

// Wait blocks for one inbound frame on the request identifier, bounded by
// timeout.
func (s *Session) Wait(ctx context.Context, timeout time.Duration) (*CANFrame, error) {
	return s.sub.Wait(ctx, timeout)
}

// Release closes the session's subscriber. Safe to call more than once.
func (s *Session) Release() {
	s.releaseOnce.Do(func() {
		s.sub.Close()
	})
}
