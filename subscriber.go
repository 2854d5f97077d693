package goecu

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Subscriber struct {
	bus          *Bus
	identifiers  map[uint32]struct{}
	responseChan chan *CANFrame
	closeOnce    sync.Once
}

func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		s.bus.fh.unregisterSubscriber(s)
	})
}

func (s *Subscriber) Chan() <-chan *CANFrame {
	return s.responseChan
}

// Wait blocks until a frame is delivered, the timeout expires or ctx is
// cancelled. It never polls.
func (s *Subscriber) Wait(ctx context.Context, timeout time.Duration) (*CANFrame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait aborted: %w", ctx.Err())
	case <-timer.C:
		return nil, &TimeoutError{Timeout: timeout.Milliseconds(), Identifier: s.firstIdentifier()}
	case frame, ok := <-s.responseChan:
		if !ok {
			return nil, ErrResponseChannelClosed
		}
		return frame, nil
	}
}

func (s *Subscriber) firstIdentifier() uint32 {
	for id := range s.identifiers {
		return id
	}
	return 0
}
