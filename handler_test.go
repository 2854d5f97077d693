package goecu

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestBus() *Bus {
	return &Bus{
		fh:        newHandler(zap.NewNop()),
		log:       zap.NewNop(),
		closeChan: make(chan struct{}),
	}
}

func TestDeliverFiltered(t *testing.T) {
	bus := newTestBus()
	sub := bus.Subscribe(0x7E0)
	defer sub.Close()
	other := bus.Subscribe(0x123)
	defer other.Close()

	bus.fh.deliver(NewFrame(0x7E0, []byte{0x01}, Incoming))

	frame, err := sub.Wait(context.Background(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if frame.Identifier != 0x7E0 {
		t.Errorf("Identifier = 0x%03X, want 0x7E0", frame.Identifier)
	}

	select {
	case f := <-other.Chan():
		t.Errorf("subscriber for 0x123 received frame 0x%03X", f.Identifier)
	default:
	}
}

func TestDeliverGlobal(t *testing.T) {
	bus := newTestBus()
	sub := bus.Subscribe()
	defer sub.Close()

	bus.fh.deliver(NewFrame(0x7E0, []byte{0x01}, Incoming))
	bus.fh.deliver(NewFrame(0x123, []byte{0x02}, Incoming))

	for _, want := range []uint32{0x7E0, 0x123} {
		frame, err := sub.Wait(context.Background(), 100*time.Millisecond)
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if frame.Identifier != want {
			t.Errorf("Identifier = 0x%03X, want 0x%03X", frame.Identifier, want)
		}
	}
}

func TestWaitTimeout(t *testing.T) {
	bus := newTestBus()
	sub := bus.Subscribe(0x7E0)
	defer sub.Close()

	_, err := sub.Wait(context.Background(), 10*time.Millisecond)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("Wait() error = %v, want *TimeoutError", err)
	}
}

func TestWaitCancelled(t *testing.T) {
	bus := newTestBus()
	sub := bus.Subscribe(0x7E0)
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sub.Wait(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestSubscriberCloseIdempotent(t *testing.T) {
	bus := newTestBus()
	sub := bus.Subscribe(0x7E0)
	sub.Close()
	sub.Close()

	if _, err := sub.Wait(context.Background(), 10*time.Millisecond); !errors.Is(err, ErrResponseChannelClosed) {
		t.Fatalf("Wait() on closed subscriber error = %v, want %v", err, ErrResponseChannelClosed)
	}
}

func TestAcquireSession(t *testing.T) {
	bus := newTestBus()
	sess, err := bus.AcquireSession(0x7E0, 0)
	if err != nil {
		t.Fatalf("AcquireSession() error = %v", err)
	}
	defer sess.Release()

	if sess.respID != 0x7E8 {
		t.Errorf("respID = 0x%03X, want 0x7E8", sess.respID)
	}

	bus.fh.deliver(NewFrame(0x7E0, []byte{0x30, 0x00, 0x00}, Incoming))
	frame, err := sess.Wait(context.Background(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if frame.Identifier != 0x7E0 {
		t.Errorf("Identifier = 0x%03X, want 0x7E0", frame.Identifier)
	}

	sess.Release()
	sess.Release() // safe to call twice
}

func TestAcquireSessionClosedBus(t *testing.T) {
	bus := newTestBus()
	close(bus.closeChan)
	if _, err := bus.AcquireSession(0x7E0, 0); !errors.Is(err, ErrBusClosed) {
		t.Fatalf("AcquireSession() error = %v, want %v", err, ErrBusClosed)
	}
}
