package goecu

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"sync"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/candevice"
	"go.einride.tech/can/pkg/socketcan"
	"go.uber.org/zap"
)

type BusConfig struct {
	Interface string
	// Bitrate in bit/s. 0 leaves the link configuration untouched, for
	// interfaces managed outside of this process (vcan, ip link).
	Bitrate uint32
}

// Bus wraps one socketcan connection. Identifier filtering is done in
// software on the subscriber side, the kernel socket receives everything.
type Bus struct {
	cfg BusConfig

	dev  *candevice.Device
	conn net.Conn
	tx   *socketcan.Transmitter
	rx   *socketcan.Receiver

	fh  *handler
	log *zap.Logger

	closeOnce sync.Once
	closeChan chan struct{}
}

// OpenBus dials the named CAN interface and starts the receive loop. A
// missing interface or a rejected socket option is a setup error, no
// frames have been sent or received when it is returned.
func OpenBus(ctx context.Context, cfg BusConfig, log *zap.Logger) (*Bus, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := net.InterfaceByName(cfg.Interface); err != nil {
		return nil, fmt.Errorf("interface %q: %w", cfg.Interface, err)
	}

	b := &Bus{
		cfg:       cfg,
		fh:        newHandler(log),
		log:       log,
		closeChan: make(chan struct{}),
	}

	if cfg.Bitrate > 0 {
		dev, err := candevice.New(cfg.Interface)
		if err != nil {
			return nil, fmt.Errorf("candevice %q: %w", cfg.Interface, err)
		}
		if err := dev.SetBitrate(cfg.Bitrate); err != nil {
			return nil, fmt.Errorf("set bitrate: %w", err)
		}
		if err := dev.SetUp(); err != nil {
			return nil, fmt.Errorf("link up: %w", err)
		}
		b.dev = dev
	}

	conn, err := socketcan.DialContext(ctx, "can", cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("dial %q: %w", cfg.Interface, err)
	}
	b.conn = conn
	b.tx = socketcan.NewTransmitter(conn)
	b.rx = socketcan.NewReceiver(conn)

	go b.recvManager()
	return b, nil
}

// Subscribe registers a subscriber for the given identifiers. No
// identifiers means all traffic.
func (b *Bus) Subscribe(identifiers ...uint32) *Subscriber {
	ids := make(map[uint32]struct{}, len(identifiers))
	for _, id := range identifiers {
		ids[id] = struct{}{}
	}
	sub := &Subscriber{
		bus:          b,
		identifiers:  ids,
		responseChan: make(chan *CANFrame, 16),
	}
	b.fh.registerSubscriber(sub)
	return sub
}

func (b *Bus) Send(ctx context.Context, frame *CANFrame) error {
	select {
	case <-b.closeChan:
		return ErrBusClosed
	default:
	}
	f := can.Frame{
		ID:     frame.Identifier,
		Length: uint8(len(frame.Data)),
	}
	copy(f.Data[:], frame.Data)
	if err := b.tx.TransmitFrame(ctx, f); err != nil {
		return fmt.Errorf("transmit 0x%03X: %w", frame.Identifier, err)
	}
	return nil
}

func (b *Bus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.closeChan)
		b.fh.Close()
		err = b.conn.Close()
		if b.dev != nil {
			if derr := b.dev.SetDown(); derr != nil {
				b.log.Warn("link down failed", zap.Error(derr))
			}
		}
	})
	return err
}

func (b *Bus) recvManager() {
	runtime.LockOSThread()
	for {
		select {
		case <-b.closeChan:
			return
		default:
		}
		if !b.rx.Receive() {
			select {
			case <-b.closeChan:
			default:
				b.log.Warn("receive loop ended")
			}
			return
		}
		f := b.rx.Frame()
		b.fh.deliver(NewFrame(f.ID, f.Data[:f.Length], Incoming))
	}
}
