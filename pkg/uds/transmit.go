package uds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/rubenm/goecu/pkg/isotp"
)

// send transmits one response payload, segmented when it does not fit a
// single frame.
func (r *Responder) send(ctx context.Context, sess Session, payload []byte) error {
	if len(payload) <= isotp.SingleFrameMax {
		sf, err := isotp.SingleFrame(payload)
		if err != nil {
			return err
		}
		return sess.Send(ctx, sf)
	}
	return r.sendSegmented(ctx, sess, payload)
}

// sendSegmented runs the first-frame / flow-control / consecutive-frame
// sequence. The negotiation outcome is consumed once, the whole report
// goes out as a single block. Any negotiation failure abandons the
// transmission, consecutive frames are never retried piecemeal.
func (r *Responder) sendSegmented(ctx context.Context, sess Session, payload []byte) error {
	ff, err := isotp.FirstFrame(payload[:isotp.FirstFrameChunk], len(payload))
	if err != nil {
		return err
	}
	if err := sess.Send(ctx, ff); err != nil {
		return fmt.Errorf("first frame: %w", err)
	}

	fc, err := r.negotiate(ctx, sess)
	if err != nil {
		return err
	}

	rest := payload[isotp.FirstFrameChunk:]
	seq := 1
	for len(rest) > 0 {
		n := min(len(rest), isotp.ConsecutiveChunk)
		cf, err := isotp.ConsecutiveFrame(rest[:n], seq)
		if err != nil {
			return err
		}
		if err := sess.Send(ctx, cf); err != nil {
			return fmt.Errorf("consecutive frame %d: %w", seq, err)
		}
		rest = rest[n:]
		seq = (seq + 1) % 16
		if len(rest) > 0 && fc.STmin > 0 {
			timer := time.NewTimer(fc.STmin)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil
}

var errFlowWait = errors.New("flow control wait")

// negotiate blocks for the tester's flow-control frame after a first
// frame, one bounded wait per attempt. Only a "wait" answer leads to
// another attempt, everything else either finishes the handshake or kills
// the transmission.
func (r *Responder) negotiate(ctx context.Context, sess Session) (*isotp.FlowControl, error) {
	var fc *isotp.FlowControl
	err := retry.Do(
		func() error {
			frame, err := sess.Wait(ctx, r.cfg.FlowControlTimeout)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("%w: %v", ErrFlowControlTimeout, err))
			}
			parsed, err := isotp.Parse(frame.Data)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("%w: %v", ErrFlowControlMalformed, err))
			}
			ctrl, ok := parsed.(*isotp.FlowControl)
			if !ok || !ctrl.Valid() {
				return retry.Unrecoverable(fmt.Errorf("%w: % 02X", ErrFlowControlMalformed, frame.Data))
			}
			switch ctrl.Status {
			case isotp.FlowWait:
				r.log.Debug("tester answered wait", zap.Duration("window", r.cfg.FlowControlTimeout))
				return errFlowWait
			case isotp.FlowOverflow:
				return retry.Unrecoverable(ErrFlowControlOverflow)
			}
			fc = ctrl
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.cfg.WaitAttempts),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(0),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, errFlowWait) {
			return nil, ErrWaitLimitExceeded
		}
		return nil, err
	}
	return fc, nil
}
