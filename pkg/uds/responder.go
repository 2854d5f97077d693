package uds

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/rubenm/goecu/pkg/dtc"
)

// Responder serves Read DTC Information requests against a loaded DTC
// table. The store is shared read-only, each request binds its own
// session, so one Responder may serve sequential requests forever.
type Responder struct {
	store *dtc.Store
	bind  Binder
	cfg   Config
	log   *zap.Logger
}

func New(store *dtc.Store, bind Binder, cfg Config, log *zap.Logger) *Responder {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.FlowControlTimeout <= 0 {
		cfg.FlowControlTimeout = DefaultConfig().FlowControlTimeout
	}
	if cfg.WaitAttempts == 0 {
		cfg.WaitAttempts = DefaultConfig().WaitAttempts
	}
	return &Responder{store: store, bind: bind, cfg: cfg, log: log}
}

// ReadDTC handles one service 0x19 request. data carries the sub-function
// and status mask as received after the SID. Exactly one response sequence
// is sent, or none when the request is malformed or the sub-function
// unsupported.
func (r *Responder) ReadDTC(ctx context.Context, reqID uint32, data []byte) error {
	sess, err := r.bind(reqID)
	if err != nil {
		return fmt.Errorf("bind 0x%03X: %w", reqID, err)
	}
	defer sess.Release()

	if len(data) < 2 {
		r.log.Debug("dropping short request", zap.Uint32("id", reqID), zap.Int("len", len(data)))
		return fmt.Errorf("%w: %d bytes", ErrMalformedRequest, len(data))
	}
	sub, mask := SubFunction(data[0]), data[1]

	switch sub {
	case ReportNumberOfDTCByStatusMask:
		return r.reportCount(ctx, sess, mask)
	case ReportDTCByStatusMask:
		return r.reportByMask(ctx, sess, mask)
	default:
		r.log.Info("ignoring request", zap.Uint32("id", reqID), zap.Stringer("subFunction", sub))
		return fmt.Errorf("%w: 0x%02X", ErrUnsupportedSubFunction, byte(sub))
	}
}

// reportCount answers sub-function 0x01. The payload is always 6 bytes and
// fits a single frame, a count of zero is a valid answer.
func (r *Responder) reportCount(ctx context.Context, sess Session, mask byte) error {
	payload := countPayload(mask, r.store.Count(mask))
	if err := r.send(ctx, sess, payload); err != nil {
		return fmt.Errorf("reportNumberOfDTCByStatusMask: %w", err)
	}
	return nil
}

// reportByMask answers sub-function 0x02. No matches still produce the
// 3-byte header as a single frame.
func (r *Responder) reportByMask(ctx context.Context, sess Session, mask byte) error {
	payload := reportPayload(mask, r.store.Filter(mask))
	if err := r.send(ctx, sess, payload); err != nil {
		return fmt.Errorf("reportDTCByStatusMask: %w", err)
	}
	return nil
}

func countPayload(mask byte, count int) []byte {
	payload := make([]byte, 0, 6)
	payload = append(payload, ResponseSID, byte(ReportNumberOfDTCByStatusMask), mask, dtcCountFormat)
	return binary.BigEndian.AppendUint16(payload, uint16(count))
}

func reportPayload(mask byte, records []dtc.Record) []byte {
	payload := make([]byte, 0, 3+dtc.RecordSize*len(records))
	payload = append(payload, ResponseSID, byte(ReportDTCByStatusMask), mask)
	for _, rec := range records {
		payload = append(payload, rec.Encode()...)
	}
	return payload
}
