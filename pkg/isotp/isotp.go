// Package isotp implements the ISO 15765-2 framing layer used to move
// diagnostic payloads over classic CAN. It only deals with payload bytes,
// raw frame construction and socket handling live elsewhere.
package isotp

import (
	"fmt"
	"time"
)

const (
	typeSingleFrame      = 0x00
	typeFirstFrame       = 0x10
	typeConsecutiveFrame = 0x20
	typeFlowControl      = 0x30

	// MaxDataLength is the data capacity of a classic CAN frame.
	MaxDataLength = 8
	// SingleFrameMax is the biggest payload that still fits a single frame.
	SingleFrameMax = MaxDataLength - 1
	// FirstFrameChunk is the payload carried by a first frame.
	FirstFrameChunk = MaxDataLength - 2
	// ConsecutiveChunk is the payload carried by each consecutive frame.
	ConsecutiveChunk = MaxDataLength - 1

	// maxFirstFrameLength is the 12-bit first-frame length limit.
	maxFirstFrameLength = 0xFFF
)

// DefaultFlowControlTimeout is the N_Bs window, how long the sender waits
// for a flow-control frame after a first frame (ISO 15765-2 recommended
// value).
const DefaultFlowControlTimeout = 1000 * time.Millisecond

// FlowStatus is the low nibble of a flow-control frame's first byte.
type FlowStatus byte

const (
	FlowContinue FlowStatus = 0x00
	FlowWait     FlowStatus = 0x01
	FlowOverflow FlowStatus = 0x02
)

func (f FlowStatus) String() string {
	switch f {
	case FlowContinue:
		return "continue to send"
	case FlowWait:
		return "wait"
	case FlowOverflow:
		return "overflow"
	}
	return fmt.Sprintf("invalid (0x%X)", byte(f))
}

// SingleFrame wraps data in a single-frame PCI header.
func SingleFrame(data []byte) ([]byte, error) {
	if len(data) > SingleFrameMax {
		return nil, fmt.Errorf("single frame payload %d exceeds %d bytes", len(data), SingleFrameMax)
	}
	payload := make([]byte, 0, 1+len(data))
	payload = append(payload, typeSingleFrame|byte(len(data)))
	payload = append(payload, data...)
	return payload, nil
}

// FirstFrame announces a segmented transfer of total bytes and carries the
// first chunk. total is encoded as a 12-bit length.
func FirstFrame(chunk []byte, total int) ([]byte, error) {
	if total > maxFirstFrameLength {
		return nil, fmt.Errorf("segmented payload %d exceeds %d bytes", total, maxFirstFrameLength)
	}
	if len(chunk) != FirstFrameChunk {
		return nil, fmt.Errorf("first frame chunk must be %d bytes, got %d", FirstFrameChunk, len(chunk))
	}
	payload := make([]byte, 0, MaxDataLength)
	payload = append(payload, typeFirstFrame|byte(total>>8&0x0F), byte(total&0xFF))
	payload = append(payload, chunk...)
	return payload, nil
}

// ConsecutiveFrame wraps a chunk with the modulo-16 sequence number.
func ConsecutiveFrame(chunk []byte, seq int) ([]byte, error) {
	if seq < 0 || seq > 15 {
		return nil, fmt.Errorf("sequence number %d out of range 0..15", seq)
	}
	if len(chunk) > ConsecutiveChunk {
		return nil, fmt.Errorf("consecutive frame chunk %d exceeds %d bytes", len(chunk), ConsecutiveChunk)
	}
	payload := make([]byte, 0, 1+len(chunk))
	payload = append(payload, typeConsecutiveFrame|byte(seq))
	payload = append(payload, chunk...)
	return payload, nil
}

// FlowControlFrame builds the 3-byte flow-control payload.
func FlowControlFrame(status FlowStatus, blockSize int, stMin time.Duration) []byte {
	return []byte{
		typeFlowControl | byte(status),
		byte(blockSize),
		EncodeSTmin(stMin),
	}
}

// EncodeSTmin encodes a separation time as the STmin byte. Values outside
// the encodable range collapse to the 127ms maximum.
func EncodeSTmin(d time.Duration) byte {
	ms := d.Milliseconds()
	if ms >= 0 && ms <= 127 {
		return byte(ms)
	}
	return 0x7F
}

// DecodeSTmin decodes the STmin byte. Reserved values are interpreted as
// the 127ms maximum per the standard.
func DecodeSTmin(b byte) time.Duration {
	if b <= 0x7F {
		return time.Duration(b) * time.Millisecond
	}
	if b >= 0xF1 && b <= 0xF9 {
		return time.Duration(b-0xF0) * 100 * time.Microsecond
	}
	return 127 * time.Millisecond
}
