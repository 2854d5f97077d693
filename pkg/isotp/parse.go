package isotp

import (
	"fmt"
	"time"
)

// Frame is one decoded ISO-TP protocol data unit.
type Frame interface{}

type Single struct {
	Data []byte
}

type First struct {
	TotalSize int
	Data      []byte
}

type Consecutive struct {
	SequenceNumber int
	Data           []byte
}

type FlowControl struct {
	Status    FlowStatus
	BlockSize int
	STmin     time.Duration
}

// Valid reports whether the status nibble is one of the three defined
// flow-control states.
func (f *FlowControl) Valid() bool {
	switch f.Status {
	case FlowContinue, FlowWait, FlowOverflow:
		return true
	}
	return false
}

// Parse decodes the payload bytes of one CAN frame into a typed ISO-TP
// frame.
func Parse(payload []byte) (Frame, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	switch payload[0] & 0xF0 {
	case typeSingleFrame:
		length := int(payload[0] & 0x0F)
		if length == 0 || len(payload)-1 < length {
			return nil, fmt.Errorf("single frame length %d does not match payload of %d bytes", length, len(payload)-1)
		}
		return &Single{Data: payload[1 : 1+length]}, nil
	case typeFirstFrame:
		if len(payload) < 2 {
			return nil, fmt.Errorf("first frame shorter than 2 bytes")
		}
		total := int(payload[0]&0x0F)<<8 | int(payload[1])
		if total <= SingleFrameMax {
			return nil, fmt.Errorf("first frame announcing %d bytes, must exceed a single frame", total)
		}
		return &First{TotalSize: total, Data: payload[2:]}, nil
	case typeConsecutiveFrame:
		return &Consecutive{SequenceNumber: int(payload[0] & 0x0F), Data: payload[1:]}, nil
	case typeFlowControl:
		if len(payload) < 3 {
			return nil, fmt.Errorf("flow control shorter than 3 bytes")
		}
		return &FlowControl{
			Status:    FlowStatus(payload[0] & 0x0F),
			BlockSize: int(payload[1]),
			STmin:     DecodeSTmin(payload[2]),
		}, nil
	}
	return nil, fmt.Errorf("unknown PCI type 0x%02X", payload[0]&0xF0)
}
