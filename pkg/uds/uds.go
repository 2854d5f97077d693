// Package uds implements the ECU side of UDS service 0x19, Read DTC
// Information (ISO 14229-1).
package uds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rubenm/goecu"
	"github.com/rubenm/goecu/pkg/isotp"
)

const (
	// ServiceReadDTCInformation is the request SID handled here.
	ServiceReadDTCInformation byte = 0x19
	// positiveResponseOffset turns a request SID into its response SID.
	positiveResponseOffset byte = 0x40
	// ResponseSID echoes the service in every positive response.
	ResponseSID byte = ServiceReadDTCInformation + positiveResponseOffset

	// dtcCountFormat is the fixed availability byte of the count response.
	dtcCountFormat byte = 0x00
)

// SubFunction selects the operation within service 0x19. The supported set
// is closed, everything else is an unsupported request.
type SubFunction byte

const (
	ReportNumberOfDTCByStatusMask SubFunction = 0x01
	ReportDTCByStatusMask         SubFunction = 0x02
)

func (s SubFunction) String() string {
	switch s {
	case ReportNumberOfDTCByStatusMask:
		return "reportNumberOfDTCByStatusMask"
	case ReportDTCByStatusMask:
		return "reportDTCByStatusMask"
	}
	return fmt.Sprintf("unsupported (0x%02X)", byte(s))
}

var (
	// ErrMalformedRequest marks a request too short to carry sub-function
	// and status mask. No response is sent.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrUnsupportedSubFunction marks a sub-function outside the supported
	// set. No response is sent, the caller decides whether to count or log.
	ErrUnsupportedSubFunction = errors.New("unsupported sub-function")
	// ErrFlowControlTimeout means no flow-control frame arrived within the
	// N_Bs window.
	ErrFlowControlTimeout = errors.New("flow control timeout")
	// ErrFlowControlMalformed means the frame received during negotiation
	// was not a valid flow-control frame.
	ErrFlowControlMalformed = errors.New("malformed flow control")
	// ErrFlowControlOverflow means the tester reported a receive buffer
	// overflow.
	ErrFlowControlOverflow = errors.New("flow control overflow")
	// ErrWaitLimitExceeded means the tester kept answering wait beyond the
	// configured number of negotiation attempts.
	ErrWaitLimitExceeded = errors.New("flow control wait limit exceeded")
)

// Session is one bound diagnostic exchange. *goecu.Session satisfies it,
// tests inject fakes.
type Session interface {
	Send(ctx context.Context, payload []byte) error
	Wait(ctx context.Context, timeout time.Duration) (*goecu.CANFrame, error)
	Release()
}

// Binder acquires a session for the given request identifier. Failure here
// is a setup error, nothing has been sent yet.
type Binder func(reqID uint32) (Session, error)

// Config holds the transmission policy knobs.
type Config struct {
	// FlowControlTimeout is the N_Bs window per negotiation attempt.
	FlowControlTimeout time.Duration
	// WaitAttempts bounds how many flow-control frames answering "wait"
	// are tolerated before the transmission is abandoned.
	WaitAttempts uint
}

func DefaultConfig() Config {
	return Config{
		FlowControlTimeout: isotp.DefaultFlowControlTimeout,
		WaitAttempts:       3,
	}
}
