// Package dtc holds the diagnostic trouble code table served by the
// responder.
package dtc

import (
	"fmt"
	"strconv"
	"strings"
)

// How to read DTC codes
//B0 B1    First DTC character
//-- --    -------------------
// 0  0    P - Powertrain
// 0  1    C - Chassis
// 1  0    B - Body
// 1  1    U - Network
//
// The next two bits carry the second character (0-3), each following
// nibble one hex character. A UDS DTC carries a third byte, the failure
// type, below the two code bytes.

const (
	// MaxCode is the largest 3-byte DTC code.
	MaxCode = 1<<24 - 1
	// RecordSize is the wire size of one encoded record.
	RecordSize = 4
)

var (
	systemChars = [4]byte{'P', 'C', 'B', 'U'}
	secondDigit = [4]byte{'0', '1', '2', '3'}
	hexDigits   = "0123456789ABCDEF"
)

// Record is one diagnostic trouble code with its status byte. Immutable
// value, 24-bit code.
type Record struct {
	Code   uint32
	Status byte
}

// CodeString renders the lettered form, e.g. 0x010203 -> "P0102:03".
// The failure-type suffix is omitted when zero.
func (r Record) CodeString() string {
	code := make([]byte, 5, 8)
	code[0] = systemChars[(r.Code>>22)&0x03]
	code[1] = secondDigit[(r.Code>>20)&0x03]
	code[2] = hexDigits[(r.Code>>16)&0x0F]
	code[3] = hexDigits[(r.Code>>12)&0x0F]
	code[4] = hexDigits[(r.Code>>8)&0x0F]
	if ft := byte(r.Code); ft != 0 {
		code = append(code, ':', hexDigits[ft>>4], hexDigits[ft&0x0F])
	}
	return string(code)
}

func (r Record) String() string {
	return fmt.Sprintf("%s status=0x%02X", r.CodeString(), r.Status)
}

// Encode returns the 4-byte wire form, 3 code bytes big-endian followed by
// the status byte.
func (r Record) Encode() []byte {
	return []byte{byte(r.Code >> 16), byte(r.Code >> 8), byte(r.Code), r.Status}
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Record, error) {
	if len(data) < RecordSize {
		return Record{}, fmt.Errorf("record needs %d bytes, got %d", RecordSize, len(data))
	}
	return Record{
		Code:   uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2]),
		Status: data[3],
	}, nil
}

// Match reports whether a status byte passes the requested mask. A zero
// mask matches nothing.
func Match(status, mask byte) bool {
	return status&mask != 0
}

// ParseRecord parses one text line of the DTC source, "<code> <status>".
// The code is either a raw 6-hex-digit value or a lettered code like
// "P0102" with an optional ":17" failure-type suffix, the status is a hex
// byte.
func ParseRecord(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Record{}, fmt.Errorf("want %q, got %d fields", "<code> <status>", len(fields))
	}
	code, err := parseCode(fields[0])
	if err != nil {
		return Record{}, err
	}
	status, err := strconv.ParseUint(fields[1], 16, 8)
	if err != nil {
		return Record{}, fmt.Errorf("status %q: not a hex byte", fields[1])
	}
	return Record{Code: code, Status: byte(status)}, nil
}

func parseCode(s string) (uint32, error) {
	if len(s) == 6 {
		if code, err := strconv.ParseUint(s, 16, 32); err == nil {
			return uint32(code), nil
		}
	}
	lettered, suffix, hasSuffix := strings.Cut(s, ":")
	if len(lettered) != 5 {
		return 0, fmt.Errorf("code %q: want 6 hex digits or a lettered code", s)
	}
	var code uint32
	switch lettered[0] {
	case 'P':
		code = 0
	case 'C':
		code = 1 << 22
	case 'B':
		code = 2 << 22
	case 'U':
		code = 3 << 22
	default:
		return 0, fmt.Errorf("code %q: first character must be P, C, B or U", s)
	}
	if lettered[1] < '0' || lettered[1] > '3' {
		return 0, fmt.Errorf("code %q: second character must be 0-3", s)
	}
	code |= uint32(lettered[1]-'0') << 20
	for i, shift := range []uint{16, 12, 8} {
		n, err := strconv.ParseUint(string(lettered[2+i]), 16, 8)
		if err != nil {
			return 0, fmt.Errorf("code %q: character %d is not a hex digit", s, 3+i)
		}
		code |= uint32(n) << shift
	}
	if hasSuffix {
		ft, err := strconv.ParseUint(suffix, 16, 8)
		if err != nil {
			return 0, fmt.Errorf("code %q: failure type %q is not a hex byte", s, suffix)
		}
		code |= uint32(ft)
	}
	return code, nil
}
