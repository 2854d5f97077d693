package isotp

import (
	"bytes"
	"testing"
	"time"
)

func TestSingleFrame(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    []byte
		wantErr bool
	}{
		{
			name: "typical response",
			data: []byte{0x59, 0x01, 0x08, 0x00, 0x00, 0x01},
			want: []byte{0x06, 0x59, 0x01, 0x08, 0x00, 0x00, 0x01},
		},
		{
			name: "max payload",
			data: []byte{0x59, 0x02, 0xFF, 0x01, 0x02, 0x03, 0x08},
			want: []byte{0x07, 0x59, 0x02, 0xFF, 0x01, 0x02, 0x03, 0x08},
		},
		{
			name:    "too long",
			data:    make([]byte, 8),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SingleFrame(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SingleFrame() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("SingleFrame() = % 02X, want % 02X", got, tt.want)
			}
		})
	}
}

func TestFirstFrame(t *testing.T) {
	got, err := FirstFrame([]byte{0x59, 0x02, 0xFF, 0x01, 0x02, 0x03}, 11)
	if err != nil {
		t.Fatalf("FirstFrame() error = %v", err)
	}
	want := []byte{0x10, 0x0B, 0x59, 0x02, 0xFF, 0x01, 0x02, 0x03}
	if !bytes.Equal(got, want) {
		t.Errorf("FirstFrame() = % 02X, want % 02X", got, want)
	}

	if _, err := FirstFrame(make([]byte, FirstFrameChunk), maxFirstFrameLength+1); err == nil {
		t.Error("FirstFrame() accepted a payload beyond the 12-bit length")
	}
	if _, err := FirstFrame([]byte{0x01}, 11); err == nil {
		t.Error("FirstFrame() accepted a short chunk")
	}
}

func TestConsecutiveFrame(t *testing.T) {
	got, err := ConsecutiveFrame([]byte{0x08, 0x04, 0x05, 0x06, 0x01}, 1)
	if err != nil {
		t.Fatalf("ConsecutiveFrame() error = %v", err)
	}
	want := []byte{0x21, 0x08, 0x04, 0x05, 0x06, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("ConsecutiveFrame() = % 02X, want % 02X", got, want)
	}

	if _, err := ConsecutiveFrame([]byte{0x01}, 16); err == nil {
		t.Error("ConsecutiveFrame() accepted sequence number 16")
	}
	if _, err := ConsecutiveFrame(make([]byte, 8), 0); err == nil {
		t.Error("ConsecutiveFrame() accepted an oversized chunk")
	}
}

func TestFlowControlFrame(t *testing.T) {
	got := FlowControlFrame(FlowContinue, 0, 20*time.Millisecond)
	want := []byte{0x30, 0x00, 0x14}
	if !bytes.Equal(got, want) {
		t.Errorf("FlowControlFrame() = % 02X, want % 02X", got, want)
	}
}

func TestParseFlowControl(t *testing.T) {
	tests := []struct {
		name       string
		payload    []byte
		wantStatus FlowStatus
		wantValid  bool
		wantErr    bool
	}{
		{
			name:       "continue to send",
			payload:    []byte{0x30, 0x00, 0x00},
			wantStatus: FlowContinue,
			wantValid:  true,
		},
		{
			name:       "wait",
			payload:    []byte{0x31, 0x00, 0x00},
			wantStatus: FlowWait,
			wantValid:  true,
		},
		{
			name:       "overflow",
			payload:    []byte{0x32, 0x00, 0x7F},
			wantStatus: FlowOverflow,
			wantValid:  true,
		},
		{
			name:       "reserved status nibble",
			payload:    []byte{0x3F, 0x00, 0x00},
			wantStatus: FlowStatus(0x0F),
			wantValid:  false,
		},
		{
			name:    "truncated",
			payload: []byte{0x30, 0x00},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Parse(tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			fc, ok := parsed.(*FlowControl)
			if !ok {
				t.Fatalf("Parse() = %T, want *FlowControl", parsed)
			}
			if fc.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", fc.Status, tt.wantStatus)
			}
			if fc.Valid() != tt.wantValid {
				t.Errorf("Valid() = %v, want %v", fc.Valid(), tt.wantValid)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	payload := []byte{0x59, 0x02, 0xFF, 0x01, 0x02}
	sf, err := SingleFrame(payload)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Parse(sf)
	if err != nil {
		t.Fatal(err)
	}
	single, ok := parsed.(*Single)
	if !ok {
		t.Fatalf("Parse() = %T, want *Single", parsed)
	}
	if !bytes.Equal(single.Data, payload) {
		t.Errorf("round trip = % 02X, want % 02X", single.Data, payload)
	}
}

func TestParseFirstFrame(t *testing.T) {
	parsed, err := Parse([]byte{0x10, 0x0B, 0x59, 0x02, 0xFF, 0x01, 0x02, 0x03})
	if err != nil {
		t.Fatal(err)
	}
	ff, ok := parsed.(*First)
	if !ok {
		t.Fatalf("Parse() = %T, want *First", parsed)
	}
	if ff.TotalSize != 11 {
		t.Errorf("TotalSize = %d, want 11", ff.TotalSize)
	}
	if len(ff.Data) != FirstFrameChunk {
		t.Errorf("len(Data) = %d, want %d", len(ff.Data), FirstFrameChunk)
	}
}

func TestDecodeSTmin(t *testing.T) {
	tests := []struct {
		name string
		in   byte
		want time.Duration
	}{
		{"zero", 0x00, 0},
		{"20ms", 0x14, 20 * time.Millisecond},
		{"max ms", 0x7F, 127 * time.Millisecond},
		{"100us", 0xF1, 100 * time.Microsecond},
		{"900us", 0xF9, 900 * time.Microsecond},
		{"reserved", 0xAA, 127 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeSTmin(tt.in); got != tt.want {
				t.Errorf("DecodeSTmin(0x%02X) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
