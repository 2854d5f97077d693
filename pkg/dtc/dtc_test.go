package dtc

import (
	"bytes"
	"testing"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Record
		wantErr bool
	}{
		{
			name: "raw hex code",
			line: "010203 08",
			want: Record{Code: 0x010203, Status: 0x08},
		},
		{
			name: "lettered powertrain",
			line: "P0102 24",
			want: Record{Code: 0x010200, Status: 0x24},
		},
		{
			name: "lettered with failure type",
			line: "U2103 01",
			want: Record{Code: 0xE10300, Status: 0x01},
		},
		{
			name: "lettered network with suffix",
			line: "C0561:17 2F",
			want: Record{Code: 0x456117, Status: 0x2F},
		},
		{
			name:    "missing status",
			line:    "P0102",
			wantErr: true,
		},
		{
			name:    "bad system letter",
			line:    "X0102 01",
			wantErr: true,
		},
		{
			name:    "second character out of range",
			line:    "P4102 01",
			wantErr: true,
		},
		{
			name:    "status not hex",
			line:    "P0102 zz",
			wantErr: true,
		},
		{
			name:    "code not hex",
			line:    "01020x 08",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRecord(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRecord(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestCodeString(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"powertrain", Record{Code: 0x010200}, "P0102"},
		{"network", Record{Code: 0xE10300}, "U2103"},
		{"with failure type", Record{Code: 0x456117}, "C0561:17"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.CodeString(); got != tt.want {
				t.Errorf("CodeString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRecordStringRoundTrip(t *testing.T) {
	for _, line := range []string{"P0102 24", "U2103:04 01", "B1A00 FF"} {
		rec, err := ParseRecord(line)
		if err != nil {
			t.Fatalf("ParseRecord(%q) error = %v", line, err)
		}
		again, err := ParseRecord(rec.CodeString() + " " + line[len(line)-2:])
		if err != nil {
			t.Fatalf("ParseRecord(%q) error = %v", rec.CodeString(), err)
		}
		if again != rec {
			t.Errorf("round trip %q = %+v, want %+v", line, again, rec)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	rec := Record{Code: 0x010203, Status: 0x08}
	encoded := rec.Encode()
	if want := []byte{0x01, 0x02, 0x03, 0x08}; !bytes.Equal(encoded, want) {
		t.Fatalf("Encode() = % 02X, want % 02X", encoded, want)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded != rec {
		t.Errorf("Decode() = %+v, want %+v", decoded, rec)
	}

	if _, err := Decode([]byte{0x01, 0x02}); err == nil {
		t.Error("Decode() accepted a short slice")
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		status, mask byte
		want         bool
	}{
		{0x08, 0x08, true},
		{0x08, 0xFF, true},
		{0x08, 0x01, false},
		{0x08, 0x00, false},
		{0x00, 0xFF, false},
	}
	for _, tt := range tests {
		if got := Match(tt.status, tt.mask); got != tt.want {
			t.Errorf("Match(0x%02X, 0x%02X) = %v, want %v", tt.status, tt.mask, got, tt.want)
		}
	}
}
