package memoize

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeOn},
		{in: "true", want: ModeOn},
		{in: "ON", want: ModeOn},
		{in: "false", want: ModeOff},
		{in: "off", want: ModeOff},
		{in: "0", want: ModeOff},
		{in: "REFRESH", want: ModeRefresh},
		{in: " refresh ", want: ModeRefresh},
		{in: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				var e *goerrors.Error
				if !goerrors.As(err, &e) || e.TextCode != TextCodeInvalidMode {
					t.Fatalf("ParseMode(%q) error = %v, want %s", tt.in, err, TextCodeInvalidMode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMode_Behaviour(t *testing.T) {
	tests := []struct {
		mode       Mode
		wantReads  bool
		wantWrites bool
	}{
		{mode: "", wantReads: true, wantWrites: true},
		{mode: ModeOn, wantReads: true, wantWrites: true},
		{mode: ModeOff, wantReads: false, wantWrites: false},
		{mode: ModeRefresh, wantReads: false, wantWrites: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			if got := tt.mode.reads(); got != tt.wantReads {
				t.Errorf("reads() = %v, want %v", got, tt.wantReads)
			}
			if got := tt.mode.writes(); got != tt.wantWrites {
				t.Errorf("writes() = %v, want %v", got, tt.wantWrites)
			}
		})
	}

	if Mode("sometimes").valid() {
		t.Error("unknown mode reported as valid")
	}
}
