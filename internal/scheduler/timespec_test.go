package scheduler

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "30", want: 30 * time.Minute},
		{in: "05:30", want: 5*time.Minute + 30*time.Second},
		{in: "01:02:03", want: time.Hour + 2*time.Minute + 3*time.Second},
		{in: "2-03", want: 51 * time.Hour},
		{in: "1-02:03", want: 26*time.Hour + 3*time.Minute},
		{in: "1-02:03:04", want: 26*time.Hour + 3*time.Minute + 4*time.Second},
		{in: " 00:01:05 ", want: 65 * time.Second},
		{in: "UNLIMITED", wantErr: true},
		{in: "1:2:3:4", wantErr: true},
		{in: "x-01:00:00", wantErr: true},
		{in: "01::00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeSpec(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTimeFormat) {
					t.Errorf("ParseTimeSpec(%q) error = %v, want ErrInvalidTimeFormat", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeSpec(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTimeSpec(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatTimeSpec(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 0, want: ""},
		{in: -time.Second, want: ""},
		{in: 90 * time.Minute, want: "01:30:00"},
		{in: 26*time.Hour + 5*time.Second, want: "1-02:00:05"},
		{in: 1500 * time.Millisecond, want: "00:00:01"},
	}
	for _, tt := range tests {
		if got := FormatTimeSpec(tt.in); got != tt.want {
			t.Errorf("FormatTimeSpec(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTimeSpecRoundTrip(t *testing.T) {
	for _, d := range []time.Duration{time.Second, 59 * time.Minute, 36 * time.Hour, 7*24*time.Hour + time.Minute} {
		got, err := ParseTimeSpec(FormatTimeSpec(d))
		if err != nil || got != d {
			t.Errorf("round trip %v = %v, %v", d, got, err)
		}
	}
}
