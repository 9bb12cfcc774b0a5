package schedule

import (
	"errors"
	"testing"
	"time"
)

func at(hour int) time.Time {
	return time.Date(2026, 3, 2, hour, 15, 0, 0, time.UTC)
}

func TestParseQuietHours(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		wantStr string
	}{
		{name: "empty disables", input: "", wantStr: ""},
		{name: "spaces only disables", input: "   ", wantStr: ""},
		{name: "overnight range", input: "23-07", wantStr: "23-07"},
		{name: "same-day range", input: "14-18", wantStr: "14-18"},
		{name: "spaced digits", input: " 9 - 17 ", wantStr: "09-17"},
		{name: "missing dash", input: "2307", wantErr: ErrQuietFormat},
		{name: "non-numeric", input: "aa-bb", wantErr: ErrQuietFormat},
		{name: "hour too large", input: "10-24", wantErr: ErrQuietHour},
		{name: "negative hour", input: "-1-5", wantErr: ErrQuietFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuietHours(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseQuietHours(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("ParseQuietHours(%q) returned error: %v", tt.input, err)
			}

			if q.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", q.String(), tt.wantStr)
			}
		})
	}
}

func TestQuietHoursContains(t *testing.T) {
	overnight, err := ParseQuietHours("23-07")
	if err != nil {
		t.Fatal(err)
	}

	sameDay, err := ParseQuietHours("14-18")
	if err != nil {
		t.Fatal(err)
	}

	var disabled QuietHours

	tests := []struct {
		name  string
		quiet QuietHours
		hour  int
		want  bool
	}{
		{name: "overnight late evening", quiet: overnight, hour: 23, want: true},
		{name: "overnight small hours", quiet: overnight, hour: 2, want: true},
		{name: "overnight end exclusive", quiet: overnight, hour: 7, want: false},
		{name: "overnight daytime", quiet: overnight, hour: 10, want: false},
		{name: "same-day inside", quiet: sameDay, hour: 16, want: true},
		{name: "same-day start inclusive", quiet: sameDay, hour: 14, want: true},
		{name: "same-day end exclusive", quiet: sameDay, hour: 18, want: false},
		{name: "same-day evening", quiet: sameDay, hour: 20, want: false},
		{name: "disabled never contains", quiet: disabled, hour: 3, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.quiet.Contains(at(tt.hour)); got != tt.want {
				t.Errorf("Contains(hour %d) = %v, want %v", tt.hour, got, tt.want)
			}
		})
	}
}

func TestQuietHoursEnabled(t *testing.T) {
	q, err := ParseQuietHours("23-07")
	if err != nil {
		t.Fatal(err)
	}

	if !q.Enabled() {
		t.Error("parsed range should be enabled")
	}

	if (QuietHours{}).Enabled() {
		t.Error("zero value should be disabled")
	}
}
