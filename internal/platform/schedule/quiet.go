package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const hoursPerDay = 24

// Errors for quiet-hour range validation.
var (
	ErrQuietFormat = errors.New(`quiet hours must be "HH-HH"`)
	ErrQuietHour   = errors.New("quiet hour out of range")
)

// QuietHours is a time-of-day range during which hourly digest firings are
// suppressed. The range is start-inclusive, end-exclusive, and supports
// overnight wraparound ("23-07" quiets 23:00 up to 07:00). A zero value is
// disabled.
type QuietHours struct {
	start   int
	end     int
	enabled bool
}

// ParseQuietHours parses a "HH-HH" range. An empty string disables quiet
// hours.
func ParseQuietHours(s string) (QuietHours, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return QuietHours{}, nil
	}

	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return QuietHours{}, ErrQuietFormat
	}

	start, err := parseHour(parts[0])
	if err != nil {
		return QuietHours{}, err
	}

	end, err := parseHour(parts[1])
	if err != nil {
		return QuietHours{}, err
	}

	return QuietHours{start: start, end: end, enabled: true}, nil
}

// Enabled reports whether a quiet range is configured.
func (q QuietHours) Enabled() bool {
	return q.enabled
}

// Contains reports whether t's hour falls inside the quiet range.
func (q QuietHours) Contains(t time.Time) bool {
	if !q.enabled {
		return false
	}

	h := t.Hour()

	if q.start <= q.end {
		return h >= q.start && h < q.end
	}

	// Overnight wraparound, e.g. 23-07.
	return h >= q.start || h < q.end
}

// String renders the range back in "HH-HH" form, or "" when disabled.
func (q QuietHours) String() string {
	if !q.enabled {
		return ""
	}

	return fmt.Sprintf("%02d-%02d", q.start, q.end)
}

func parseHour(s string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrQuietFormat
	}

	if h < 0 || h >= hoursPerDay {
		return 0, ErrQuietHour
	}

	return h, nil
}
