// Package timecode converts between textual timecodes and integer
// microsecond timestamps.
//
// A timecode is either a bare non-negative integer (microseconds) or a
// clock form "H:MM:SS" with an optional fractional part, for example
// "12:34:56.789000". All conversions are pure functions.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTimecode is returned when a string is neither a bare integer
// nor a clock-form timecode.
var ErrInvalidTimecode = errors.New("invalid timecode")

var clockPattern = regexp.MustCompile(`^(\d+):(\d+):(\d+)(?:\.(\d+))?$`)

const (
	microsPerSecond = int64(1000000)
	microsPerMinute = 60 * microsPerSecond
	microsPerHour   = 60 * microsPerMinute
)

// Parse converts a timecode string to microseconds.
//
// Accepted forms:
//   - a bare non-negative integer, interpreted directly as microseconds
//   - "H:MM:SS" with an optional fractional second part
//
// Fractional parts shorter than six digits are right-padded with zeros
// (they are the most significant digits of the microsecond value);
// parts longer than six digits are rounded to six.
func Parse(text string) (int64, error) {
	if text != "" && isDigits(text) {
		value, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimecode, text, err)
		}
		return value, nil
	}

	match := clockPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, fmt.Errorf("%w: expected an integer or a timecode (12:34:56.789000), got %q", ErrInvalidTimecode, text)
	}

	hours, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimecode, text, err)
	}
	minutes, err := strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimecode, text, err)
	}
	seconds, err := strconv.ParseInt(match[3], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimecode, text, err)
	}

	result := hours*microsPerHour + minutes*microsPerMinute + seconds*microsPerSecond

	if match[4] != "" {
		fraction := match[4]
		switch {
		case len(fraction) == 6:
			value, err := strconv.ParseInt(fraction, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimecode, text, err)
			}
			result += value
		case len(fraction) < 6:
			value, err := strconv.ParseInt(fraction+strings.Repeat("0", 6-len(fraction)), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimecode, text, err)
			}
			result += value
		default:
			value, err := strconv.ParseFloat("0."+fraction, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimecode, text, err)
			}
			result += int64(math.Round(value * 1e6))
		}
	}

	return result, nil
}

// Format renders a microsecond timestamp as a fixed-width timecode,
// "HH:MM:SS.ffffff". Hours grow beyond two digits when needed.
func Format(timestamp int64) string {
	hours := timestamp / microsPerHour
	timestamp -= hours * microsPerHour
	minutes := timestamp / microsPerMinute
	timestamp -= minutes * microsPerMinute
	seconds := timestamp / microsPerSecond
	timestamp -= seconds * microsPerSecond
	return fmt.Sprintf("%02d:%02d:%02d.%06d", hours, minutes, seconds, timestamp)
}

// FormatShort renders a microsecond timestamp with leading zero components
// and trailing zero fraction digits removed. Used for on-disk names where
// compactness matters more than fixed width.
//
// Examples: 5000000 -> "5", 61000000 -> "1:01", 3723456789 -> "1:02:03.456789".
func FormatShort(timestamp int64) string {
	hours := timestamp / microsPerHour
	timestamp -= hours * microsPerHour
	minutes := timestamp / microsPerMinute
	timestamp -= minutes * microsPerMinute
	seconds := timestamp / microsPerSecond
	timestamp -= seconds * microsPerSecond

	fraction := ""
	if timestamp != 0 {
		fraction = strings.TrimRight(fmt.Sprintf(".%06d", timestamp), "0")
	}
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d%s", hours, minutes, seconds, fraction)
	}
	if minutes > 0 {
		return fmt.Sprintf("%d:%02d%s", minutes, seconds, fraction)
	}
	return fmt.Sprintf("%d%s", seconds, fraction)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
