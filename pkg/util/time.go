package util

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime is returned by ParseTime for anything that is not MM:SS.cc
var ErrInvalidTime = errors.New("invalid time")

// minutes are at least two digits, wider only without a leading zero
var timePattern = regexp.MustCompile(`^(\d{2}|[1-9]\d{2,}):([0-5]\d)\.(\d{2})$`)

// FormatTime renders seconds as MM:SS.cc (centiseconds)
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	minutes := cs / 6000
	secs := (cs / 100) % 60
	return fmt.Sprintf("%02d:%02d.%02d", minutes, secs, cs%100)
}

// ParseTime parses a strict MM:SS.cc string back into seconds
func ParseTime(s string) (float64, error) {
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minutes, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	secs, _ := strconv.Atoi(m[2])
	cs, _ := strconv.Atoi(m[3])
	return float64(minutes)*60 + float64(secs) + float64(cs)/100, nil
}

// ParseSeconds accepts either MM:SS.cc or a plain non-negative number of seconds
func ParseSeconds(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		return ParseTime(s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return v, nil
}

// FormatDuration converts time.Duration to ffmpeg timestamp format
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	hours := int(seconds / 3600)
	minutes := int((seconds - float64(hours*3600)) / 60)
	secs := seconds - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, secs)
}

// Seconds converts float seconds to a time.Duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ParseFrameRate parses frame rate from ffprobe format (e.g., "30/1")
func ParseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
