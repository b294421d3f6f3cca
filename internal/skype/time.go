package skype

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformedTimestamp is returned when no supported layout matches
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrMalformedUsername is returned for usernames without a transport prefix
	ErrMalformedUsername = errors.New("malformed username")
)

// OutputLayout is the timestamp layout used in transcripts
const OutputLayout = "2006.01.02 15:04:05 MST"

type timeFormat struct {
	layout     string
	fractional bool
}

// Skype writes arrival times in UTC with a trailing Z, with or without
// fractional seconds.
var arrivalFormats = []timeFormat{
	{layout: "2006-01-02T15:04:05.999999999Z", fractional: true},
	{layout: "2006-01-02T15:04:05Z", fractional: false},
}

// TimeParser parses Skype arrival timestamps. It remembers which format
// matched last and tries that one first, since an export nearly always uses
// a single format throughout. Not safe for concurrent use.
type TimeParser struct {
	last int
}

// NewTimeParser creates a parser that starts with the fractional format
func NewTimeParser() *TimeParser {
	return &TimeParser{}
}

// Parse parses a timestamp ending in Z into a UTC time
func (p *TimeParser) Parse(s string) (time.Time, error) {
	if t, ok := arrivalFormats[p.last].parse(s); ok {
		return t, nil
	}
	for i, f := range arrivalFormats {
		if i == p.last {
			continue
		}
		if t, ok := f.parse(s); ok {
			p.last = i
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}

func (f timeFormat) parse(s string) (time.Time, bool) {
	// time.Parse accepts a fraction even when the layout has none, so the
	// presence of one decides which format a string belongs to.
	if strings.Contains(s, ".") != f.fractional {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(f.layout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseEpochMillis converts a decimal count of milliseconds since the epoch.
// An empty string yields nil without error.
func ParseEpochMillis(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid epoch milliseconds %q: %w", s, err)
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}

// ParseEpochSeconds converts a decimal count of whole seconds since the epoch,
// as found in legacy quotes.
func ParseEpochSeconds(s string) (time.Time, error) {
	sec, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch seconds %q: %w", s, err)
	}
	return time.Unix(sec, 0).UTC(), nil
}

// StripUsernamePrefix removes the numeric transport prefix ("8:") from a
// Skype identity.
func StripUsernamePrefix(s string) (string, error) {
	_, name, ok := strings.Cut(s, ":")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMalformedUsername, s)
	}
	return name, nil
}

// Clock projects UTC instants into the output zone and formats them
type Clock struct {
	loc *time.Location
}

// UTCClock renders times in UTC
func UTCClock() *Clock {
	return &Clock{loc: time.UTC}
}

// NewClock creates a clock for a zone spec: "", "UTC", "Z" or a fixed offset
// such as "+02:00", "-0530" or "+3". Fixed offsets do not follow daylight
// saving changes.
func NewClock(zone string) (*Clock, error) {
	offset, err := parseOffset(zone)
	if err != nil {
		return nil, err
	}
	if offset == 0 {
		return UTCClock(), nil
	}
	sign := '+'
	abs := offset
	if offset < 0 {
		sign = '-'
		abs = -offset
	}
	name := fmt.Sprintf("UTC%c%02d:%02d", sign, abs/3600, abs%3600/60)
	return &Clock{loc: time.FixedZone(name, offset)}, nil
}

func parseOffset(zone string) (int, error) {
	z := strings.TrimSpace(zone)
	if z == "" || strings.EqualFold(z, "UTC") || strings.EqualFold(z, "Z") || strings.EqualFold(z, "GMT") {
		return 0, nil
	}
	z = strings.TrimPrefix(strings.TrimPrefix(z, "UTC"), "GMT")

	sign := 1
	switch {
	case strings.HasPrefix(z, "+"):
		z = z[1:]
	case strings.HasPrefix(z, "-"):
		sign = -1
		z = z[1:]
	default:
		return 0, fmt.Errorf("invalid time zone offset %q: missing sign", zone)
	}

	var hours, minutes int
	var err error
	switch {
	case strings.Contains(z, ":"):
		h, m, _ := strings.Cut(z, ":")
		if hours, err = strconv.Atoi(h); err == nil {
			minutes, err = strconv.Atoi(m)
		}
	case len(z) == 4:
		if hours, err = strconv.Atoi(z[:2]); err == nil {
			minutes, err = strconv.Atoi(z[2:])
		}
	default:
		hours, err = strconv.Atoi(z)
	}
	if err != nil || hours < 0 || hours > 14 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid time zone offset %q", zone)
	}
	return sign * (hours*3600 + minutes*60), nil
}

// Location returns the output zone
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Convert reads the wall clock of t as UTC and returns that instant in the
// output zone
func (c *Clock) Convert(t time.Time) time.Time {
	utc := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return utc.In(c.loc)
}

// Format renders t in the output zone using OutputLayout
func (c *Clock) Format(t time.Time) string {
	return c.Convert(t).Format(OutputLayout)
}
