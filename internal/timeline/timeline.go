// Package timeline converts between the three clocks an audio journal lives
// on: audio offsets (seconds into the recording), calendar datetimes (when a
// word was actually spoken), and elapsed durations.
//
// The calendar anchor comes from the recording filename, which encodes the
// start and end of the take; see [ParseRecordingName]. Every calendar value
// emitted downstream is derived by adding an audio offset to that anchor.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrRecordingName is returned by [ParseRecordingName] when a filename does
// not follow the journal recording pattern.
var ErrRecordingName = errors.New("timeline: filename does not match recording pattern")

// recordingNameRe matches transcript filenames of the form
//
//	2025-07-04 - 17-18-37 - 2025-07-04 - 17-19-06 - 29 - <free text>.json
//
// i.e. start date, start time, end date, end time, whole seconds of audio,
// then an arbitrary descriptive tail. Matching is case-insensitive so that
// ".JSON" files are accepted too.
var recordingNameRe = regexp.MustCompile(
	`(?i)^(\d{4}-\d{2}-\d{2}) - (\d{2}-\d{2}-\d{2}) - (\d{4}-\d{2}-\d{2}) - (\d{2}-\d{2}-\d{2}) - (\d+) - .+\.json$`)

// Span is the calendar window covered by one recording, as declared by its
// filename. Times are wall-clock values in the recorder's local zone; no
// zone conversion is ever applied to them.
type Span struct {
	// Name is the base filename the span was parsed from.
	Name string

	// Start and End are the recording's first and last instants.
	Start time.Time
	End   time.Time

	// StartDate and EndDate are the date portions as "2006-01-02" strings.
	StartDate string
	EndDate   string

	// StartClock and EndClock are the time portions as "15:04:05" strings.
	StartClock string
	EndClock   string

	// Seconds is the audio length in whole seconds, kept verbatim as the
	// digit string captured from the filename.
	Seconds string
}

// ParseRecordingName extracts the calendar [Span] from a transcript filename.
// The argument may be a bare name or a full path; only the base name is
// examined. Returns [ErrRecordingName] when the name does not match.
func ParseRecordingName(name string) (Span, error) {
	base := filepath.Base(name)
	m := recordingNameRe.FindStringSubmatch(base)
	if m == nil {
		return Span{}, fmt.Errorf("%w: %q", ErrRecordingName, base)
	}

	start, err := time.Parse("2006-01-02 15-04-05", m[1]+" "+m[2])
	if err != nil {
		return Span{}, fmt.Errorf("timeline: parse start of %q: %w", base, err)
	}
	end, err := time.Parse("2006-01-02 15-04-05", m[3]+" "+m[4])
	if err != nil {
		return Span{}, fmt.Errorf("timeline: parse end of %q: %w", base, err)
	}

	return Span{
		Name:       base,
		Start:      start,
		End:        end,
		StartDate:  m[1],
		EndDate:    m[3],
		StartClock: strings.ReplaceAll(m[2], "-", ":"),
		EndClock:   strings.ReplaceAll(m[4], "-", ":"),
		Seconds:    m[5],
	}, nil
}

// Offset returns the calendar instant that lies secs seconds after base.
// The fractional part is rounded to whole microseconds, the resolution of
// the calendar strings produced by [Format].
func Offset(base time.Time, secs float64) time.Time {
	return base.Add(time.Duration(math.Round(secs*1e6)) * time.Microsecond)
}

// Format renders t in the calendar-datetime form used by every output
// record: second precision, with a six-digit fractional suffix appended only
// when the instant has a non-zero microsecond component.
//
//	2025-07-04T17:18:37
//	2025-07-04T17:18:40.840000
func Format(t time.Time) string {
	s := t.Format("2006-01-02T15:04:05")
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s
}

// Elapsed is the wall-clock breakdown of the interval between two instants.
// The same five fields are attached to word, segment and chunk records, each
// under its own key prefix.
type Elapsed struct {
	Hours             int64
	Minutes           int64
	Seconds           int64
	Milliseconds      int64
	TotalMilliseconds int64
}

// Between splits end-start into hours, minutes, seconds and leftover
// milliseconds. Sub-millisecond remainders are dropped before the split so
// the parts always recombine to TotalMilliseconds exactly.
func Between(start, end time.Time) Elapsed {
	total := end.Sub(start).Milliseconds()

	e := Elapsed{TotalMilliseconds: total}
	e.Milliseconds = total % 1000
	s := total / 1000
	e.Seconds = s % 60
	m := s / 60
	e.Minutes = m % 60
	e.Hours = m / 60
	return e
}
