package timeline_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/NWeiss87/auricle/internal/timeline"
)

func TestParseRecordingName(t *testing.T) {
	t.Parallel()

	span, err := timeline.ParseRecordingName("2025-07-04 - 17-18-37 - 2025-07-04 - 17-19-06 - 29 - audio journal - TEST.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStart := time.Date(2025, 7, 4, 17, 18, 37, 0, time.UTC)
	if !span.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", span.Start, wantStart)
	}
	wantEnd := time.Date(2025, 7, 4, 17, 19, 6, 0, time.UTC)
	if !span.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", span.End, wantEnd)
	}
	if span.StartDate != "2025-07-04" || span.EndDate != "2025-07-04" {
		t.Errorf("dates = %q / %q, want 2025-07-04 for both", span.StartDate, span.EndDate)
	}
	if span.StartClock != "17:18:37" {
		t.Errorf("StartClock = %q, want 17:18:37", span.StartClock)
	}
	if span.EndClock != "17:19:06" {
		t.Errorf("EndClock = %q, want 17:19:06", span.EndClock)
	}
	if span.Seconds != "29" {
		t.Errorf("Seconds = %q, want \"29\"", span.Seconds)
	}
}

func TestParseRecordingName_UppercaseExtension(t *testing.T) {
	t.Parallel()

	_, err := timeline.ParseRecordingName("2025-07-04 - 17-18-37 - 2025-07-04 - 17-19-06 - 29 - walk.JSON")
	if err != nil {
		t.Fatalf("uppercase extension should be accepted, got: %v", err)
	}
}

func TestParseRecordingName_FullPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join("some", "journal dir", "2025-07-04 - 17-18-37 - 2025-07-04 - 17-19-06 - 29 - walk.json")
	span, err := timeline.ParseRecordingName(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if span.Name != "2025-07-04 - 17-18-37 - 2025-07-04 - 17-19-06 - 29 - walk.json" {
		t.Errorf("Name = %q, want base name only", span.Name)
	}
}

func TestParseRecordingName_Rejects(t *testing.T) {
	t.Parallel()

	names := []string{
		"journal.json",
		"2025-07-04 - 17-18-37.json",
		"2025-07-04 - 17-18-37 - 2025-07-04 - 17-19-06 - 29 - walk.txt",
		"2025-07-04 - 17-18-37 - 2025-07-04 - 17-19-06 - twentynine - walk.json",
		"prefix 2025-07-04 - 17-18-37 - 2025-07-04 - 17-19-06 - 29 - walk.json",
	}
	for _, name := range names {
		_, err := timeline.ParseRecordingName(name)
		if !errors.Is(err, timeline.ErrRecordingName) {
			t.Errorf("ParseRecordingName(%q): got %v, want ErrRecordingName", name, err)
		}
	}
}

func TestFormat_WholeSecond(t *testing.T) {
	t.Parallel()

	got := timeline.Format(time.Date(2025, 7, 4, 17, 18, 37, 0, time.UTC))
	if got != "2025-07-04T17:18:37" {
		t.Errorf("Format = %q, want no fractional suffix", got)
	}
}

func TestFormat_Fractional(t *testing.T) {
	t.Parallel()

	got := timeline.Format(time.Date(2025, 7, 4, 17, 18, 40, 840_000_000, time.UTC))
	if got != "2025-07-04T17:18:40.840000" {
		t.Errorf("Format = %q, want trailing zeros kept in the suffix", got)
	}
}

func TestFormat_TruncatesBelowMicrosecond(t *testing.T) {
	t.Parallel()

	got := timeline.Format(time.Date(2025, 7, 4, 17, 18, 40, 123_456_789, time.UTC))
	if got != "2025-07-04T17:18:40.123456" {
		t.Errorf("Format = %q, want nanoseconds truncated to microseconds", got)
	}
}

func TestOffset(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 7, 4, 17, 18, 37, 0, time.UTC)

	got := timeline.Offset(base, 3.84)
	if s := timeline.Format(got); s != "2025-07-04T17:18:40.840000" {
		t.Errorf("Offset(base, 3.84) formats as %q", s)
	}

	got = timeline.Offset(base, 0)
	if !got.Equal(base) {
		t.Errorf("Offset(base, 0) = %v, want base", got)
	}

	got = timeline.Offset(base, 1.234567)
	if s := timeline.Format(got); s != "2025-07-04T17:18:38.234567" {
		t.Errorf("Offset(base, 1.234567) formats as %q", s)
	}
}

func TestBetween(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    time.Duration
		want timeline.Elapsed
	}{
		{
			name: "twenty nine seconds",
			d:    29 * time.Second,
			want: timeline.Elapsed{Seconds: 29, TotalMilliseconds: 29_000},
		},
		{
			name: "mixed parts",
			d:    time.Hour + 2*time.Minute + 3*time.Second + 456*time.Millisecond,
			want: timeline.Elapsed{Hours: 1, Minutes: 2, Seconds: 3, Milliseconds: 456, TotalMilliseconds: 3_723_456},
		},
		{
			name: "zero",
			d:    0,
			want: timeline.Elapsed{},
		},
		{
			name: "sub millisecond remainder dropped",
			d:    1500*time.Microsecond + 700*time.Nanosecond,
			want: timeline.Elapsed{Milliseconds: 1, TotalMilliseconds: 1},
		},
	}

	start := time.Date(2025, 7, 4, 17, 18, 37, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := timeline.Between(start, start.Add(tt.d))
			if got != tt.want {
				t.Errorf("Between: got %+v, want %+v", got, tt.want)
			}
		})
	}
}
