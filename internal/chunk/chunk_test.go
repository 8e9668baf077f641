package chunk_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NWeiss87/auricle/internal/chunk"
	"github.com/NWeiss87/auricle/internal/timeline"
)

func testSpan(t *testing.T) timeline.Span {
	t.Helper()
	span, err := timeline.ParseRecordingName("2025-07-04 - 17-18-37 - 2025-07-04 - 17-19-06 - 29 - audio journal - TEST.json")
	if err != nil {
		t.Fatalf("parse fixture name: %v", err)
	}
	return span
}

func seg(start, end float64, text string, words ...chunk.Word) chunk.Segment {
	return chunk.Segment{Start: start, End: end, Text: text, Words: words}
}

func TestBuild_TimeRollover(t *testing.T) {
	t.Parallel()

	// Five segments spaced 30 seconds apart. The fifth would stretch the
	// open chunk past the 120 second limit, so it opens a second chunk.
	tr := &chunk.Transcript{Segments: []chunk.Segment{
		seg(0, 5, "one"),
		seg(30, 35, "two"),
		seg(60, 65, "three"),
		seg(90, 95, "four"),
		seg(120, 125, "five"),
	}}

	b := chunk.NewBuilder(chunk.WithMaxElapsed(120*time.Second), chunk.WithMaxSegments(10))
	chunks := b.Build(testSpan(t), tr)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if n := len(chunks[0].Segments); n != 4 {
		t.Errorf("first chunk has %d segments, want 4", n)
	}
	if n := len(chunks[1].Segments); n != 1 {
		t.Errorf("second chunk has %d segments, want 1", n)
	}
	if chunks[0].ID != 1 || chunks[1].ID != 2 {
		t.Errorf("chunk ids = %d, %d, want 1, 2", chunks[0].ID, chunks[1].ID)
	}

	// The second chunk restarts chunk-level numbering but keeps file-level
	// numbering running.
	s5 := chunks[1].Segments[0]
	if s5.ChunkSegmentID != 1 {
		t.Errorf("ChunkSegmentID = %d, want 1", s5.ChunkSegmentID)
	}
	if s5.FileSegmentID != 5 {
		t.Errorf("FileSegmentID = %d, want 5", s5.FileSegmentID)
	}

	td := chunks[0].TimeData
	if td.CalendarStart != "2025-07-04T17:18:37" {
		t.Errorf("chunk 1 CalendarStart = %q", td.CalendarStart)
	}
	if td.CalendarEnd != "2025-07-04T17:20:12" {
		t.Errorf("chunk 1 CalendarEnd = %q", td.CalendarEnd)
	}
	if td.AudioEnd != 95 {
		t.Errorf("chunk 1 AudioEnd = %v, want 95", td.AudioEnd)
	}
	if td.DurationMinutes != 1 || td.DurationSeconds != 35 || td.TotalMilliseconds != 95_000 {
		t.Errorf("chunk 1 duration = %dm %ds (%dms)", td.DurationMinutes, td.DurationSeconds, td.TotalMilliseconds)
	}
}

func TestBuild_SegmentCountRollover(t *testing.T) {
	t.Parallel()

	tr := &chunk.Transcript{Segments: []chunk.Segment{
		seg(0, 1, "a"),
		seg(1, 2, "b"),
		seg(2, 3, "c"),
		seg(3, 4, "d"),
		seg(4, 5, "e"),
	}}

	b := chunk.NewBuilder(chunk.WithMaxSegments(2))
	chunks := b.Build(testSpan(t), tr)

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, want := range []int{2, 2, 1} {
		if got := len(chunks[i].Segments); got != want {
			t.Errorf("chunk %d has %d segments, want %d", i+1, got, want)
		}
	}

	// Every input segment lands in exactly one chunk, in order.
	var fileIDs []int
	for _, c := range chunks {
		for _, s := range c.Segments {
			fileIDs = append(fileIDs, s.FileSegmentID)
		}
	}
	for i, id := range fileIDs {
		if id != i+1 {
			t.Fatalf("file segment ids = %v, want 1..5 in order", fileIDs)
		}
	}
}

func TestBuild_OverlongSegmentFormsOwnChunk(t *testing.T) {
	t.Parallel()

	// A single segment longer than the time limit must not be split or
	// dropped; the segment after it opens a new chunk.
	tr := &chunk.Transcript{Segments: []chunk.Segment{
		seg(0, 300, "very long"),
		seg(301, 302, "after"),
	}}

	b := chunk.NewBuilder(chunk.WithMaxElapsed(120 * time.Second))
	chunks := b.Build(testSpan(t), tr)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Text != "very long" {
		t.Errorf("chunk 1 text = %q", chunks[0].Text)
	}
	if chunks[1].Segments[0].FileSegmentID != 2 {
		t.Errorf("FileSegmentID = %d, want 2", chunks[1].Segments[0].FileSegmentID)
	}
}

func TestBuild_WordNumberingAndText(t *testing.T) {
	t.Parallel()

	tr := &chunk.Transcript{Segments: []chunk.Segment{
		seg(0, 2, " Hello there. ",
			chunk.Word{Start: 0, End: 0.84, Word: " Hello", Probability: 0.98},
			chunk.Word{Start: 0.84, End: 2, Word: " there.", Probability: 0.91},
		),
		seg(2, 4, " General Kenobi. ",
			chunk.Word{Start: 2, End: 3, Word: " General", Probability: 0.99},
			chunk.Word{Start: 3, End: 4, Word: " Kenobi.", Probability: 0.97},
		),
	}}

	chunks := chunk.NewBuilder().Build(testSpan(t), tr)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	c := chunks[0]

	if c.Text != "Hello there. General Kenobi." {
		t.Errorf("chunk text = %q, want stripped segment texts joined by one space", c.Text)
	}

	var words []chunk.WordRecord
	for _, s := range c.Segments {
		words = append(words, s.Words...)
	}
	if len(words) != 4 {
		t.Fatalf("got %d words, want 4", len(words))
	}

	for i, w := range words {
		if w.ChunkWordID != i+1 {
			t.Errorf("word %d: ChunkWordID = %d, want %d", i, w.ChunkWordID, i+1)
		}
		if w.FileWordID != i+1 {
			t.Errorf("word %d: FileWordID = %d, want %d", i, w.FileWordID, i+1)
		}
	}

	// Per segment the word counter restarts.
	if words[2].SegmentWordID != 1 || words[3].SegmentWordID != 2 {
		t.Errorf("segment word ids = %d, %d, want 1, 2", words[2].SegmentWordID, words[3].SegmentWordID)
	}

	w := words[0]
	if w.Text != "Hello" {
		t.Errorf("word text = %q, want surrounding whitespace stripped", w.Text)
	}
	if w.CalendarStart != "2025-07-04T17:18:37" {
		t.Errorf("word CalendarStart = %q", w.CalendarStart)
	}
	if w.CalendarEnd != "2025-07-04T17:18:37.840000" {
		t.Errorf("word CalendarEnd = %q", w.CalendarEnd)
	}
	if w.TotalMilliseconds != 840 {
		t.Errorf("word TotalMilliseconds = %d, want 840", w.TotalMilliseconds)
	}
}

func TestBuild_EmptyTranscript(t *testing.T) {
	t.Parallel()

	chunks := chunk.NewBuilder().Build(testSpan(t), &chunk.Transcript{})
	if chunks == nil {
		t.Fatal("expected non-nil slice for empty transcript")
	}
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks, want 0", len(chunks))
	}
}

func TestChunk_JSONKeyOrder(t *testing.T) {
	t.Parallel()

	tr := &chunk.Transcript{Segments: []chunk.Segment{seg(0, 1, "hi")}}
	chunks := chunk.NewBuilder().Build(testSpan(t), tr)

	data, err := json.Marshal(chunks[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)

	order := []string{
		`"chunk_id"`,
		`"chunk_tags"`,
		`"chunk_keyphrases"`,
		`"transcription_time_data"`,
		`"chunk_audio_start_time_location"`,
		`"chunk_text"`,
		`"segments"`,
	}
	last := -1
	for _, key := range order {
		idx := strings.Index(s, key)
		if idx < 0 {
			t.Fatalf("key %s missing from %s", key, s)
		}
		if idx < last {
			t.Errorf("key %s out of order in %s", key, s)
		}
		last = idx
	}

	if strings.Contains(s, "null") {
		t.Errorf("empty tag and keyphrase lists must serialise as [], got %s", s)
	}
}

func TestLoadTranscript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "take.json")
	raw := `{
	  "text": " Hello there.",
	  "language": "en",
	  "segments": [
	    {"id": 0, "start": 0.0, "end": 2.0, "text": " Hello there.",
	     "words": [{"word": " Hello", "start": 0.0, "end": 0.84, "probability": 0.98}]}
	  ]
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tr, err := chunk.LoadTranscript(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tr.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(tr.Segments))
	}
	if tr.Segments[0].Words[0].Probability != 0.98 {
		t.Errorf("probability = %v", tr.Segments[0].Words[0].Probability)
	}
}

func TestLoadTranscript_Errors(t *testing.T) {
	t.Parallel()

	if _, err := chunk.LoadTranscript(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := chunk.LoadTranscript(bad); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
