// Package chunk splits a transcribed recording into chunks of consecutive
// segments bounded by elapsed calendar time and by segment count.
//
// A chunk grows until appending the next segment would stretch it past the
// builder's elapsed-time limit, or until it already holds the maximum number
// of segments; the chunk is then sealed and the segment opens a new one. A
// single segment longer than the time limit still forms a chunk on its own,
// so every segment lands in exactly one chunk and order is preserved.
//
// Each word, segment and chunk record carries both of its clocks: the audio
// offset into the recording and the calendar datetime obtained by shifting
// the recording's start (see [timeline.Span]) by that offset.
package chunk

import (
	"strings"
	"time"

	"github.com/NWeiss87/auricle/internal/timeline"
)

// Default builder bounds. A chunk covers at most two minutes of recording
// and at most 512 segments, whichever limit is hit first.
const (
	DefaultMaxElapsed  = 120 * time.Second
	DefaultMaxSegments = 512
)

// WordRecord is the fully addressed form of one aligned word. The id fields
// locate the word on every level: within its segment, within its chunk and
// within the whole file. All ids are 1-based.
type WordRecord struct {
	ChunkID        int `json:"chunk_id"`
	ChunkWordID    int `json:"chunk_word_id"`
	ChunkSegmentID int `json:"chunk_segment_id"`
	SegmentWordID  int `json:"segment_word_id"`
	FileSegmentID  int `json:"file_segment_id"`
	FileWordID     int `json:"file_word_id"`

	AudioStart    float64 `json:"word_audio_start_time_location"`
	CalendarStart string  `json:"word_calendar_start_datetime"`
	AudioEnd      float64 `json:"word_audio_end_time_location"`
	CalendarEnd   string  `json:"word_calendar_end_datetime"`

	DurationHours        int64 `json:"word_duration_hours"`
	DurationMinutes      int64 `json:"word_duration_minutes"`
	DurationSeconds      int64 `json:"word_duration_seconds"`
	DurationMilliseconds int64 `json:"word_duration_milliseconds"`
	TotalMilliseconds    int64 `json:"word_total_duration_in_milliseconds"`

	Text        string  `json:"word_text"`
	Probability float64 `json:"probability"`
}

// SegmentRecord is one utterance placed inside a chunk, with its words.
type SegmentRecord struct {
	ChunkID        int `json:"chunk_id"`
	ChunkSegmentID int `json:"chunk_segment_id"`
	FileSegmentID  int `json:"file_segment_id"`

	AudioStart    float64 `json:"segment_audio_start_time_location"`
	CalendarStart string  `json:"segment_calendar_start_datetime"`
	AudioEnd      float64 `json:"segment_audio_end_time_location"`
	CalendarEnd   string  `json:"segment_calendar_end_datetime"`

	DurationHours        int64 `json:"segment_duration_hours"`
	DurationMinutes      int64 `json:"segment_duration_minutes"`
	DurationSeconds      int64 `json:"segment_duration_seconds"`
	DurationMilliseconds int64 `json:"segment_duration_milliseconds"`
	TotalMilliseconds    int64 `json:"segment_total_duration_in_milliseconds"`

	Text  string       `json:"segment_text"`
	Words []WordRecord `json:"words"`
}

// TimeData is the clock summary of a chunk. Start and End carry the parsed
// calendar instants for later arithmetic; only the formatted strings are
// serialised.
type TimeData struct {
	AudioStart    float64 `json:"chunk_audio_start_time_location"`
	CalendarStart string  `json:"chunk_calendar_start_datetime"`
	AudioEnd      float64 `json:"chunk_audio_end_time_location"`
	CalendarEnd   string  `json:"chunk_calendar_end_datetime"`

	DurationHours        int64 `json:"chunk_duration_hours"`
	DurationMinutes      int64 `json:"chunk_duration_minutes"`
	DurationSeconds      int64 `json:"chunk_duration_seconds"`
	DurationMilliseconds int64 `json:"chunk_duration_milliseconds"`
	TotalMilliseconds    int64 `json:"chunk_total_duration_in_milliseconds"`

	Start time.Time `json:"-"`
	End   time.Time `json:"-"`
}

// Chunk is one sealed run of segments. Tags and Keyphrases start empty and
// are filled in later from model results.
type Chunk struct {
	ID         int      `json:"chunk_id"`
	Tags       []string `json:"chunk_tags"`
	Keyphrases []string `json:"chunk_keyphrases"`
	TimeData   TimeData `json:"transcription_time_data"`
	Text       string   `json:"chunk_text"`
	Segments   []SegmentRecord `json:"segments"`
}

// Builder turns a transcript into chunks. The zero value is not usable;
// construct with [NewBuilder].
type Builder struct {
	maxElapsed  time.Duration
	maxSegments int
}

// Option is a functional option for [NewBuilder].
type Option func(*Builder)

// WithMaxElapsed sets the elapsed calendar time a chunk may span before it
// is sealed. Zero or negative keeps [DefaultMaxElapsed].
func WithMaxElapsed(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.maxElapsed = d
		}
	}
}

// WithMaxSegments sets how many segments a chunk may hold before it is
// sealed. Zero or negative keeps [DefaultMaxSegments].
func WithMaxSegments(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxSegments = n
		}
	}
}

// NewBuilder constructs a Builder with the default bounds, adjusted by opts.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		maxElapsed:  DefaultMaxElapsed,
		maxSegments: DefaultMaxSegments,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build partitions the transcript's segments into chunks anchored at
// span.Start. An empty transcript yields an empty, non-nil slice.
func (b *Builder) Build(span timeline.Span, tr *Transcript) []Chunk {
	chunks := []Chunk{}

	var (
		acc             []SegmentRecord
		chunkAudioStart float64
		chunkStart      time.Time
		lastAudioEnd    float64
		lastEnd         time.Time

		chunkID     = 1
		chunkSegID  = 1
		chunkWordID = 1
		fileSegID   = 1
		fileWordID  = 1
	)

	seal := func() {
		texts := make([]string, len(acc))
		for i, s := range acc {
			texts[i] = s.Text
		}
		el := timeline.Between(chunkStart, lastEnd)
		chunks = append(chunks, Chunk{
			ID:         chunkID,
			Tags:       []string{},
			Keyphrases: []string{},
			TimeData: TimeData{
				AudioStart:           chunkAudioStart,
				CalendarStart:        timeline.Format(chunkStart),
				AudioEnd:             lastAudioEnd,
				CalendarEnd:          timeline.Format(lastEnd),
				DurationHours:        el.Hours,
				DurationMinutes:      el.Minutes,
				DurationSeconds:      el.Seconds,
				DurationMilliseconds: el.Milliseconds,
				TotalMilliseconds:    el.TotalMilliseconds,
				Start:                chunkStart,
				End:                  lastEnd,
			},
			Text:     strings.Join(texts, " "),
			Segments: acc,
		})
		chunkID++
		acc = nil
		chunkSegID = 1
		chunkWordID = 1
	}

	for _, seg := range tr.Segments {
		segStart := timeline.Offset(span.Start, seg.Start)
		segEnd := timeline.Offset(span.Start, seg.End)

		// Decide before appending: a segment that would stretch the open
		// chunk past the time limit, or overflow its segment count, seals
		// the chunk and opens the next one.
		if len(acc) == 0 {
			chunkAudioStart = seg.Start
			chunkStart = segStart
		} else if segEnd.Sub(chunkStart) > b.maxElapsed || len(acc) >= b.maxSegments {
			seal()
			chunkAudioStart = seg.Start
			chunkStart = segStart
		}

		words := make([]WordRecord, 0, len(seg.Words))
		segWordID := 1
		for _, w := range seg.Words {
			wStart := timeline.Offset(span.Start, w.Start)
			wEnd := timeline.Offset(span.Start, w.End)
			el := timeline.Between(wStart, wEnd)
			words = append(words, WordRecord{
				ChunkID:              chunkID,
				ChunkWordID:          chunkWordID,
				ChunkSegmentID:       chunkSegID,
				SegmentWordID:        segWordID,
				FileSegmentID:        fileSegID,
				FileWordID:           fileWordID,
				AudioStart:           w.Start,
				CalendarStart:        timeline.Format(wStart),
				AudioEnd:             w.End,
				CalendarEnd:          timeline.Format(wEnd),
				DurationHours:        el.Hours,
				DurationMinutes:      el.Minutes,
				DurationSeconds:      el.Seconds,
				DurationMilliseconds: el.Milliseconds,
				TotalMilliseconds:    el.TotalMilliseconds,
				Text:                 strings.TrimSpace(w.Word),
				Probability:          w.Probability,
			})
			chunkWordID++
			segWordID++
			fileWordID++
		}

		el := timeline.Between(segStart, segEnd)
		acc = append(acc, SegmentRecord{
			ChunkID:              chunkID,
			ChunkSegmentID:       chunkSegID,
			FileSegmentID:        fileSegID,
			AudioStart:           seg.Start,
			CalendarStart:        timeline.Format(segStart),
			AudioEnd:             seg.End,
			CalendarEnd:          timeline.Format(segEnd),
			DurationHours:        el.Hours,
			DurationMinutes:      el.Minutes,
			DurationSeconds:      el.Seconds,
			DurationMilliseconds: el.Milliseconds,
			TotalMilliseconds:    el.TotalMilliseconds,
			Text:                 strings.TrimSpace(seg.Text),
			Words:                words,
		})
		chunkSegID++
		fileSegID++
		lastAudioEnd = seg.End
		lastEnd = segEnd
	}

	if len(acc) > 0 {
		seal()
	}
	return chunks
}
