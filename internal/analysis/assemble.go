package analysis

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/NWeiss87/auricle/internal/chunk"
	"github.com/NWeiss87/auricle/internal/timeline"
)

// ExtraBlock is one non-model entry appended to a chunk's analysis map,
// such as an astrology block.
type ExtraBlock struct {
	Key   string
	Value any
}

// ChunkAnalysis couples one chunk with everything produced for it.
type ChunkAnalysis struct {
	Chunk   chunk.Chunk
	Outputs []ModelOutput
	Extra   []ExtraBlock
}

// Assembly is everything the assembler needs for one recording.
type Assembly struct {
	// Span is the recording's parsed filename span.
	Span timeline.Span

	// TranscriptName is the transcript's base filename.
	TranscriptName string

	// AudioName is the matched audio file's base name. Empty means no audio
	// was found; the audio-derived fields are then left out.
	AudioName string

	// AudioMetadata is the audio_file_metadata block. Nil omits the key.
	AudioMetadata any

	// QnAModel is the model whose answered questions feed the question
	// index of the file rollup.
	QnAModel string

	Chunks []ChunkAnalysis
}

// AdjustedTimeData is a chunk's clock window widened by one second on each
// side, used when cutting audio excerpts so speech is not clipped mid-word.
type AdjustedTimeData struct {
	AudioStart    float64 `json:"adjusted_chunk_audio_start_time_location"`
	CalendarStart string  `json:"adjusted_chunk_calendar_start_datetime"`
	AudioEnd      float64 `json:"adjusted_chunk_audio_end_time_location"`
	CalendarEnd   string  `json:"adjusted_chunk_calendar_end_datetime"`

	DurationHours        int64 `json:"adjusted_duration_hours"`
	DurationMinutes      int64 `json:"adjusted_duration_minutes"`
	DurationSeconds      int64 `json:"adjusted_duration_seconds"`
	DurationMilliseconds int64 `json:"adjusted_duration_milliseconds"`
	TotalMilliseconds    int64 `json:"adjusted_total_duration_in_milliseconds"`
}

// fileTimeData is the recording-level clock summary, in output key order.
// The total comes from the filename's duration field and stays the string
// the filename carried.
type fileTimeData struct {
	StartDatetime string `json:"file_calendar_start_datetime"`
	StartDate     string `json:"file_calendar_start_date"`
	StartTime     string `json:"file_calendar_start_time"`
	EndDatetime   string `json:"file_calendar_end_datetime"`
	EndDate       string `json:"file_calendar_end_date"`
	EndTime       string `json:"file_calendar_end_time"`

	DurationHours   int    `json:"file_duration_hours"`
	DurationMinutes int    `json:"file_duration_minutes"`
	DurationSeconds int    `json:"file_duration_seconds"`
	TotalSeconds    string `json:"file_total_duration_in_seconds"`
}

// AdjustTimeData widens td by one second on each side. A widened audio
// start under one second snaps to the very beginning of the file.
func AdjustTimeData(td chunk.TimeData) AdjustedTimeData {
	audioStart := td.AudioStart - 1
	if audioStart < 1 {
		audioStart = 0
	}
	start := td.Start.Add(-time.Second)
	end := td.End.Add(time.Second)
	el := timeline.Between(start, end)

	return AdjustedTimeData{
		AudioStart:           audioStart,
		CalendarStart:        timeline.Format(start),
		AudioEnd:             td.AudioEnd + 1,
		CalendarEnd:          timeline.Format(end),
		DurationHours:        el.Hours,
		DurationMinutes:      el.Minutes,
		DurationSeconds:      el.Seconds,
		DurationMilliseconds: el.Milliseconds,
		TotalMilliseconds:    el.TotalMilliseconds,
	}
}

// ChunkAudioName derives the excerpt filename a chunk's audio would be cut
// to: the audio stem, the chunk's position, and the excerpt duration in
// whole seconds, keeping the audio file's extension.
func ChunkAudioName(audioName string, chunkID, total, durationSeconds int) string {
	ext := filepath.Ext(audioName)
	stem := strings.TrimSuffix(audioName, ext)
	return fmt.Sprintf("%s - chunk - %04d of %04d - %d%s", stem, chunkID, total, durationSeconds, ext)
}

// OutputName derives the analysis filename for a transcript: the transcript
// stem plus a run timestamp, so re-runs never overwrite earlier output.
func OutputName(transcriptName string, now time.Time) string {
	stem := strings.TrimSuffix(transcriptName, filepath.Ext(transcriptName))
	return fmt.Sprintf("%s - analysis_%s.json", stem, now.Format("2006-01-02 - 15-04-05"))
}

// Assemble builds the output document for one recording, keys in wire
// order: the source transcript name, the audio metadata when audio was
// found, the file clock summary, the file-wide tag and keyphrase rollups,
// the aggregated chunk root, and finally the chunks themselves.
func Assemble(a Assembly) *orderedmap.OrderedMap[string, any] {
	doc := orderedmap.New[string, any]()
	doc.Set("original_trasncript_filename", a.TranscriptName)
	if a.AudioMetadata != nil {
		doc.Set("audio_file_metadata", a.AudioMetadata)
	}
	doc.Set("file_time_data", fileTime(a.Span))

	var allTags, allPhrases []string
	chunkDocs := make([]*orderedmap.OrderedMap[string, any], 0, len(a.Chunks))
	for _, ca := range a.Chunks {
		allTags = append(allTags, ca.Chunk.Tags...)
		allPhrases = append(allPhrases, ca.Chunk.Keyphrases...)
		chunkDocs = append(chunkDocs, chunkDocument(ca, len(a.Chunks), a.AudioName, a.TranscriptName))
	}

	doc.Set("file_all_chunk_tags", sortedSet(allTags))
	doc.Set("file_all_keyphrases", sortedSet(allPhrases))
	doc.Set("file_chunk_root", Aggregate(aggregateInput(a.Chunks, a.QnAModel)))
	doc.Set("chunks", chunkDocs)
	return doc
}

// aggregateInput shapes the chunks for aggregation. Answered questions only
// count when they came from the configured question model; other models'
// question results stay in their chunk but never reach the index.
func aggregateInput(chunks []ChunkAnalysis, qnaModel string) []ChunkResults {
	out := make([]ChunkResults, 0, len(chunks))
	for _, ca := range chunks {
		models := make([]ModelOutput, 0, len(ca.Outputs))
		for _, m := range ca.Outputs {
			if m.Model == qnaModel {
				models = append(models, m)
				continue
			}
			kept := ModelOutput{Model: m.Model}
			for _, r := range m.Results {
				if r.Kind == KindQnA {
					continue
				}
				kept.Results = append(kept.Results, r)
			}
			models = append(models, kept)
		}
		out = append(out, ChunkResults{ChunkID: ca.Chunk.ID, Models: models})
	}
	return out
}

// chunkDocument lays out one chunk of the output document.
func chunkDocument(ca ChunkAnalysis, total int, audioName, transcriptName string) *orderedmap.OrderedMap[string, any] {
	adjusted := AdjustTimeData(ca.Chunk.TimeData)

	doc := orderedmap.New[string, any]()
	doc.Set("chunk_id", ca.Chunk.ID)
	if audioName != "" {
		duration := int(adjusted.AudioEnd - adjusted.AudioStart)
		doc.Set("source_audio_file_name", audioName)
		doc.Set("source_json_file_name", transcriptName)
		doc.Set("chunk_audio_file_name", ChunkAudioName(audioName, ca.Chunk.ID, total, duration))
	} else {
		doc.Set("source_json_file_name", transcriptName)
	}
	doc.Set("total_number_of_chunks", total)
	doc.Set("chunk_tags", ca.Chunk.Tags)
	doc.Set("chunk_keyphrases", ca.Chunk.Keyphrases)
	doc.Set("transcription_time_data", ca.Chunk.TimeData)
	doc.Set("adjusted_chunk_time_data", adjusted)
	doc.Set("chunk_text", ca.Chunk.Text)
	doc.Set("segments", ca.Chunk.Segments)
	doc.Set("chunk_analysis", analysisMap(ca.Outputs, ca.Extra))
	return doc
}

// analysisMap lays out a chunk's analysis entries: models that produced
// something, in run order, then the extra blocks.
func analysisMap(outputs []ModelOutput, extra []ExtraBlock) *orderedmap.OrderedMap[string, any] {
	m := orderedmap.New[string, any]()
	for _, out := range outputs {
		if len(out.Results) == 0 {
			continue
		}
		m.Set(out.Model, out.Value())
	}
	for _, b := range extra {
		m.Set(b.Key, b.Value)
	}
	return m
}

// fileTime summarizes the recording's span for the output document. The
// duration breakdown divides the filename's whole-second duration.
func fileTime(span timeline.Span) fileTimeData {
	total, _ := strconv.Atoi(span.Seconds)
	hours := total / 3600
	rem := total % 3600

	return fileTimeData{
		StartDatetime:   timeline.Format(span.Start),
		StartDate:       span.StartDate,
		StartTime:       span.StartClock,
		EndDatetime:     timeline.Format(span.End),
		EndDate:         span.EndDate,
		EndTime:         span.EndClock,
		DurationHours:   hours,
		DurationMinutes: rem / 60,
		DurationSeconds: rem % 60,
		TotalSeconds:    span.Seconds,
	}
}
