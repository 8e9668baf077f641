// Package mediaprobe defines the Provider interface for reading technical
// metadata out of recorded audio files.
//
// A probe reports one track per stream kind. Journal recordings are MP3 or
// FLAC files carrying an audio stream, usually embedded cover art, and a
// general track with the recorder's ID3 tags, so Report exposes those three
// track kinds directly. Raw keeps the backend's full report for archival.
//
// Numeric fields that the backend could not report are nil pointers; a nil
// track means the file has no stream of that kind at all. Display strings
// (the "pretty" fields) default to empty rather than nil.
package mediaprobe

import (
	"context"
	"encoding/json"
)

// GeneralTrack is the container-level track: file identity, ID3 tags, cover
// art flags and whole-file figures.
type GeneralTrack struct {
	// FileNameExtension is the base file name including its extension.
	FileNameExtension *string
	CompleteName      *string
	FolderName        *string

	AudioCount        *int64
	ImageCount        *int64
	AudioCodecs       *string
	ImageCodecs       *string
	InternetMediaType *string

	// FileSize is the total file size in bytes.
	FileSize       *int64
	FileSizePretty string

	// Duration is the container duration in milliseconds.
	Duration          *int64
	DurationTimestamp string

	OverallBitRate       *int64
	OverallBitRatePretty string

	StreamSize       *int64
	StreamSizePretty string
	StreamProportion *string

	// Dates as the backend reports them, UTC values carrying a " UTC"
	// suffix and local values bare.
	RecordedDate              *string
	TaggedDate                *string
	FileCreationDate          *string
	FileCreationDateLocal     *string
	FileModificationDate      *string
	FileModificationDateLocal *string

	Title          *string
	Album          *string
	AlbumPerformer *string
	TrackName      *string
	TrackPosition  *int64
	TrackTotal     *int64
	TrackMore      *string
	Grouping       *string
	Performer      *string
	Genre          *string

	WritingLibrary *string
	Comment        *string
	ID3v1Comment   *string

	// Lyrics carries the transcript text the tagging step embeds, and
	// OriginalFilename the transcript file it came from.
	Lyrics           *string
	OriginalFilename *string

	Cover            *string
	CoverDescription *string
	CoverType        *string
	CoverMime        *string
}

// AudioTrack is the audio stream of a recording.
type AudioTrack struct {
	CommercialName *string
	FormatVersion  *string
	FormatProfile  *string

	// Duration is the stream duration in milliseconds.
	Duration          *int64
	DurationTimestamp string

	BitRateMode       *string
	BitRateModePretty string
	BitRate           *int64
	BitRatePretty     string

	Channels       *int64
	ChannelsPretty string

	SamplesPerFrame    *int64
	SamplingRate       *int64
	SamplingRatePretty string
	SamplesCount       *int64

	// FrameRate is kept in the backend's decimal text form.
	FrameRate       *string
	FrameRatePretty string
	FrameCount      *int64

	CompressionMode *string

	StreamSize       *int64
	StreamSizePretty string
	StreamProportion *string
}

// ImageTrack is the embedded cover art stream of a recording.
type ImageTrack struct {
	FormatInfo        *string
	CommercialName    *string
	Compression       *string
	FormatSettings    *string
	InternetMediaType *string

	Width              *int64
	Height             *int64
	PixelAspectRatio   *string
	DisplayAspectRatio *string
	ColorSpace         *string

	BitDepth       *int64
	BitDepthPretty string

	CompressionMode *string

	StreamSize       *int64
	StreamSizePretty string
	StreamProportion *string
}

// Report is the result of probing one file. Track pointers are nil when the
// file carries no stream of that kind. Raw is the backend's complete report
// verbatim, for callers that archive the unabridged probe.
type Report struct {
	General *GeneralTrack
	Audio   *AudioTrack
	Image   *ImageTrack
	Raw     json.RawMessage
}

// Provider is the abstraction over a media metadata backend.
//
// Implementations must be safe for concurrent use and should propagate
// context cancellation promptly.
type Provider interface {
	// Probe reads the technical metadata of the file at path.
	Probe(ctx context.Context, path string) (*Report, error)
}
