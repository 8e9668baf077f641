// Package mediainfo provides a mediaprobe provider backed by the MediaInfo
// command line tool.
//
// The tool is invoked once per probe as `mediainfo --Full --Output=JSON`,
// which reports every stream with both machine values and display strings.
// MediaInfo emits all scalar values as JSON strings; this package converts
// the numeric ones into typed fields and keeps the rest verbatim.
//
// Example usage:
//
//	p, err := mediainfo.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := p.Probe(ctx, "/journals/2025-07-04 - 17-18-37 - ....mp3")
package mediainfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/NWeiss87/auricle/pkg/provider/mediaprobe"
)

// DefaultBinary is the executable name used when no explicit path is given.
const DefaultBinary = "mediainfo"

// Ensure Provider implements the mediaprobe.Provider interface at compile time.
var _ mediaprobe.Provider = (*Provider)(nil)

// Provider implements mediaprobe.Provider by shelling out to MediaInfo.
// Provider is safe for concurrent use.
type Provider struct {
	binary string
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithBinary sets an explicit path to the MediaInfo executable. Empty means
// DefaultBinary resolved through PATH.
func WithBinary(path string) Option {
	return func(p *Provider) {
		if path != "" {
			p.binary = path
		}
	}
}

// New constructs a Provider. The MediaInfo executable is not resolved until
// the first probe, so New succeeds even when the tool is missing.
func New(opts ...Option) (*Provider, error) {
	p := &Provider{binary: DefaultBinary}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// probeOutput is the envelope of `mediainfo --Output=JSON`.
type probeOutput struct {
	Media struct {
		Track []rawTrack `json:"track"`
	} `json:"media"`
}

// Probe implements mediaprobe.Provider.
func (p *Provider) Probe(ctx context.Context, path string) (*mediaprobe.Report, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("mediainfo probe: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.binary, "--Full", "--Output=JSON", path)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("mediainfo probe: run %s: %s: %w", p.binary, strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return nil, fmt.Errorf("mediainfo probe: run %s: %w", p.binary, err)
	}

	var probed probeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return nil, fmt.Errorf("mediainfo probe: decode output: %w", err)
	}

	report := &mediaprobe.Report{Raw: json.RawMessage(out)}
	for _, track := range probed.Media.Track {
		switch track.text("@type") {
		case "General":
			report.General = generalFromTrack(track)
		case "Audio":
			report.Audio = audioFromTrack(track)
		case "Image":
			report.Image = imageFromTrack(track)
		}
	}
	return report, nil
}

func generalFromTrack(t rawTrack) *mediaprobe.GeneralTrack {
	extra := t.extra()
	return &mediaprobe.GeneralTrack{
		FileNameExtension: t.str("FileNameExtension"),
		CompleteName:      t.str("CompleteName"),
		FolderName:        t.str("FolderName"),

		AudioCount:        t.integer("AudioCount"),
		ImageCount:        t.integer("ImageCount"),
		AudioCodecs:       t.str("Audio_Codec_List"),
		ImageCodecs:       t.str("Image_Codec_List"),
		InternetMediaType: t.str("InternetMediaType"),

		FileSize:       t.integer("FileSize"),
		FileSizePretty: t.text("FileSize_String4"),

		Duration:          t.millis("Duration"),
		DurationTimestamp: t.text("Duration_String3"),

		OverallBitRate:       t.integer("OverallBitRate"),
		OverallBitRatePretty: t.text("OverallBitRate_String"),

		StreamSize:       t.integer("StreamSize"),
		StreamSizePretty: t.text("StreamSize_String5"),
		StreamProportion: t.str("StreamSize_Proportion"),

		RecordedDate:              t.str("Recorded_Date"),
		TaggedDate:                t.str("Tagged_Date"),
		FileCreationDate:          t.str("File_Created_Date"),
		FileCreationDateLocal:     t.str("File_Created_Date_Local"),
		FileModificationDate:      t.str("File_Modified_Date"),
		FileModificationDateLocal: t.str("File_Modified_Date_Local"),

		Title:          t.str("Title"),
		Album:          t.str("Album"),
		AlbumPerformer: t.str("Album_Performer"),
		TrackName:      t.str("Track"),
		TrackPosition:  t.integer("Track_Position"),
		TrackTotal:     t.integer("Track_Position_Total"),
		TrackMore:      t.str("Track_More"),
		Grouping:       t.str("Grouping"),
		Performer:      t.str("Performer"),
		Genre:          t.str("Genre"),

		WritingLibrary: t.first("Encoded_Library_String", "Encoded_Library"),
		Comment:        t.str("Comment"),
		ID3v1Comment:   extra.str("ID3v1_Comment"),

		Lyrics:           t.str("Lyrics"),
		OriginalFilename: extra.str("Original_Filename"),

		Cover:            t.str("Cover"),
		CoverDescription: t.str("Cover_Description"),
		CoverType:        t.str("Cover_Type"),
		CoverMime:        t.str("Cover_Mime"),
	}
}

func audioFromTrack(t rawTrack) *mediaprobe.AudioTrack {
	return &mediaprobe.AudioTrack{
		CommercialName: t.str("Format_Commercial"),
		FormatVersion:  t.str("Format_Version"),
		FormatProfile:  t.str("Format_Profile"),

		Duration:          t.millis("Duration"),
		DurationTimestamp: t.text("Duration_String3"),

		BitRateMode:       t.str("BitRate_Mode"),
		BitRateModePretty: t.text("BitRate_Mode_String"),
		BitRate:           t.integer("BitRate"),
		BitRatePretty:     t.text("BitRate_String"),

		Channels:       t.integer("Channels"),
		ChannelsPretty: t.text("Channels_String"),

		SamplesPerFrame:    t.integer("SamplesPerFrame"),
		SamplingRate:       t.integer("SamplingRate"),
		SamplingRatePretty: t.text("SamplingRate_String"),
		SamplesCount:       t.integer("SamplingCount"),

		FrameRate:       t.str("FrameRate"),
		FrameRatePretty: t.text("FrameRate_String"),
		FrameCount:      t.integer("FrameCount"),

		CompressionMode: t.str("Compression_Mode"),

		StreamSize:       t.integer("StreamSize"),
		StreamSizePretty: t.text("StreamSize_String4"),
		StreamProportion: t.str("StreamSize_Proportion"),
	}
}

func imageFromTrack(t rawTrack) *mediaprobe.ImageTrack {
	return &mediaprobe.ImageTrack{
		FormatInfo:        t.str("Format_Info"),
		CommercialName:    t.str("Format_Commercial"),
		Compression:       t.str("Format_Compression"),
		FormatSettings:    t.str("Format_Settings"),
		InternetMediaType: t.str("InternetMediaType"),

		Width:              t.integer("Width"),
		Height:             t.integer("Height"),
		PixelAspectRatio:   t.str("PixelAspectRatio"),
		DisplayAspectRatio: t.str("DisplayAspectRatio"),
		ColorSpace:         t.str("ColorSpace"),

		BitDepth:       t.integer("BitDepth"),
		BitDepthPretty: t.text("BitDepth_String"),

		CompressionMode: t.str("Compression_Mode"),

		StreamSize:       t.integer("StreamSize"),
		StreamSizePretty: t.text("StreamSize_String4"),
		StreamProportion: t.str("StreamSize_Proportion"),
	}
}

// rawTrack is one track object as MediaInfo emits it: flat string values
// plus an optional "extra" object of nonstandard fields.
type rawTrack map[string]json.RawMessage

// text returns the string value for key, or "" when absent or not a string.
func (t rawTrack) text(key string) string {
	raw, ok := t[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// str returns the string value for key, or nil when the track does not
// report it.
func (t rawTrack) str(key string) *string {
	raw, ok := t[key]
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

// first returns the first of keys the track reports, or nil.
func (t rawTrack) first(keys ...string) *string {
	for _, key := range keys {
		if s := t.str(key); s != nil {
			return s
		}
	}
	return nil
}

// integer parses the value for key as an integer, or nil when absent or
// not numeric.
func (t rawTrack) integer(key string) *int64 {
	s := t.str(key)
	if s == nil {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(*s), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// millis parses the value for key as decimal seconds and returns rounded
// milliseconds, or nil when absent or not numeric. MediaInfo reports stream
// durations in seconds.
func (t rawTrack) millis(key string) *int64 {
	s := t.str(key)
	if s == nil {
		return nil
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil {
		return nil
	}
	ms := int64(math.Round(secs * 1000))
	return &ms
}

// extra returns the track's "extra" object, which MediaInfo uses for
// nonstandard tags such as custom ID3 frames. Missing or malformed extra
// decodes as an empty track.
func (t rawTrack) extra() rawTrack {
	raw, ok := t["extra"]
	if !ok {
		return rawTrack{}
	}
	var inner rawTrack
	if err := json.Unmarshal(raw, &inner); err != nil {
		return rawTrack{}
	}
	return inner
}
