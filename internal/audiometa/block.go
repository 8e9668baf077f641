package audiometa

import (
	"fmt"
	"strings"
	"time"

	"github.com/NWeiss87/auricle/pkg/provider/mediaprobe"
)

// Block is the audio_file_metadata payload of one output document. Field
// order is the wire order of the journal archive; the misspelled
// modification-date key and the double-underscore local keys are part of
// that contract. Fields typed any carry the probed value, null when the
// track reported no such key and "" when the whole track is absent.
type Block struct {
	FileNameExtension        any    `json:"file_general_file_name_extension"`
	FullRecordingDateAndTime string `json:"full_recording_date_and_time"`
	TimezoneFriendlyName     string `json:"tz_friendly_name"`
	InternetMediaType        any    `json:"file_general_internet_media_type"`
	AudioCodec               any    `json:"file_general_audio_codec"`
	AudioStreams             any    `json:"file_general_number_of_audio_streams"`
	ImageCodec               any    `json:"file_general_image_codec"`
	ImageStreams             any    `json:"file_general_number_of_image_streams"`
	OverallBitRatePretty     string `json:"file_general_overall_bitrate_pretty"`
	DurationTimestamp        string `json:"file_general_total_duration_timestamp"`
	FileSizePretty           string `json:"file_general_total_file_size_pretty"`
	FolderName               any    `json:"file_general_folder_name"`
	CompleteName             any    `json:"file_general_complete_name"`

	Track      TrackInfo      `json:"track_info"`
	Audio      AudioInfo      `json:"audio_info"`
	Image      ImageInfo      `json:"image_info"`
	Time       TimeInfo       `json:"time_info"`
	RandomRaw  RandomRaw      `json:"random_raw"`
	Transcript TranscriptInfo `json:"transcript"`

	SHA256 string `json:"sha256_hash"`
}

// TrackInfo groups the recorder's ID3 album and track tags.
type TrackInfo struct {
	AlbumPerformer  any    `json:"file_general_track_album_performer"`
	Genre           any    `json:"file_general_track_genre"`
	Grouping        any    `json:"file_general_track_grouping"`
	More            any    `json:"file_general_track_more"`
	Album           any    `json:"file_general_track_album"`
	Title           any    `json:"file_general_track_title"`
	PositionOfTotal string `json:"track_position_of_total"`
	Position        any    `json:"file_general_track_name_position"`
	Total           any    `json:"file_general_track_name_total"`
}

// AudioInfo groups the audio stream figures.
type AudioInfo struct {
	CommercialName     any    `json:"file_audio_commercial_name"`
	FormatVersion      any    `json:"file_audio_format_version"`
	FormatProfile      any    `json:"file_audio_format_profile"`
	CompressionMode    any    `json:"file_audio_compression_mode"`
	WritingLibrary     any    `json:"file_general_track_writing_library"`
	DurationTimestamp  string `json:"file_audio_total_duration_timestamp"`
	BitRatePretty      string `json:"file_audio_bit_rate_pretty"`
	SamplingRatePretty string `json:"file_audio_sampling_rate_pretty"`
	BitRateMode        any    `json:"file_audio_bit_rate_mode"`
	ChannelsPretty     string `json:"file_audio_channel_s_pretty"`
	FrameRatePretty    string `json:"file_audio_frame_rate_pretty"`
	FrameCount         any    `json:"file_audio_frame_count"`
	SamplesPerFrame    any    `json:"file_audio_samples_per_frame"`
	SamplesCount       any    `json:"file_audio_samples_count"`
	StreamSizePretty   string `json:"file_audio_stream_size_pretty"`
	StreamProportion   any    `json:"file_audio_proportion_of_this_stream"`
}

// ImageInfo groups the cover art stream figures and the general track's
// cover flags.
type ImageInfo struct {
	HasCover           any    `json:"file_general_has_cover"`
	CoverType          any    `json:"file_general_cover_type"`
	FormatInfo         any    `json:"file_image_format_info"`
	CoverMime          any    `json:"file_general_cover_mime"`
	CompressionMode    any    `json:"file_image_compression_mode"`
	Compression        any    `json:"file_image_compression"`
	FormatSettings     any    `json:"file_image_format_settings"`
	PixelAspectRatio   any    `json:"file_image_pixel_aspect_ratio"`
	DisplayAspectRatio any    `json:"file_image_display_aspect_ratio"`
	Width              any    `json:"file_image_width"`
	Height             any    `json:"file_image_height"`
	ColorSpace         any    `json:"file_image_color_space"`
	BitDepthPretty     string `json:"file_image_bit_depth_pretty"`
	StreamSizePretty   string `json:"file_image_stream_size_pretty"`
	StreamProportion   any    `json:"file_image_proportion_of_this_stream"`
}

// TimeInfo groups the file date tags plus the derived zone match.
type TimeInfo struct {
	TaggedDateUTC         any    `json:"file_general_tagged_date_utc"`
	CreationDateLocal     any    `json:"file_general_file_creation_date__local"`
	CreationDateUTC       any    `json:"file_general_file_creation_date_utc"`
	ModificationDateLocal any    `json:"file_general_file_last_modification_date__local"`
	ModificationDateUTC   any    `json:"file_gerneral_file_last_modification_date_utc"`
	UTCOffset             string `json:"utc_offset"`
	MatchedTZ             string `json:"matched_tz"`
}

// RandomRaw carries the machine-value counterparts of the display strings.
type RandomRaw struct {
	ImageBitDepth         any    `json:"file_image_bit_depth"`
	ImageStreamSize       any    `json:"file_image_stream_size_in_bytes"`
	ImageMediaType        any    `json:"file_image_internet_media_type"`
	ImageCommercialName   any    `json:"file_image_commercial_name"`
	AudioStreamSize       any    `json:"file_audio_stream_size_in_bytes"`
	AudioFrameRate        any    `json:"file_audio_frame_rate"`
	AudioSamplingRate     any    `json:"file_audio_sampling_rate"`
	AudioChannels         any    `json:"file_audio_channel_s"`
	AudioBitRate          any    `json:"file_audio_bit_rate"`
	AudioBitRateModePret  string `json:"file_audio_bit_rate_mode_pretty"`
	AudioDurationMillis   any    `json:"file_audio_total_duration_in_milliseconds"`
	FileSize              any    `json:"file_general_total_file_size_in_bytes"`
	GeneralDurationMillis any    `json:"file_general_total_duration_in_milliseconds"`
	OverallBitRate        any    `json:"file_general_overall_bitrate"`
	GeneralStreamSize     any    `json:"file_general_stream_size_in_bytes"`
	GeneralStreamPretty   string `json:"file_general_stream_size_pretty"`
	GeneralStreamProp     any    `json:"file_general_proportion_of_this_stream"`
}

// TranscriptInfo carries the embedded transcript cross-reference.
type TranscriptInfo struct {
	Lyrics           any `json:"file_general_lyrics"`
	OriginalFilename any `json:"file_general_original_filename"`
}

// buildBlock shapes a probe report into the wire block.
func buildBlock(r *mediaprobe.Report, sum string) Block {
	g := r.General

	b := Block{
		FileNameExtension: "",
		InternetMediaType: "",
		AudioCodec:        "",
		AudioStreams:      "",
		ImageCodec:        "",
		ImageStreams:      "",
		FolderName:        "",
		CompleteName:      "",
		SHA256:            sum,
	}
	if g != nil {
		b.FileNameExtension = sval(g.FileNameExtension)
		b.InternetMediaType = sval(g.InternetMediaType)
		b.AudioCodec = sval(g.AudioCodecs)
		b.AudioStreams = ival(g.AudioCount)
		b.ImageCodec = sval(g.ImageCodecs)
		b.ImageStreams = ival(g.ImageCount)
		b.OverallBitRatePretty = g.OverallBitRatePretty
		b.DurationTimestamp = g.DurationTimestamp
		b.FileSizePretty = g.FileSizePretty
		b.FolderName = sval(g.FolderName)
		b.CompleteName = sval(g.CompleteName)
		b.FullRecordingDateAndTime = fullRecordingTimestamp(strOr(g.RecordedDate))
	}

	offset, zone, friendly := timezoneInfo(g)
	b.TimezoneFriendlyName = friendly

	b.Track = trackInfo(g)
	b.Audio = audioInfo(g, r.Audio)
	b.Image = imageInfo(g, r.Image)
	b.Time = timeInfo(g, offset, zone)
	b.RandomRaw = randomRaw(g, r.Audio, r.Image)
	b.Transcript = transcriptInfo(g)
	return b
}

func trackInfo(g *mediaprobe.GeneralTrack) TrackInfo {
	info := TrackInfo{
		AlbumPerformer: "", Genre: "", Grouping: "", More: "",
		Album: "", Title: "", Position: "", Total: "",
	}
	if g == nil {
		info.PositionOfTotal = " / "
		return info
	}
	info.AlbumPerformer = sval(g.AlbumPerformer)
	info.Genre = sval(g.Genre)
	info.Grouping = sval(g.Grouping)
	info.More = sval(g.TrackMore)
	info.Album = sval(g.Album)
	info.Title = sval(g.Title)
	info.Position = ival(g.TrackPosition)
	info.Total = ival(g.TrackTotal)
	info.PositionOfTotal = fmt.Sprintf("%s / %s", display(info.Position), display(info.Total))
	return info
}

func audioInfo(g *mediaprobe.GeneralTrack, a *mediaprobe.AudioTrack) AudioInfo {
	info := AudioInfo{
		CommercialName: "", FormatVersion: "", FormatProfile: "",
		CompressionMode: "", WritingLibrary: "", BitRateMode: "",
		FrameCount: "", SamplesPerFrame: "", SamplesCount: "",
		StreamProportion: "",
	}
	if g != nil {
		info.WritingLibrary = sval(g.WritingLibrary)
	}
	if a == nil {
		return info
	}
	info.CommercialName = sval(a.CommercialName)
	info.FormatVersion = sval(a.FormatVersion)
	info.FormatProfile = sval(a.FormatProfile)
	info.CompressionMode = sval(a.CompressionMode)
	info.DurationTimestamp = a.DurationTimestamp
	info.BitRatePretty = a.BitRatePretty
	info.SamplingRatePretty = a.SamplingRatePretty
	info.BitRateMode = sval(a.BitRateMode)
	info.ChannelsPretty = a.ChannelsPretty
	info.FrameRatePretty = a.FrameRatePretty
	info.FrameCount = ival(a.FrameCount)
	info.SamplesPerFrame = ival(a.SamplesPerFrame)
	info.SamplesCount = ival(a.SamplesCount)
	info.StreamSizePretty = a.StreamSizePretty
	info.StreamProportion = sval(a.StreamProportion)
	return info
}

func imageInfo(g *mediaprobe.GeneralTrack, img *mediaprobe.ImageTrack) ImageInfo {
	info := ImageInfo{
		HasCover: "", CoverType: "", FormatInfo: "", CoverMime: "",
		CompressionMode: "", Compression: "", FormatSettings: "",
		PixelAspectRatio: "", DisplayAspectRatio: "", Width: "",
		Height: "", ColorSpace: "", StreamProportion: "",
	}
	if g != nil {
		info.HasCover = sval(g.Cover)
		info.CoverType = sval(g.CoverType)
		info.CoverMime = sval(g.CoverMime)
	}
	if img == nil {
		return info
	}
	info.FormatInfo = sval(img.FormatInfo)
	info.CompressionMode = sval(img.CompressionMode)
	info.Compression = sval(img.Compression)
	info.FormatSettings = sval(img.FormatSettings)
	info.PixelAspectRatio = sval(img.PixelAspectRatio)
	info.DisplayAspectRatio = sval(img.DisplayAspectRatio)
	info.Width = ival(img.Width)
	info.Height = ival(img.Height)
	info.ColorSpace = sval(img.ColorSpace)
	info.BitDepthPretty = img.BitDepthPretty
	info.StreamSizePretty = img.StreamSizePretty
	info.StreamProportion = sval(img.StreamProportion)
	return info
}

func timeInfo(g *mediaprobe.GeneralTrack, offset, zone string) TimeInfo {
	info := TimeInfo{
		TaggedDateUTC: "", CreationDateLocal: "", CreationDateUTC: "",
		ModificationDateLocal: "", ModificationDateUTC: "",
		UTCOffset: offset, MatchedTZ: zone,
	}
	if g == nil {
		return info
	}
	info.TaggedDateUTC = sval(g.TaggedDate)
	info.CreationDateLocal = sval(g.FileCreationDateLocal)
	info.CreationDateUTC = sval(g.FileCreationDate)
	info.ModificationDateLocal = sval(g.FileModificationDateLocal)
	info.ModificationDateUTC = sval(g.FileModificationDate)
	return info
}

func randomRaw(g *mediaprobe.GeneralTrack, a *mediaprobe.AudioTrack, img *mediaprobe.ImageTrack) RandomRaw {
	raw := RandomRaw{
		ImageBitDepth: "", ImageStreamSize: "", ImageMediaType: "",
		ImageCommercialName: "", AudioStreamSize: "", AudioFrameRate: "",
		AudioSamplingRate: "", AudioChannels: "", AudioBitRate: "",
		AudioDurationMillis: "", FileSize: "", GeneralDurationMillis: "",
		OverallBitRate: "", GeneralStreamSize: "", GeneralStreamProp: "",
	}
	if img != nil {
		raw.ImageBitDepth = ival(img.BitDepth)
		raw.ImageStreamSize = ival(img.StreamSize)
		raw.ImageMediaType = sval(img.InternetMediaType)
		raw.ImageCommercialName = sval(img.CommercialName)
	}
	if a != nil {
		raw.AudioStreamSize = ival(a.StreamSize)
		raw.AudioFrameRate = sval(a.FrameRate)
		raw.AudioSamplingRate = ival(a.SamplingRate)
		raw.AudioChannels = ival(a.Channels)
		raw.AudioBitRate = ival(a.BitRate)
		raw.AudioBitRateModePret = a.BitRateModePretty
		raw.AudioDurationMillis = ival(a.Duration)
	}
	if g != nil {
		raw.FileSize = ival(g.FileSize)
		raw.GeneralDurationMillis = ival(g.Duration)
		raw.OverallBitRate = ival(g.OverallBitRate)
		raw.GeneralStreamSize = ival(g.StreamSize)
		raw.GeneralStreamPretty = g.StreamSizePretty
		raw.GeneralStreamProp = sval(g.StreamProportion)
	}
	return raw
}

func transcriptInfo(g *mediaprobe.GeneralTrack) TranscriptInfo {
	if g == nil {
		return TranscriptInfo{Lyrics: "", OriginalFilename: ""}
	}
	return TranscriptInfo{
		Lyrics:           sval(g.Lyrics),
		OriginalFilename: sval(g.OriginalFilename),
	}
}

// ── value helpers ───────────────────────────────────────────────────────────

func sval(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func ival(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func strOr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func display(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// ── derived timestamps ──────────────────────────────────────────────────────

// fullRecordingTimestamp renders a probed "2006-01-02 15:04:05 UTC" tag as
// a spoken-style timestamp like "Friday, July 4th, 2025 5:18PM". Returns ""
// when the tag is missing or malformed.
func fullRecordingTimestamp(recorded string) string {
	t, err := time.Parse("2006-01-02 15:04:05", strings.TrimSuffix(recorded, " UTC"))
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s, %s %d%s, %d %s",
		t.Weekday(), t.Month(), t.Day(), daySuffix(t.Day()), t.Year(), t.Format("3:04PM"))
}

func daySuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// usZones are the candidate zones for the creation-date offset match, in
// match preference order.
var usZones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Phoenix",
	"America/Los_Angeles",
	"America/Anchorage",
	"Pacific/Honolulu",
}

var usZoneNames = map[string]string{
	"America/New_York":    "Eastern Time",
	"America/Chicago":     "Central Time",
	"America/Denver":      "Mountain Time",
	"America/Phoenix":     "Mountain Standard Time",
	"America/Los_Angeles": "Pacific Time",
	"America/Anchorage":   "Alaska Time",
	"Pacific/Honolulu":    "Hawaii-Aleutian Time",
}

// timezoneInfo derives the recorder's UTC offset from the local and UTC
// creation dates and names the US zone carrying that offset at that moment.
// Unparseable dates yield empty values rather than failing the file.
func timezoneInfo(g *mediaprobe.GeneralTrack) (offset, zone, friendly string) {
	if g == nil {
		return "", "", ""
	}
	local, err := time.Parse("2006-01-02 15:04:05", strOr(g.FileCreationDateLocal))
	if err != nil {
		return "", "", ""
	}
	utc, err := time.Parse("2006-01-02 15:04:05", strings.TrimSuffix(strOr(g.FileCreationDate), " UTC"))
	if err != nil {
		return "", "", ""
	}

	diff := local.Sub(utc)
	minutes := int(diff.Minutes())
	sign := "+"
	if minutes < 0 {
		sign = "-"
	}
	abs := minutes
	if abs < 0 {
		abs = -abs
	}
	offset = fmt.Sprintf("%s%d:%02d", sign, abs/60, abs%60)

	zone = matchUSZone(local, diff)
	friendly = "Unknown Time"
	if name, ok := usZoneNames[zone]; ok {
		friendly = name
	}
	return offset, zone, friendly
}

// matchUSZone finds the zone whose offset at the local instant equals diff,
// falling back to the closest offset when none matches exactly.
func matchUSZone(local time.Time, diff time.Duration) string {
	best := ""
	var bestDelta time.Duration = -1
	for _, name := range usZones {
		loc, err := time.LoadLocation(name)
		if err != nil {
			continue
		}
		at := time.Date(local.Year(), local.Month(), local.Day(),
			local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), loc)
		_, secs := at.Zone()
		zoneOffset := time.Duration(secs) * time.Second
		if zoneOffset == diff {
			return name
		}
		delta := zoneOffset - diff
		if delta < 0 {
			delta = -delta
		}
		if bestDelta < 0 || delta < bestDelta {
			bestDelta = delta
			best = name
		}
	}
	return best
}
