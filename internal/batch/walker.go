package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// analysisNameRe matches the output filenames this pipeline itself produces
// (a "... - analysis_<run timestamp>.json" tail), so earlier results sitting
// in a transcript directory are never re-analyzed.
var analysisNameRe = regexp.MustCompile(`(?i)_\d{4}-\d{2}-\d{2} - \d{2}-\d{2}-\d{2}\.json$`)

// transcriberTag is the suffix the transcriber appends to transcript stems.
// It is stripped before matching a transcript against audio filenames.
const transcriberTag = " - large-v2 - SR"

// ListTranscripts returns the transcript JSON files directly inside each of
// dirs, sorted by path. Subdirectories are not descended into, and files
// matching this pipeline's own output naming are skipped.
func ListTranscripts(dirs []string) ([]string, error) {
	var out []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("batch: read transcript dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if !strings.EqualFold(filepath.Ext(name), ".json") {
				continue
			}
			if analysisNameRe.MatchString(name) {
				continue
			}
			out = append(out, filepath.Join(dir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

// ListAudio returns the audio files (.mp3, .flac) directly inside each of
// dirs, sorted by path.
func ListAudio(dirs []string) ([]string, error) {
	var out []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("batch: read audio dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".mp3", ".flac":
				out = append(out, filepath.Join(dir, e.Name()))
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// MatchAudio finds the audio file belonging to a transcript. The transcript
// stem, minus the transcriber tag, must appear inside the audio filename;
// the first match in sort order wins. Returns the empty string when no
// audio matches.
func MatchAudio(audio []string, transcriptName string) string {
	stem := strings.TrimSuffix(transcriptName, filepath.Ext(transcriptName))
	key := strings.ReplaceAll(stem, transcriberTag, "")
	for _, path := range audio {
		if strings.Contains(filepath.Base(path), key) {
			return path
		}
	}
	return ""
}
