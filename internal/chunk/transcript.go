package chunk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Transcript is the portion of a speech-to-text result file that chunking
// consumes. Extra keys in the JSON (language, token ids, temperatures and so
// on) are ignored.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

// Segment is one recognised utterance with its word-level alignment.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words"`
}

// Word is a single aligned word within a segment. Start and End are offsets
// in seconds from the beginning of the recording.
type Word struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Word        string  `json:"word"`
	Probability float64 `json:"probability"`
}

// LoadTranscript reads and decodes a transcript JSON file.
func LoadTranscript(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chunk: read transcript: %w", err)
	}
	var tr Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("chunk: decode transcript %s: %w", filepath.Base(path), err)
	}
	return &tr, nil
}
