// Package audiometa builds the audio_file_metadata block of an output
// document: a SHA-256 of the recording plus the probed container, stream
// and tag data grouped the way the journal archives them.
package audiometa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/NWeiss87/auricle/pkg/provider/mediaprobe"
)

// Collector probes recordings and assembles their metadata blocks.
type Collector struct {
	prober mediaprobe.Provider
}

// NewCollector builds a Collector over the given probe backend.
func NewCollector(prober mediaprobe.Provider) *Collector {
	return &Collector{prober: prober}
}

// Collect hashes and probes the recording at path.
func (c *Collector) Collect(ctx context.Context, path string) (Block, error) {
	sum, err := HashFile(path)
	if err != nil {
		return Block{}, err
	}
	report, err := c.prober.Probe(ctx, path)
	if err != nil {
		return Block{}, fmt.Errorf("audiometa: probe %q: %w", path, err)
	}
	return buildBlock(report, sum), nil
}

// HashFile streams the file through SHA-256 and returns the hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("audiometa: open %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("audiometa: hash %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
