// Package chunk splits an SRT transcript into bounded translation units and
// tracks which ones have completed, so a killed-and-resumed translate stage
// picks up mid-video instead of re-translating from scratch (spec §4.2
// Chunk tracker).
package chunk

import (
	"unicode/utf8"

	"github.com/ytsubs/core/pkg/subtitle"
)

// Default splitting thresholds (spec §4.2): a chunk closes when either is
// reached, whichever fires first.
const (
	DefaultMaxCues  = 40
	DefaultMaxChars = 4000
)

// SubtitleChunk is one atomic translation unit: a contiguous run of cues
// with its covering time range.
type SubtitleChunk struct {
	Index        int             `json:"index"`
	StartSeconds float64         `json:"start_seconds"`
	EndSeconds   float64         `json:"end_seconds"`
	Entries      []subtitle.Cue  `json:"-"`
	SourceText   string          `json:"-"`
}

// Split walks srtText's cues and groups them into chunks of at most
// maxCues cues or maxChars Unicode code points (§9 open question: the
// character threshold counts runes, not bytes, so multi-byte scripts don't
// under-fill a chunk). The split is deterministic: the same input and
// thresholds always produce the same chunk boundaries.
func Split(srtText string, maxCues, maxChars int) ([]SubtitleChunk, error) {
	if maxCues <= 0 {
		maxCues = DefaultMaxCues
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	cues, err := subtitle.ParseSRT(srtText)
	if err != nil {
		return nil, err
	}
	if len(cues) == 0 {
		return nil, nil
	}

	var chunks []SubtitleChunk
	var current []subtitle.Cue
	charCount := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, SubtitleChunk{
			Index:        len(chunks),
			StartSeconds: current[0].Start.Seconds(),
			EndSeconds:   current[len(current)-1].End.Seconds(),
			Entries:      current,
			SourceText:   subtitle.WriteSRT(current),
		})
		current = nil
		charCount = 0
	}

	for _, cue := range cues {
		cueChars := utf8.RuneCountInString(cue.Text())
		if len(current) > 0 && (len(current) >= maxCues || charCount+cueChars > maxChars) {
			flush()
		}
		current = append(current, cue)
		charCount += cueChars
	}
	flush()

	return chunks, nil
}
