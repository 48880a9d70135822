// Package subtitle provides a pure, dependency-free SRT cue model plus
// parsers that normalize VTT, JSON3 and SRV3 caption payloads down to SRT
// (spec §6.2 subtitle catalog/download: "format auto-detected and
// converted to SRT by the subtitle-format library").
package subtitle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cue is a single subtitle entry: an index, a time range, and one or more
// lines of text.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Lines []string
}

// Text joins a cue's lines with newlines.
func (c Cue) Text() string {
	return strings.Join(c.Lines, "\n")
}

// ParseSRT parses SRT-formatted text into an ordered list of cues. Cue
// indices in the source are preserved but not relied upon for ordering;
// malformed blocks are skipped rather than aborting the whole parse, since
// downloaded captions occasionally contain a stray blank block.
func ParseSRT(text string) ([]Cue, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	blocks := strings.Split(strings.TrimSpace(text), "\n\n")
	cues := make([]Cue, 0, len(blocks))

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			continue
		}

		idx := 0
		timeLine := lines[0]
		textLines := lines[1:]
		if n, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
			idx = n
			if len(lines) < 3 {
				continue
			}
			timeLine = lines[1]
			textLines = lines[2:]
		}

		start, end, err := parseSRTTimeRange(timeLine)
		if err != nil {
			continue
		}

		cues = append(cues, Cue{
			Index: idx,
			Start: start,
			End:   end,
			Lines: textLines,
		})
	}
	return cues, nil
}

func parseSRTTimeRange(line string) (time.Duration, time.Duration, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time range %q", line)
	}
	start, err := parseSRTTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseSRTTimestamp(strings.TrimSpace(strings.Fields(parts[1])[0]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseSRTTimestamp parses "HH:MM:SS,mmm".
func parseSRTTimestamp(ts string) (time.Duration, error) {
	ts = strings.ReplaceAll(ts, ".", ",")
	main, msStr, ok := strings.Cut(ts, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	parts := strings.Split(main, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, err
	}
	ms, err := strconv.Atoi(msStr)
	if err != nil {
		return 0, err
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(ms)*time.Millisecond, nil
}

// WriteSRT serializes cues to SRT text, renumbering sequentially from 1.
func WriteSRT(cues []Cue) string {
	var b strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, formatSRTTimestamp(c.Start), formatSRTTimestamp(c.End), c.Text())
	}
	return b.String()
}

func formatSRTTimestamp(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
