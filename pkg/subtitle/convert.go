package subtitle

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Format identifies the caption wire format a source file arrived in.
type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatJSON3 Format = "json3"
	FormatSRV3 Format = "srv3"
)

// DetectFormat sniffs a caption payload's format from its content, since
// yt-dlp's subtitle listing does not always expose a reliable extension.
func DetectFormat(data []byte) Format {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(trimmed, "WEBVTT"):
		return FormatVTT
	case strings.HasPrefix(trimmed, "{"):
		return FormatJSON3
	case strings.HasPrefix(trimmed, "<?xml") || strings.HasPrefix(trimmed, "<timedtext"):
		return FormatSRV3
	default:
		return FormatSRT
	}
}

// ToSRT converts a caption payload of the given format to SRT text. SRT
// input passes through as identity, per the format library's contract.
func ToSRT(data []byte, format Format) (string, error) {
	switch format {
	case FormatSRT:
		return string(data), nil
	case FormatVTT:
		return vttToSRT(string(data))
	case FormatJSON3:
		return json3ToSRT(data)
	case FormatSRV3:
		return srv3ToSRT(data)
	default:
		return "", fmt.Errorf("subtitle: unsupported format %q", format)
	}
}

var vttTimeLine = regexp.MustCompile(`(\d{2}:)?\d{2}:\d{2}[.,]\d{3}\s*-->\s*(\d{2}:)?\d{2}:\d{2}[.,]\d{3}`)

// vttToSRT strips the WEBVTT header, NOTE/STYLE blocks and cue settings,
// then renumbers and reformats timestamps as SRT.
func vttToSRT(text string) (string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var cues []Cue
	var cur *Cue
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "WEBVTT"), strings.HasPrefix(trimmed, "NOTE"),
			strings.HasPrefix(trimmed, "STYLE"), strings.HasPrefix(trimmed, "REGION"):
			cur = nil
			continue
		case vttTimeLine.MatchString(trimmed):
			start, end, err := parseVTTTimeRange(trimmed)
			if err != nil {
				cur = nil
				continue
			}
			cues = append(cues, Cue{Index: len(cues) + 1, Start: start, End: end})
			cur = &cues[len(cues)-1]
		case trimmed == "":
			cur = nil
		default:
			if cur != nil {
				cur.Lines = append(cur.Lines, stripVTTTags(trimmed))
			}
		}
	}
	return WriteSRT(cues), nil
}

var vttTagRe = regexp.MustCompile(`<[^>]+>`)

func stripVTTTags(line string) string {
	return vttTagRe.ReplaceAllString(line, "")
}

func parseVTTTimeRange(line string) (time.Duration, time.Duration, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid vtt time range %q", line)
	}
	endField := strings.Fields(strings.TrimSpace(parts[1]))[0]
	start, err := parseVTTTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseVTTTimestamp(endField)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseVTTTimestamp(ts string) (time.Duration, error) {
	ts = strings.ReplaceAll(ts, ",", ".")
	if strings.Count(ts, ":") == 1 {
		ts = "00:" + ts
	}
	return parseSRTTimestamp(strings.Replace(ts, ".", ",", 1))
}

// json3Event mirrors YouTube's json3 timedtext schema (subset used here).
type json3Event struct {
	TStartMs int64 `json:"tStartMs"`
	DDurationMs int64 `json:"dDurationMs"`
	Segs []struct {
		Utf8 string `json:"utf8"`
	} `json:"segs"`
}

type json3Doc struct {
	Events []json3Event `json:"events"`
}

func json3ToSRT(data []byte) (string, error) {
	var doc json3Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("subtitle: parse json3: %w", err)
	}

	var cues []Cue
	for _, ev := range doc.Events {
		if len(ev.Segs) == 0 {
			continue
		}
		var b strings.Builder
		for _, seg := range ev.Segs {
			b.WriteString(seg.Utf8)
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		start := time.Duration(ev.TStartMs) * time.Millisecond
		end := start + time.Duration(ev.DDurationMs)*time.Millisecond
		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: start,
			End:   end,
			Lines: strings.Split(text, "\n"),
		})
	}
	return WriteSRT(cues), nil
}

// srv3Text is the minimal XML shape of YouTube's srv3/ttml-ish timedtext
// format used for auto-captions.
type srv3Text struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

type srv3Transcript struct {
	Texts []srv3Text `xml:"p"`
}

func srv3ToSRT(data []byte) (string, error) {
	texts, err := parseSRV3XML(data)
	if err != nil {
		return "", err
	}
	var cues []Cue
	for _, t := range texts {
		startMs, err := strconv.ParseFloat(t.Start, 64)
		if err != nil {
			continue
		}
		durMs, err := strconv.ParseFloat(t.Dur, 64)
		if err != nil {
			durMs = 0
		}
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		start := time.Duration(startMs * float64(time.Millisecond))
		end := start + time.Duration(durMs*float64(time.Millisecond))
		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: start,
			End:   end,
			Lines: strings.Split(text, "\n"),
		})
	}
	return WriteSRT(cues), nil
}
