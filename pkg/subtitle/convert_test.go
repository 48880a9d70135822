package subtitle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVTT = `WEBVTT

00:00:01.000 --> 00:00:04.500
Hello <b>there</b>.

00:00:05.000 --> 00:00:07.250
Second cue
`

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatVTT, DetectFormat([]byte(sampleVTT)))
	assert.Equal(t, FormatJSON3, DetectFormat([]byte(`{"events":[]}`)))
	assert.Equal(t, FormatSRV3, DetectFormat([]byte(`<?xml version="1.0"?><transcript></transcript>`)))
	assert.Equal(t, FormatSRT, DetectFormat([]byte(sampleSRT)))
}

func TestVTTToSRT(t *testing.T) {
	out, err := ToSRT([]byte(sampleVTT), FormatVTT)
	require.NoError(t, err)

	cues, err := ParseSRT(out)
	require.NoError(t, err)
	require.Len(t, cues, 2)
	assert.Equal(t, "Hello there.", cues[0].Text())
	assert.Equal(t, 1*time.Second, cues[0].Start)
}

func TestJSON3ToSRT(t *testing.T) {
	doc := `{"events":[{"tStartMs":1000,"dDurationMs":2000,"segs":[{"utf8":"Hi "},{"utf8":"there"}]}]}`
	out, err := ToSRT([]byte(doc), FormatJSON3)
	require.NoError(t, err)

	cues, err := ParseSRT(out)
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, "Hi there", cues[0].Text())
	assert.Equal(t, 1*time.Second, cues[0].Start)
	assert.Equal(t, 3*time.Second, cues[0].End)
}

func TestSRV3ToSRT(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?><transcript><p start="1000" dur="2500">Hello world</p></transcript>`
	out, err := ToSRT([]byte(doc), FormatSRV3)
	require.NoError(t, err)

	cues, err := ParseSRT(out)
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, "Hello world", cues[0].Text())
	assert.Equal(t, 1*time.Second, cues[0].Start)
	assert.Equal(t, 3500*time.Millisecond, cues[0].End)
}
