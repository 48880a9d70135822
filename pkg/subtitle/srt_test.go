package subtitle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:04,500
Hello there.

2
00:00:05,000 --> 00:00:07,250
Second line one
Second line two

`

func TestParseSRT(t *testing.T) {
	cues, err := ParseSRT(sampleSRT)
	require.NoError(t, err)
	require.Len(t, cues, 2)

	assert.Equal(t, 1*time.Second, cues[0].Start)
	assert.Equal(t, 4*time.Second+500*time.Millisecond, cues[0].End)
	assert.Equal(t, "Hello there.", cues[0].Text())

	assert.Equal(t, "Second line one\nSecond line two", cues[1].Text())
}

func TestWriteSRTRoundTrip(t *testing.T) {
	cues, err := ParseSRT(sampleSRT)
	require.NoError(t, err)

	out := WriteSRT(cues)
	reparsed, err := ParseSRT(out)
	require.NoError(t, err)

	require.Len(t, reparsed, len(cues))
	for i := range cues {
		assert.Equal(t, cues[i].Start, reparsed[i].Start)
		assert.Equal(t, cues[i].End, reparsed[i].End)
		assert.Equal(t, cues[i].Text(), reparsed[i].Text())
	}
}

func TestToSRTIdentityForSRT(t *testing.T) {
	out, err := ToSRT([]byte(sampleSRT), FormatSRT)
	require.NoError(t, err)
	assert.Equal(t, sampleSRT, out)
}
