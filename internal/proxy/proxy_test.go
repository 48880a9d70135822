package proxy

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidFiltersBadEntries(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"http://proxy.example.com:8080", true},
		{"socks5://10.0.0.1:1080", true},
		{"ftp://bad.example.com", false},
		{"not-a-url", false},
		{"http://", false},
		{"http://host:999999", false},
		{"", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, isValid(c.in), c.in)
	}
}

func TestPoolFiltersInvalidProxiesAtConstruction(t *testing.T) {
	p := New([]string{"http://a:8080", "not-valid", "socks5://b:1080"}, 3, time.Minute, zerolog.Nop())
	assert.Equal(t, 2, p.HealthyCount())
}

func TestPoolRoundRobin(t *testing.T) {
	p := New([]string{"http://a:1", "http://b:2", "http://c:3"}, 3, time.Minute, zerolog.Nop())
	seen := []string{p.Next(), p.Next(), p.Next(), p.Next()}
	assert.Equal(t, []string{"http://a:1", "http://b:2", "http://c:3", "http://a:1"}, seen)
}

func TestPoolMarksUnhealthyAfterThreshold(t *testing.T) {
	p := New([]string{"http://a:1", "http://b:2"}, 2, time.Hour, zerolog.Nop())

	p.MarkFailure("http://a:1", "timeout")
	status, ok := p.Status("http://a:1")
	require.True(t, ok)
	assert.False(t, status.IsUnhealthy)

	p.MarkFailure("http://a:1", "timeout")
	status, ok = p.Status("http://a:1")
	require.True(t, ok)
	assert.True(t, status.IsUnhealthy)

	assert.Equal(t, 1, p.HealthyCount())
}

func TestPoolSkipsUnhealthyUntilCooldown(t *testing.T) {
	p := New([]string{"http://a:1", "http://b:2"}, 1, time.Hour, zerolog.Nop())
	p.MarkFailure("http://a:1", "boom")

	for i := 0; i < 5; i++ {
		assert.Equal(t, "http://b:2", p.Next())
	}
}

func TestPoolMarkSuccessClearsUnhealthy(t *testing.T) {
	p := New([]string{"http://a:1"}, 1, time.Hour, zerolog.Nop())
	p.MarkFailure("http://a:1", "boom")
	status, _ := p.Status("http://a:1")
	require.True(t, status.IsUnhealthy)

	p.MarkSuccess("http://a:1")
	status, _ = p.Status("http://a:1")
	assert.False(t, status.IsUnhealthy)
	assert.Equal(t, 0, status.ConsecutiveFailures)
}

func TestPoolFallsBackToUnhealthyWhenNoneAvailable(t *testing.T) {
	p := New([]string{"http://a:1"}, 1, time.Hour, zerolog.Nop())
	p.MarkFailure("http://a:1", "boom")

	assert.Equal(t, "http://a:1", p.Next())
}

func TestPoolResetClearsStatus(t *testing.T) {
	p := New([]string{"http://a:1"}, 1, time.Hour, zerolog.Nop())
	p.MarkFailure("http://a:1", "boom")
	p.Reset("http://a:1")

	status, _ := p.Status("http://a:1")
	assert.False(t, status.IsUnhealthy)
}

func TestPoolNextEmptyReturnsEmptyString(t *testing.T) {
	p := New(nil, 3, time.Minute, zerolog.Nop())
	assert.Equal(t, "", p.Next())
}
