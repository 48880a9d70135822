// Package proxy implements round-robin proxy selection with simple
// consecutive-failure health tracking and cooldown-based recovery probing
// (spec §4.5 Proxy pool).
package proxy

import (
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var validSchemes = map[string]bool{
	"http": true, "https": true, "socks4": true, "socks5": true, "socks5h": true,
}

// isValid reports whether proxyURL parses as a scheme://host[:port] the
// pool can dial through.
func isValid(proxyURL string) bool {
	if proxyURL == "" {
		return false
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return false
	}
	if !validSchemes[u.Scheme] {
		return false
	}
	if u.Hostname() == "" {
		return false
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return false
		}
	}
	return true
}

// Status is one proxy's health bookkeeping.
type Status struct {
	Proxy               string
	ConsecutiveFailures int
	LastError           string
	LastSuccessTime     time.Time
	MarkedUnhealthyTime time.Time
	IsUnhealthy         bool
}

func (s *Status) markSuccess() {
	s.ConsecutiveFailures = 0
	s.LastSuccessTime = time.Now()
	s.IsUnhealthy = false
	s.MarkedUnhealthyTime = time.Time{}
	s.LastError = ""
}

func (s *Status) markFailure(errMsg string, threshold int) bool {
	s.ConsecutiveFailures++
	s.LastError = errMsg
	if s.ConsecutiveFailures >= threshold && !s.IsUnhealthy {
		s.IsUnhealthy = true
		s.MarkedUnhealthyTime = time.Now()
		return true
	}
	return false
}

func (s *Status) shouldRetry(cooldown time.Duration) bool {
	if !s.IsUnhealthy || s.MarkedUnhealthyTime.IsZero() {
		return false
	}
	return time.Since(s.MarkedUnhealthyTime) >= cooldown
}

// DefaultFailureThreshold is the consecutive-failure count that marks a
// proxy unhealthy (§4.5).
const DefaultFailureThreshold = 3

// DefaultCooldown is how long an unhealthy proxy waits before being
// eligible for a recovery probe (§4.5).
const DefaultCooldown = 10 * time.Minute

// Pool round-robins over a fixed proxy list, skipping proxies marked
// unhealthy until their cooldown elapses.
type Pool struct {
	proxies           []string
	failureThreshold  int
	cooldown          time.Duration
	log               zerolog.Logger

	mu       sync.Mutex
	statuses map[string]*Status
	index    int
}

// New builds a Pool from a raw proxy list, silently dropping entries that
// don't parse as a supported scheme://host[:port].
func New(proxies []string, failureThreshold int, cooldown time.Duration, log zerolog.Logger) *Pool {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	var valid []string
	var invalid int
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if isValid(p) {
			valid = append(valid, p)
		} else {
			invalid++
			log.Warn().Str("proxy", p).Msg("invalid proxy format, skipped")
		}
	}

	statuses := make(map[string]*Status, len(valid))
	for _, p := range valid {
		statuses[p] = &Status{Proxy: p}
	}

	if invalid > 0 {
		log.Warn().Int("invalid", invalid).Int("valid", len(valid)).Msg("filtered invalid proxies")
	}
	if len(valid) > 0 {
		log.Info().Int("count", len(valid)).Msg("proxy pool initialized")
	} else if len(proxies) > 0 {
		log.Warn().Msg("all configured proxies were invalid; running without a proxy")
	}

	return &Pool{
		proxies:          valid,
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		log:              log,
		statuses:         statuses,
	}
}

// Next returns the next proxy to use (round-robin), preferring healthy
// proxies, falling back to cooldown-eligible ones, and finally to every
// proxy (including unhealthy ones) if nothing else is available. Returns
// "" if the pool has no configured proxies.
func (p *Pool) Next() string {
	if len(p.proxies) == 0 {
		return ""
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := p.filterHealthy()
	if len(candidates) == 0 {
		candidates = p.filterRetryable()
		if len(candidates) > 0 {
			p.log.Info().Int("count", len(candidates)).Msg("attempting proxy recovery probe")
		}
	}
	if len(candidates) == 0 {
		p.log.Warn().Msg("all proxies unhealthy, falling back to unhealthy proxy")
		candidates = p.proxies
	}

	chosen := candidates[p.index%len(candidates)]
	p.index++
	return chosen
}

// NextWithDirect implements the get_next_proxy(allow_direct) contract
// (spec §4.5): same preference order as Next, but when nothing healthy or
// cooldown-eligible remains and allowDirect is true, it returns "" (direct
// connection) instead of falling back to a known-unhealthy proxy. When
// allowDirect is false it falls back to the proxies with the fewest
// consecutive failures (Next instead falls back to every proxy).
func (p *Pool) NextWithDirect(allowDirect bool) string {
	if len(p.proxies) == 0 {
		return ""
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := p.filterHealthy()
	if len(candidates) == 0 {
		candidates = p.filterRetryable()
	}
	if len(candidates) == 0 {
		if allowDirect {
			p.log.Warn().Msg("all proxies unhealthy, allowing direct connection")
			return ""
		}
		candidates = p.leastFailedProxies()
	}

	chosen := candidates[p.index%len(candidates)]
	p.index++
	return chosen
}

// leastFailedProxies returns every proxy tied for the lowest consecutive
// failure count, for NextWithDirect's non-direct fallback.
func (p *Pool) leastFailedProxies() []string {
	best := -1
	for _, proxy := range p.proxies {
		if f := p.statuses[proxy].ConsecutiveFailures; best == -1 || f < best {
			best = f
		}
	}
	out := make([]string, 0, len(p.proxies))
	for _, proxy := range p.proxies {
		if p.statuses[proxy].ConsecutiveFailures == best {
			out = append(out, proxy)
		}
	}
	return out
}

func (p *Pool) filterHealthy() []string {
	out := make([]string, 0, len(p.proxies))
	for _, proxy := range p.proxies {
		if !p.statuses[proxy].IsUnhealthy {
			out = append(out, proxy)
		}
	}
	return out
}

func (p *Pool) filterRetryable() []string {
	out := make([]string, 0, len(p.proxies))
	for _, proxy := range p.proxies {
		if p.statuses[proxy].shouldRetry(p.cooldown) {
			out = append(out, proxy)
		}
	}
	return out
}

// MarkSuccess resets a proxy's failure count and clears unhealthy status.
func (p *Pool) MarkSuccess(proxyURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	status, ok := p.statuses[proxyURL]
	if !ok {
		return
	}
	wasUnhealthy := status.IsUnhealthy
	status.markSuccess()
	if wasUnhealthy {
		p.log.Info().Str("proxy", proxyURL).Msg("proxy recovered")
	}
}

// MarkFailure records a failed use of proxyURL, marking it unhealthy once
// consecutive failures reach the pool's threshold.
func (p *Pool) MarkFailure(proxyURL, errMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	status, ok := p.statuses[proxyURL]
	if !ok {
		return
	}
	if status.markFailure(errMsg, p.failureThreshold) {
		p.log.Warn().Str("proxy", proxyURL).Int("failures", status.ConsecutiveFailures).Msg("proxy marked unhealthy")
	}
}

// Status returns a copy of proxyURL's current status, and whether it is
// tracked by this pool.
func (p *Pool) Status(proxyURL string) (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.statuses[proxyURL]
	if !ok {
		return Status{}, false
	}
	return *s, true
}

// HealthyCount returns how many proxies are currently not unhealthy.
func (p *Pool) HealthyCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.statuses {
		if !s.IsUnhealthy {
			n++
		}
	}
	return n
}

// Reset clears a single proxy's failure bookkeeping.
func (p *Pool) Reset(proxyURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.statuses[proxyURL]; ok {
		*s = Status{Proxy: proxyURL}
	}
}
