package stratz

import (
	"sync"
	"time"

	"dota-tracker/internal/constants"
)

// endpoint is one forward proxy. It is "bad" while now-badSince is inside
// the cooldown.
type endpoint struct {
	url      string
	badSince time.Time
}

// ProxyPool hands out forward-proxy endpoints round-robin, skipping
// endpoints in cooldown. When every endpoint is bad the least recently
// marked one is evicted from cooldown and reused: availability beats
// strict cooldown honoring.
type ProxyPool struct {
	mu        sync.Mutex
	endpoints []*endpoint
	next      int
	cooldown  time.Duration
	now       func() time.Time
}

func NewProxyPool(urls []string) *ProxyPool {
	p := &ProxyPool{cooldown: constants.ProxyCooldown, now: time.Now}
	for _, u := range urls {
		p.endpoints = append(p.endpoints, &endpoint{url: u})
	}
	return p
}

// Size is the number of configured endpoints.
func (p *ProxyPool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.endpoints)
}

// Next returns the endpoint to use for the next request, or "" when no
// pool is configured (direct connection).
func (p *ProxyPool) Next() string {
	if p.Size() == 0 {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.endpoints)
	for i := range n {
		idx := (p.next + i) % n
		e := p.endpoints[idx]
		if e.badSince.IsZero() || p.now().Sub(e.badSince) >= p.cooldown {
			e.badSince = time.Time{}
			p.next = (idx + 1) % n
			return e.url
		}
	}

	// Forced reuse: everything is cooling down, take the oldest offender.
	oldest := p.endpoints[0]
	oldestIdx := 0
	for i, e := range p.endpoints[1:] {
		if e.badSince.Before(oldest.badSince) {
			oldest = e
			oldestIdx = i + 1
		}
	}
	oldest.badSince = time.Time{}
	p.next = (oldestIdx + 1) % n
	return oldest.url
}

// MarkBad puts an endpoint into cooldown. The empty string (direct
// connection) is ignored.
func (p *ProxyPool) MarkBad(url string) {
	if p.Size() == 0 || url == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.endpoints {
		if e.url == url {
			e.badSince = p.now()
			return
		}
	}
}
