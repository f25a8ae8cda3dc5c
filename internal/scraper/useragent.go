package scraper

import (
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultUserAgents is the desktop browser rotation sent with every fetch.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
}

// UserAgentPicker chooses the User-Agent for one request.
type UserAgentPicker interface {
	Pick() string
}

// RandomPicker selects uniformly from a fixed set. Safe for concurrent use.
type RandomPicker struct {
	mu     sync.Mutex
	rng    *rand.Rand
	agents []string
}

// NewRandomPicker seeds the rotation; seed 0 seeds from the clock.
// With no agents the default rotation is used.
func NewRandomPicker(seed uint64, agents ...string) *RandomPicker {
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomPicker{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		agents: append([]string(nil), agents...),
	}
}

func (p *RandomPicker) Pick() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agents[p.rng.IntN(len(p.agents))]
}

// FixedPicker always returns the same User-Agent.
type FixedPicker string

func (p FixedPicker) Pick() string {
	return string(p)
}
