package sync

import (
	"math/rand"
	"sync"
	"time"
)

// BackoffConfig shapes the delay between reachability probes while offline.
type BackoffConfig struct {
	// Initial is the delay after the first failed probe. Zero re-probes
	// before every offline write.
	Initial time.Duration
	// Max caps the delay.
	Max time.Duration
	// Jitter randomises each delay by up to this fraction, in [0,1].
	Jitter float64
}

// DefaultBackoffConfig returns the default probe backoff.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial: 2 * time.Second,
		Max:     2 * time.Minute,
		Jitter:  0.2,
	}
}

// Backoff gates probes with exponential backoff, cap and jitter.
type Backoff struct {
	cfg BackoffConfig

	mu       sync.Mutex
	attempts int
	next     time.Time
	rnd      *rand.Rand
}

// NewBackoff creates a Backoff that allows the first probe immediately.
func NewBackoff(cfg BackoffConfig) *Backoff {
	if cfg.Max < cfg.Initial {
		cfg.Max = cfg.Initial
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if cfg.Jitter > 1 {
		cfg.Jitter = 1
	}
	return &Backoff{cfg: cfg, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Allow reports whether a probe may be attempted at now.
func (b *Backoff) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg.Initial <= 0 || !now.Before(b.next)
}

// Failure records a failed probe at now and returns the delay until the
// next one is allowed.
func (b *Backoff) Failure(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.Initial <= 0 {
		return 0
	}
	d := b.cfg.Initial
	for i := 0; i < b.attempts && d < b.cfg.Max; i++ {
		d *= 2
	}
	if d > b.cfg.Max {
		d = b.cfg.Max
	}
	if b.cfg.Jitter > 0 {
		// scale into [1-j, 1+j]
		f := 1 + b.cfg.Jitter*(2*b.rnd.Float64()-1)
		d = time.Duration(float64(d) * f)
	}
	b.attempts++
	b.next = now.Add(d)
	return d
}

// Reset forgets past failures.
func (b *Backoff) Reset() {
	b.mu.Lock()
	b.attempts = 0
	b.next = time.Time{}
	b.mu.Unlock()
}

// Attempts returns the number of consecutive failures recorded.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}
