package discover

import "time"

// Bounds tracks the earliest and latest capture timestamps observed during
// discovery. Both are unset until the first observation.
type Bounds struct {
	earliest time.Time
	latest   time.Time
	set      bool
}

// Observe tightens the bounds with a newly resolved timestamp.
func (b *Bounds) Observe(ts time.Time) {
	if !b.set {
		b.earliest, b.latest = ts, ts
		b.set = true
		return
	}
	if ts.Before(b.earliest) {
		b.earliest = ts
	}
	if ts.After(b.latest) {
		b.latest = ts
	}
}

// Set reports whether any timestamp has been observed.
func (b Bounds) Set() bool { return b.set }

// Earliest returns the lower bound; zero until Set.
func (b Bounds) Earliest() time.Time { return b.earliest }

// Latest returns the upper bound; zero until Set.
func (b Bounds) Latest() time.Time { return b.latest }

// Span is the real elapsed capture interval.
func (b Bounds) Span() time.Duration {
	if !b.set {
		return 0
	}
	return b.latest.Sub(b.earliest)
}
