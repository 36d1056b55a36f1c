// Package sync provides keyed locking with a bounded memory footprint.
package sync

import (
	base "sync"
)

const pointsPerStripe = 200

// StripedLock consistently maps an unbounded key space onto a fixed set of
// mutexes. Distinct keys may share a stripe, so holders must not acquire two
// keys at once.
type StripedLock struct {
	locks []base.Mutex
	ring  *ring
}

// NewStripedLock returns a StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	if stripes == 0 {
		stripes = 1
	}
	return &StripedLock{
		locks: make([]base.Mutex, stripes),
		ring:  newRing(stripes, pointsPerStripe),
	}
}

// Get returns the mutex guarding key.
func (l *StripedLock) Get(key string) *base.Mutex {
	return &l.locks[l.ring.shard([]byte(key))]
}
