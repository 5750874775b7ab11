package iq

import (
	"sync"
	"time"
)

// Sample is one complex baseband value scaled relative to the hardware full
// scale range
type Sample = complex64

// Burst represents one fixed-length batch of samples captured by a single read.
// Exactly one stage owns a Burst at a time; ownership moves with the value
// through the hand-off queue.
type Burst struct {
	Seq       uint64        // Arrival order, starting at 1
	Timestamp time.Time     // Capture time, carries a monotonic reading
	Elapsed   time.Duration // Time since the previous successful read
	Samples   []Sample      // Conditioned in place by the processing side
}

// Len returns the number of samples in the burst
func (b *Burst) Len() int {
	return len(b.Samples)
}

// Pool recycles fixed-length bursts between the acquisition and processing
// loops so a steady-state run does not allocate per burst
type Pool struct {
	length int
	pool   sync.Pool
}

// NewPool creates a pool handing out bursts of the given length
func NewPool(length int) *Pool {
	p := Pool{length: length}
	p.pool.New = func() any {
		return &Burst{Samples: make([]Sample, length)}
	}
	return &p
}

// Get returns a burst with zeroed metadata; sample contents are unspecified
func (p *Pool) Get() *Burst {
	b := p.pool.Get().(*Burst)
	b.Seq = 0
	b.Timestamp = time.Time{}
	b.Elapsed = 0
	b.Samples = b.Samples[:p.length]
	return b
}

// Put returns a burst to the pool. Bursts of a foreign length are dropped.
func (p *Pool) Put(b *Burst) {
	if b == nil || cap(b.Samples) < p.length {
		return
	}
	p.pool.Put(b)
}

// Length returns the burst length served by the pool
func (p *Pool) Length() int {
	return p.length
}
