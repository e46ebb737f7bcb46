package lmdbenv

// descriptorCap bounds the descriptor pool at 64 entries (spec.md §3
// Descriptor pool); overflow returns are dropped rather than growing the
// pool further.
const descriptorCap = 64

// Descriptor is a reusable {size, data} pair standing in for the FFI
// MDB_val structs spec.md §4.C4 pools. github.com/bmatsuo/lmdb-go copies
// key/value bytes across the cgo boundary itself, so there is no raw
// pointer to hold here; what this pool actually amortizes is the repeated
// []byte allocation for scratch key/value staging buffers on the write
// path (assoc-in/update-in/multi-assoc all stage an encoded key and an
// encoded value before a single Put call).
type Descriptor struct {
	Data []byte
}

// Len reports the descriptor's current content length.
func (d *Descriptor) Len() int { return len(d.Data) }

// Reset empties the descriptor while retaining its backing array.
func (d *Descriptor) Reset() { d.Data = d.Data[:0] }

// DescriptorPool is a bounded, per-environment pool of Descriptors.
// Descriptors borrowed from one DescriptorPool must never be passed to
// operations on a different environment (spec.md §5 Lifetime rules); the
// pool is always owned by exactly one Env for this reason, never shared.
type DescriptorPool struct {
	mu   chan struct{}
	pool []*Descriptor
}

// NewDescriptorPool creates an empty, bounded descriptor pool.
func NewDescriptorPool() *DescriptorPool {
	p := &DescriptorPool{mu: make(chan struct{}, 1)}
	p.mu <- struct{}{}

	return p
}

func (p *DescriptorPool) lock()   { <-p.mu }
func (p *DescriptorPool) unlock() { p.mu <- struct{}{} }

// Acquire returns a cleared Descriptor with capacity at least minSize,
// reusing a pooled one when available.
func (p *DescriptorPool) Acquire(minSize int) *Descriptor {
	p.lock()
	if n := len(p.pool); n > 0 {
		d := p.pool[n-1]
		p.pool = p.pool[:n-1]
		p.unlock()
		d.Reset()
		if cap(d.Data) < minSize {
			d.Data = make([]byte, 0, minSize)
		}

		return d
	}
	p.unlock()

	return &Descriptor{Data: make([]byte, 0, minSize)}
}

// Release returns d to the pool unless it is already at the bounded
// capacity of descriptorCap entries, in which case d is dropped.
func (p *DescriptorPool) Release(d *Descriptor) {
	if d == nil {
		return
	}

	p.lock()
	if len(p.pool) < descriptorCap {
		p.pool = append(p.pool, d)
	}
	p.unlock()
}

// Len reports the number of idle descriptors currently held.
func (p *DescriptorPool) Len() int {
	p.lock()
	n := len(p.pool)
	p.unlock()

	return n
}
