package ring

import (
	"errors"
	"math"
	"sync/atomic"
)

// ErrInvalidCapacity is returned when a buffer is created with a
// non-positive capacity
var ErrInvalidCapacity = errors.New("ring: capacity must be positive")

// Buffer is a fixed-capacity circular buffer of float64 samples shared by a
// single producer and a single consumer. Append never blocks and never fails;
// once full, the oldest sample is overwritten. Reads copy the most recent
// samples out. Cells and bookkeeping are atomics, so neither side takes a
// lock on the hot path.
//
// The cell array carries one spare slot beyond the capacity. A cell store
// becomes visible before its total store, so without the slack an append
// landing mid-copy could overwrite the oldest cell of a full-capacity
// window while total still reads as if it had not.
type Buffer struct {
	cells []uint64 // IEEE 754 bits of each sample, capacity+1 slots
	size  uint64
	slots uint64 // len(cells), size+1
	total uint64 // lifetime samples written; advanced only after the cell store
}

// New creates a buffer that retains the last capacity samples
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Buffer{
		cells: make([]uint64, capacity+1),
		size:  uint64(capacity),
		slots: uint64(capacity) + 1,
	}, nil
}

// Append stores one sample, overwriting the oldest when the buffer is full.
// Must be called from a single producer goroutine.
func (b *Buffer) Append(v float64) {
	t := atomic.LoadUint64(&b.total)
	atomic.StoreUint64(&b.cells[t%b.slots], math.Float64bits(v))
	// total is advanced only after the cell is written, so a reader that
	// observes total >= n also observes those n cells
	atomic.StoreUint64(&b.total, t+1)
}

// Len returns the number of valid samples, saturating at capacity
func (b *Buffer) Len() int {
	t := atomic.LoadUint64(&b.total)
	if t > b.size {
		return int(b.size)
	}
	return int(t)
}

// Cap returns the buffer capacity
func (b *Buffer) Cap() int {
	return int(b.size)
}

// Total returns the lifetime number of appended samples
func (b *Buffer) Total() uint64 {
	return atomic.LoadUint64(&b.total)
}

// CopyLatest fills dst with the most recent len(dst) samples in
// chronological order (oldest first). It returns false when fewer than
// len(dst) samples have been written, or when dst is larger than the
// buffer; dst contents are undefined in that case.
func (b *Buffer) CopyLatest(dst []float64) bool {
	n := uint64(len(dst))
	if n == 0 {
		return true
	}
	if n > b.size {
		return false
	}
	for {
		t := atomic.LoadUint64(&b.total)
		if t < n {
			return false
		}
		start := t - n
		for i := uint64(0); i < n; i++ {
			bits := atomic.LoadUint64(&b.cells[(start+i)%b.slots])
			dst[i] = math.Float64frombits(bits)
		}
		// When total re-reads as T, the cell of sample T may already be
		// written even though its total store has not landed. Samples
		// start..start+n-1 stay untouched as long as every possibly
		// dirty cell, sample T included, is below start+slots.
		if atomic.LoadUint64(&b.total)-start < b.slots {
			return true
		}
	}
}

// Latest returns a copy of the most recent n samples in chronological order
func (b *Buffer) Latest(n int) ([]float64, bool) {
	if n < 0 {
		return nil, false
	}
	dst := make([]float64, n)
	if !b.CopyLatest(dst) {
		return nil, false
	}
	return dst, true
}
