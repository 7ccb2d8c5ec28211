// Package executor implements the Executor + Tracer pipeline (spec.md
// §4.3, component C8): running a PTB through the VM with tracing
// enabled, producing a power-of-two coverage map and the
// GlobalOutcome/TraceOutcome/ExecutionExtraOutcome lifecycle. Grounded
// on the teacher's internal/vybium-starks-vm/vm/trace_recorder.go +
// vm_state.go execution loop (one struct owning both the VM drive loop
// and its derived recordings).
package executor

import (
	"hash/fnv"

	"github.com/movy/movefuzz/pkg/move"
)

// CoverageMap is a fixed-length, power-of-two-sized byte map recording
// edge hits with saturating adds (spec.md §4.3).
type CoverageMap struct {
	bytes []byte
	mask  uint64
}

// NewCoverageMap allocates a coverage map sized to the next power of two
// ≥ size (a zero or non-power-of-two size is rounded up).
func NewCoverageMap(size int) *CoverageMap {
	n := nextPow2(size)
	return &CoverageMap{bytes: make([]byte, n), mask: uint64(n - 1)}
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Reset zeros the map, per spec.md §4.3 "On failure, the map is reset to
// zeros."
func (c *CoverageMap) Reset() {
	for i := range c.bytes {
		c.bytes[i] = 0
	}
}

// Calibrate writes the calibration sentinel byte (spec.md §4.3: "A
// mutable first byte of the coverage map is written to 1 at the start of
// every execution to guarantee at least one delta").
func (c *CoverageMap) Calibrate() {
	if len(c.bytes) > 0 {
		c.bytes[0] = 1
	}
}

func hashPackage(pkg move.Address) uint64 {
	h := fnv.New64a()
	h.Write(pkg[:])
	return h.Sum64()
}

// Hit implements spec.md §4.3's edge-hit formula:
//
//	map[(prev ^ pc') mod len] = saturating_add(1)
//	pc' = (pc>>4) ^ (pc<<8) ^ hash(current_package)
//
// Implements internal/tracer.CoverageSink.
func (c *CoverageMap) Hit(prevPC uint64, pc uint64, pkg move.Address) {
	pcPrime := (pc >> 4) ^ (pc << 8) ^ hashPackage(pkg)
	idx := (prevPC ^ pcPrime) & c.mask
	if c.bytes[idx] != 0xFF {
		c.bytes[idx]++
	}
}

// Bytes exposes the underlying map for corpus feedback comparison.
func (c *CoverageMap) Bytes() []byte { return c.bytes }

// Len reports the map's byte length.
func (c *CoverageMap) Len() int { return len(c.bytes) }
