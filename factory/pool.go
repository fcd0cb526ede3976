// Package factory implements the prototype-chain slab allocator from
// spec.md §4.7: one contiguous allocation per `EventTarget → Node →
// Element → HTMLElement → Concrete` chain, freed from the leaf as a
// single block.
//
// Pool generalizes the teacher's stackPool/finalizerPool/objectPool
// capacity-and-resize-threshold idiom (objectpools.go) from a single flat
// stack of `[]*Element` to a set of stacks bucketed by slab size class —
// different prototype chains have different total footprints, so one
// capacity policy per size class is needed instead of one overall.
package factory

import "github.com/kallowynd/pageruntime/metrics"

const maxPooledSlabSize = 4096

// Pool is a size-classed free list of byte slabs. It is not safe for
// concurrent use without external synchronization, matching the module's
// single-threaded-core concurrency model (spec.md §5).
type Pool struct {
	buckets         map[int][][]byte
	capacities      map[int]int
	baseCapacity    int
	resizeThreshold int
	maxCapacity     int
}

// NewPool creates a Pool. baseCapacity/resizeThreshold/maxCapacity mirror
// the teacher's stackPool construction parameters, applied independently
// per size class.
func NewPool(baseCapacity, resizeThreshold, maxCapacity int) *Pool {
	return &Pool{
		buckets:         make(map[int][][]byte),
		capacities:      make(map[int]int),
		baseCapacity:    baseCapacity,
		resizeThreshold: resizeThreshold,
		maxCapacity:     maxCapacity,
	}
}

func sizeClass(n int) int {
	class := 8
	for class < n {
		class *= 2
	}
	return class
}

func (p *Pool) get(size int) []byte {
	metrics.FactoryLiveAllocations.Inc()
	if size > maxPooledSlabSize {
		return make([]byte, size)
	}
	class := sizeClass(size)
	bucket := p.buckets[class]
	if len(bucket) == 0 {
		return make([]byte, size, class)
	}
	last := len(bucket) - 1
	slab := bucket[last][:class]
	p.buckets[class] = bucket[:last]
	for i := range slab {
		slab[i] = 0
	}
	return slab[:size]
}

func (p *Pool) put(slab []byte) {
	metrics.FactoryLiveAllocations.Dec()
	class := cap(slab)
	if class > maxPooledSlabSize {
		return // let the garbage collector reclaim oversized, rare slabs
	}
	bucket := append(p.buckets[class], slab[:0:class])
	p.buckets[class] = p.adjustCapacity(class, bucket)
}

// adjustCapacity trims a size-class bucket once it drifts resizeThreshold
// entries away from its current capacity, mirroring stackPool.AdjustCapacity.
func (p *Pool) adjustCapacity(class int, bucket [][]byte) [][]byte {
	capacity, ok := p.capacities[class]
	if !ok {
		capacity = p.baseCapacity
	}
	if len(bucket) >= capacity+p.resizeThreshold {
		capacity += p.resizeThreshold
		if capacity > p.maxCapacity {
			capacity = p.maxCapacity
		}
	} else if len(bucket) <= capacity-p.resizeThreshold {
		capacity -= p.resizeThreshold
		if capacity < p.baseCapacity {
			capacity = p.baseCapacity
		}
	}
	p.capacities[class] = capacity
	if len(bucket) > capacity {
		excess := bucket[capacity:]
		for i := range excess {
			excess[i] = nil
		}
		bucket = bucket[:capacity]
	}
	return bucket
}
