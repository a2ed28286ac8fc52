package pools

import (
	"sync"
)

// Size classes of Float64Pool.
const (
	SmallRow  = 16
	MediumRow = 64
	LargeRow  = 256
	HugeRow   = 1024
)

// Float64Pool pools []float64 scratch rows, e.g. one influence matrix row.
type Float64Pool struct {
	classes [4]sync.Pool
}

var rowClasses = [4]int{SmallRow, MediumRow, LargeRow, HugeRow}

// NewFloat64Pool creates a new float64 slice pool.
func NewFloat64Pool() *Float64Pool {
	p := &Float64Pool{}
	for i, size := range rowClasses {
		p.classes[i].New = func() any {
			s := make([]float64, 0, size)
			return &s
		}
	}
	return p
}

// class returns the index of the smallest class holding n, or -1.
func class(n int) int {
	for i, size := range rowClasses {
		if n <= size {
			return i
		}
	}
	return -1
}

// Get returns an empty slice with at least the requested capacity.
func (p *Float64Pool) Get(size int) []float64 {
	c := class(size)
	if c < 0 {
		return make([]float64, 0, size)
	}
	sp, ok := p.classes[c].Get().(*[]float64)
	if !ok || cap(*sp) < size {
		return make([]float64, 0, size)
	}
	return (*sp)[:0]
}

// Put returns a slice to the pool. Slices larger than HugeRow are dropped.
func (p *Float64Pool) Put(s []float64) {
	// Classes are picked by exact capacity so Get never sees a short slice.
	c := -1
	for i, size := range rowClasses {
		if cap(s) == size {
			c = i
			break
		}
	}
	if c < 0 {
		return
	}
	s = s[:0]
	p.classes[c].Put(&s)
}

var defaultFloat64Pool = NewFloat64Pool()

// GetFloat64s returns a float64 slice from the default pool.
func GetFloat64s(size int) []float64 {
	return defaultFloat64Pool.Get(size)
}

// PutFloat64s returns a float64 slice to the default pool.
func PutFloat64s(s []float64) {
	defaultFloat64Pool.Put(s)
}
