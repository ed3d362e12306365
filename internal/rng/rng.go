// Package rng provides seeded random draws and the selection primitives built on them.
// Every primitive consumes draws from a single Source in call order, so a sequence of
// calls against a Source built from the same seed string is reproducible.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"math/rand/v2"
)

// ErrEmptyPool signals a pick from an empty list that no earlier check ruled out.
var ErrEmptyPool = errors.New("cannot pick from empty list")

// Source yields floats in [0,1).
type Source interface {
	Float64() float64
}

// New returns a PCG generator keyed by the SHA-256 digest of seed.
func New(seed string) Source {
	sum := sha256.Sum256([]byte(seed))
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(sum[0:8]),
		binary.LittleEndian.Uint64(sum[8:16]),
	))
}

func index(src Source, n int) int {
	i := int(math.Floor(src.Float64() * float64(n)))
	if i >= n {
		i = n - 1
	}
	return i
}

// PickUniform returns one element of items chosen with a single draw.
func PickUniform[T any](src Source, items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmptyPool
	}
	return items[index(src, len(items))], nil
}

// Chance reports whether one draw falls below p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// RandInt returns an integer in [min, max], both inclusive, using one draw.
func RandInt(src Source, min, max int) int {
	return int(math.Floor(src.Float64()*float64(max-min+1))) + min
}

// SampleWithoutReplacement draws min(n, len(items)) distinct elements, removing each
// pick from a working copy before the next draw. items is not modified.
func SampleWithoutReplacement[T any](src Source, items []T, n int) []T {
	pool := append([]T(nil), items...)
	target := min(n, len(pool))
	if target <= 0 {
		return []T{}
	}
	res := make([]T, 0, target)
	for i := 0; i < target; i++ {
		idx := index(src, len(pool))
		res = append(res, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return res
}
