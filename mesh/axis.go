package mesh

import (
	"fmt"
	"strings"
)

const DefaultAxisOrder = "yzx"

const axisLabels = "xyz"

// AxisOrder maps each written coordinate slot to a raw axis
// (0 = X, 1 = Y, 2 = Z).
type AxisOrder [3]int

// ParseAxisOrder accepts any case-insensitive permutation of "xyz".
// An empty string selects DefaultAxisOrder.
func ParseAxisOrder(s string) (AxisOrder, error) {
	if s == "" {
		s = DefaultAxisOrder
	}
	var order AxisOrder
	lower := strings.ToLower(s)
	if len(lower) != 3 {
		return order, fmt.Errorf("%w: %q is not a permutation of xyz", ErrInvalidAxisOrder, s)
	}
	var seen [3]bool
	for i := 0; i < 3; i++ {
		axis := strings.IndexByte(axisLabels, lower[i])
		if axis < 0 || seen[axis] {
			return order, fmt.Errorf("%w: %q is not a permutation of xyz", ErrInvalidAxisOrder, s)
		}
		seen[axis] = true
		order[i] = axis
	}
	return order, nil
}

func (o AxisOrder) String() string {
	var b [3]byte
	for i, axis := range o {
		b[i] = axisLabels[axis]
	}
	return string(b[:])
}

// Odd reports whether the permutation swaps handedness.
func (o AxisOrder) Odd() bool {
	inversions := 0
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if o[i] > o[j] {
				inversions++
			}
		}
	}
	return inversions%2 == 1
}

// Slot returns the written slot holding the given raw axis.
func (o AxisOrder) Slot(axis int) int {
	for i, a := range o {
		if a == axis {
			return i
		}
	}
	return -1
}

func (o AxisOrder) apply(raw [3]float64) [3]float64 {
	return [3]float64{raw[o[0]], raw[o[1]], raw[o[2]]}
}

func (o AxisOrder) invert(written [3]float64) [3]float64 {
	var raw [3]float64
	for i, axis := range o {
		raw[axis] = written[i]
	}
	return raw
}
