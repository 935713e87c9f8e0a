package tensor

import "fmt"

// WildcardDim marks a dimension of unconstrained size in a declared shape.
const WildcardDim = -1

// Shape is a declared argument shape. Dimensions are positive sizes, with
// at most one WildcardDim meaning "any size along this axis".
type Shape []int

// Validate rejects shapes with non-positive fixed dimensions or more than
// one wildcard. It runs at declaration time, before any tracing.
func (s Shape) Validate() error {
	wildcards := 0
	for _, d := range s {
		switch {
		case d == WildcardDim:
			wildcards++
		case d <= 0:
			return fmt.Errorf("tensor: invalid dimension %d in declared shape %v", d, []int(s))
		}
	}
	if wildcards > 1 {
		return fmt.Errorf("tensor: declared shape %v has %d wildcard dimensions, at most one allowed", []int(s), wildcards)
	}
	return nil
}

// Materialize produces a concrete shape usable for minting an example
// tensor: wildcard dimensions collapse to size 1.
func (s Shape) Materialize() []int {
	out := make([]int, len(s))
	for i, d := range s {
		if d == WildcardDim {
			out[i] = 1
		} else {
			out[i] = d
		}
	}
	return out
}

// Matches reports whether concrete dims satisfy the declared shape.
func (s Shape) Matches(dims []int) bool {
	if len(s) != len(dims) {
		return false
	}
	for i, d := range s {
		if d != WildcardDim && d != dims[i] {
			return false
		}
	}
	return true
}
