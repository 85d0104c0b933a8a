package discrete

import (
	"math/cmplx"
	"sort"
)

// unfolded reconstructs the physical (possibly negative-order) coherence
// F(m) from storage that only ever keeps nonnegative K: F(m) is F+(m)
// directly when m >= 0, and conj(F-*(-m)) when m < 0, since F-*(j) is
// defined as conj(F(-j)) for j >= 0.
func unfolded(old []State, m int64) complex128 {
	if m >= 0 {
		if idx, ok := binarySearch(old, m); ok {
			return old[idx].FPlus
		}
		return 0
	}
	if idx, ok := binarySearch(old, -m); ok {
		return cmplx.Conj(old[idx].FMinus)
	}
	return 0
}

// shift applies the gradient/shift merge (spec.md §4.4) to a sorted
// state vector that only stores nonnegative orders:
//
//	F+(k)  = unfolded(k - delta)
//	F-*(k) = conj(unfolded(-k - delta))
//	Z(k)   = old Z(k), unchanged: Z does not precess under a gradient.
//
// Computing F+ and F-* through the shared unfolded accessor (rather than
// looking each up independently against the nonnegative-only old vector)
// is what keeps a state's round trip intact when k - delta or -k - delta
// crosses zero: a coherence that briefly migrates to a negative order and
// back is reconstructed from the conjugate side instead of silently
// reading as missing. The F+(0) = conj(F-*(0)) invariant then holds by
// construction; it no longer needs a separate overwrite.
func shift(old []State, delta int64) []State {
	candidates := make(map[int64]struct{}, 2*len(old)+1)
	candidates[0] = struct{}{}
	for _, s := range old {
		candidates[s.K] = struct{}{}
		candidates[abs64(s.K+delta)] = struct{}{}
		candidates[abs64(s.K-delta)] = struct{}{}
	}

	keys := make([]int64, 0, len(candidates))
	for k := range candidates {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	result := make([]State, 0, len(keys))
	for _, k := range keys {
		s := State{
			K:      k,
			FPlus:  unfolded(old, k-delta),
			FMinus: cmplx.Conj(unfolded(old, -k-delta)),
		}
		if idx, ok := binarySearch(old, k); ok {
			s.Z = old[idx].Z
		}
		if k == 0 || s.FPlus != 0 || s.FMinus != 0 || s.Z != 0 {
			result = append(result, s)
		}
	}
	return result
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// binarySearch finds k in a slice sorted ascending by K.
func binarySearch(states []State, k int64) (int, bool) {
	lo, hi := 0, len(states)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case states[mid].K == k:
			return mid, true
		case states[mid].K < k:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0, false
}
