package multipool

import (
	"math/cmplx"
	"sort"
)

// unfoldedPool reconstructs the physical (possibly negative-order)
// coherence F(m) for one pool's component of the state vector, from
// storage that only ever keeps nonnegative K: F(m) is F+(m) directly
// when m >= 0, and conj(F-*(-m)) when m < 0, since F-*(j) is defined as
// conj(F(-j)) for j >= 0.
func unfoldedPool(old []State, m int64, pick func(State) complex128FPair) complex128 {
	if m >= 0 {
		if idx, ok := lookup(old, m); ok {
			return pick(old[idx]).plus
		}
		return 0
	}
	if idx, ok := lookup(old, -m); ok {
		return cmplx.Conj(pick(old[idx]).minus)
	}
	return 0
}

// complex128FPair bundles a pool's F+/F-* pair so unfoldedPool can stay
// generic over pool A and pool B without duplicating its body.
type complex128FPair struct {
	plus, minus complex128
}

func poolA(s State) complex128FPair { return complex128FPair{s.A.FPlus, s.A.FMinus} }
func poolB(s State) complex128FPair { return complex128FPair{s.B.FPlus, s.B.FMinus} }

// shift applies the same fold-aware merge as core/epg/discrete.shift to
// both pools at once, since a gradient moves every pool's coherence
// order identically:
//
//	F+(k)  = unfolded(k - delta)
//	F-*(k) = conj(unfolded(-k - delta))
//	Z(k)   = old Z(k), unchanged: Z does not precess under a gradient.
//
// See core/epg/discrete.shift for why routing both components through
// the shared unfolded accessor (rather than looking each up
// independently) is what keeps a state's round trip intact when a key
// crosses zero and back.
func shift(old []State, delta int64) []State {
	candidates := map[int64]struct{}{0: {}}
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
		s := State{K: k}
		s.A.FPlus = unfoldedPool(old, k-delta, poolA)
		s.A.FMinus = cmplx.Conj(unfoldedPool(old, -k-delta, poolA))
		s.B.FPlus = unfoldedPool(old, k-delta, poolB)
		s.B.FMinus = cmplx.Conj(unfoldedPool(old, -k-delta, poolB))
		if idx, ok := lookup(old, k); ok {
			s.A.Z = old[idx].A.Z
			s.B.Z = old[idx].B.Z
		}
		if k == 0 || anyNonZero(s) {
			result = append(result, s)
		}
	}
	return result
}

func anyNonZero(s State) bool {
	return s.A.FPlus != 0 || s.A.FMinus != 0 || s.A.Z != 0 ||
		s.B.FPlus != 0 || s.B.FMinus != 0 || s.B.Z != 0
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func lookup(states []State, k int64) (int, bool) {
	i := sort.Search(len(states), func(i int) bool { return states[i].K >= k })
	if i < len(states) && states[i].K == k {
		return i, true
	}
	return 0, false
}
