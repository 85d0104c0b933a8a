package discrete3d

import (
	"math/cmplx"
	"sort"
)

// isCanonical reports whether k is already in the half-space this model
// stores: k is canonical if it is the zero key, or its first nonzero
// component is positive.
func isCanonical(k Key) bool {
	for i := 0; i < 3; i++ {
		if k[i] != 0 {
			return k[i] > 0
		}
	}
	return true
}

func negateKey(k Key) Key { return Key{-k[0], -k[1], -k[2]} }

// canonicalize folds an arbitrary-sign key into the stored half-space.
func canonicalize(k Key) Key {
	if isCanonical(k) {
		return k
	}
	return negateKey(k)
}

// unfolded reconstructs the physical (possibly non-canonical) coherence
// F(m) from storage that only ever keeps canonical keys: F(m) is F+(m)
// directly when m is canonical, and conj(F-*(-m)) otherwise, since
// F-*(j) is defined as conj(F(-j)) for canonical j.
func unfolded(old []State, m Key) complex128 {
	if isCanonical(m) {
		if idx, ok := binarySearch(old, m); ok {
			return old[idx].FPlus
		}
		return 0
	}
	if idx, ok := binarySearch(old, negateKey(m)); ok {
		return cmplx.Conj(old[idx].FMinus)
	}
	return 0
}

// shift applies the same fold-aware merge as core/epg/discrete.shift,
// generalized to vector keys:
//
//	F+(k)  = unfolded(k - delta)
//	F-*(k) = conj(unfolded(-k - delta))
//	Z(k)   = old Z(k), unchanged: Z does not precess under a gradient.
//
// See core/epg/discrete.shift for why routing both components through
// the shared unfolded accessor (rather than looking each up
// independently) is what keeps a state's round trip intact when a key
// crosses out of the canonical half-space and back.
func shift(old []State, delta Key) []State {
	zero := Key{0, 0, 0}
	candidates := map[Key]struct{}{zero: {}}
	for _, s := range old {
		candidates[s.K] = struct{}{}
		candidates[canonicalize(s.K.add(delta))] = struct{}{}
		candidates[canonicalize(s.K.sub(delta))] = struct{}{}
	}

	keys := make([]Key, 0, len(candidates))
	for k := range candidates {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	result := make([]State, 0, len(keys))
	for _, k := range keys {
		s := State{
			K:      k,
			FPlus:  unfolded(old, k.sub(delta)),
			FMinus: cmplx.Conj(unfolded(old, negateKey(k).sub(delta))),
		}
		if idx, ok := binarySearch(old, k); ok {
			s.Z = old[idx].Z
		}
		if k == zero || s.FPlus != 0 || s.FMinus != 0 || s.Z != 0 {
			result = append(result, s)
		}
	}
	return result
}
