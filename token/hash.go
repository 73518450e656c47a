// Package token computes MethodToken, the stable 32-bit identifier a
// transformer burns into generated code and a FrameRecord carries across
// processes. It must never be derived from a language-intrinsic hash
// function (map iteration seeds, fnv in the stdlib's randomized variants,
// etc.) — only the fixed FNV-1a variant specified below, so that the same
// (type, method, params) triple hashes identically on every platform and
// every run. See spec §4.A.
package token

const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619
)

// FNV1a hashes the UTF-8 bytes of s with the 32-bit FNV-1a algorithm, wrapping
// on 32-bit arithmetic throughout.
func FNV1a(s string) uint32 {
	h := fnvOffsetBasis
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

// Combine folds a sequence of hashes into one, order-sensitive, 32-bit
// wrapping accumulator.
func Combine(hs ...uint32) uint32 {
	acc := uint32(17)
	for _, h := range hs {
		acc = ((acc << 5) + acc) ^ h
	}
	return acc
}

// MethodToken computes the stable token for (type, method, params). The
// result is a plain int32 — it is stored in FrameRecord.method_token and
// looked up in both the entry-point registry and the validator's descriptor
// set.
func MethodToken(typeName, methodName string, paramTypeNames ...string) int32 {
	hs := make([]uint32, 0, 2+len(paramTypeNames))
	hs = append(hs, FNV1a(typeName), FNV1a(methodName))
	for _, p := range paramTypeNames {
		hs = append(hs, FNV1a(p))
	}
	return int32(Combine(hs...))
}
