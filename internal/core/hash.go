package core

// NameHash computes the 32-bit unsigned polynomial hash (multiplier 31,
// byte by byte) used to derive temporary receipt ids from filenames.
// Deliberately collision-prone: two concurrent uploads of files with the
// same name share a placeholder. Do not strengthen; placeholder resolution
// relies on the exact same value at replace/remove time.
func NameHash(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
