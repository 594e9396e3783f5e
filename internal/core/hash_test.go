package core

import "testing"

func TestNameHashDeterminism(t *testing.T) {
	names := []string{"a.jpg", "b.jpg", "receipt-2024-01-05.pdf", "", "àèì.png"}
	for _, name := range names {
		first := NameHash(name)
		for i := 0; i < 100; i++ {
			if got := NameHash(name); got != first {
				t.Fatalf("NameHash(%q) unstable: %d then %d", name, first, got)
			}
		}
	}
}

func TestNameHashDistinguishesNames(t *testing.T) {
	if NameHash("a.jpg") == NameHash("b.jpg") {
		t.Error("distinct filenames should normally hash differently")
	}
	if NameHash("") != 0 {
		t.Errorf("empty string should hash to 0, got %d", NameHash(""))
	}
}
