package fingerprint

import "testing"

func TestKeyDeterministic(t *testing.T) {
	ids := []string{"", "abc", "very looooooong string", "def", "例"}
	for _, id := range ids {
		first := KeyString(id)
		for i := 0; i < 100; i++ {
			if got := KeyString(id); got != first {
				t.Fatalf("KeyString(%q) not stable: got %d, want %d", id, got, first)
			}
		}
		if got := Key([]byte(id)); got != first {
			t.Errorf("Key and KeyString disagree for %q: %d vs %d", id, got, first)
		}
	}
}

func TestKeyDistinguishesIDs(t *testing.T) {
	seen := make(map[uint64]string)
	for _, id := range []string{"ex-0", "ex-1", "ex-2", "0-ex", "1-ex"} {
		k := KeyString(id)
		if prev, ok := seen[k]; ok {
			t.Fatalf("collision between %q and %q", prev, id)
		}
		seen[k] = id
	}
}
