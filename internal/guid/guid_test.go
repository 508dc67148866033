package guid

import "testing"

func TestRandomDeterministic(t *testing.T) {
	t.Parallel()

	tests := []string{"com.ex.MyApp", "", "com.ex.Hello"}
	for _, seed := range tests {
		a := Random(seed)
		b := Random(seed)
		if a != b {
			t.Errorf("Random(%q) not deterministic: %q != %q", seed, a, b)
		}
		if len(a) != 36 {
			t.Errorf("Random(%q) = %q, want 36 chars", seed, a)
		}
	}

	if Random("com.ex.MyApp") == Random("com.ex.OtherApp") {
		t.Errorf("distinct seeds produced the same GUID")
	}
}
