package tokens

import (
	"regexp"
	"testing"
)

func TestGenerateAlphanumeric(t *testing.T) {
	re := regexp.MustCompile(`^[A-Za-z0-9]{32}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		s, err := GenerateAlphanumeric(32)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !re.MatchString(s) {
			t.Fatalf("unexpected code %q", s)
		}
		if seen[s] {
			t.Fatalf("duplicate code %q", s)
		}
		seen[s] = true
	}
}

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(24)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateOpaqueToken(24)
	if a == b || len(a) != 32 {
		t.Fatalf("tokens a=%q b=%q", a, b)
	}
}
