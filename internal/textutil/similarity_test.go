package textutil_test

import (
	"math"
	"reflect"
	"testing"

	"coverfill/internal/textutil"
)

func TestTokenizeKeepsDigitsAndAccents(t *testing.T) {
	got := textutil.Tokenize("Pokémon: Let's Go, Pikachu! 2")
	want := []string{"pokémon", "let", "s", "go", "pikachu", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %q, want %q", got, want)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Portal 2", "portal 2", 1},
		{"disjoint", "Halo", "Portal", 0},
		{"empty", "", "Portal", 0},
		{"partial", "Portal", "Portal 2", 1 / math.Sqrt(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textutil.TitleSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("TitleSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityIsSymmetric(t *testing.T) {
	a := textutil.NewFingerprint("The Legend of Zelda")
	b := textutil.NewFingerprint("Zelda Legend")
	if textutil.CosineSimilarity(a, b) != textutil.CosineSimilarity(b, a) {
		t.Fatal("expected symmetric similarity")
	}
	if textutil.NewFingerprint("!!!") != nil {
		t.Fatal("expected nil fingerprint for text without tokens")
	}
	if a.TokenCount() != 4 {
		t.Fatalf("expected 4 tokens, got %d", a.TokenCount())
	}
}

func TestRankIndexesIsStable(t *testing.T) {
	titles := []string{"Halo Wars", "Portal Reloaded", "Portal", "Portal Stories", "Doom"}
	got := textutil.RankIndexes("Portal", titles)
	want := []int{2, 1, 3, 0, 4}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RankIndexes = %v, want %v", got, want)
	}
}
