package normalize_test

import (
	"testing"

	"coverfill/internal/normalize"
)

func TestNameStripsNoise(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "Halo", want: "Halo"},
		{raw: "  Halo   Infinite  ", want: "Halo Infinite"},
		{raw: "DOOM® Eternal™", want: "DOOM Eternal"},
		{raw: "Forza Horizon 5 Xbox", want: "Forza Horizon 5"},
		{raw: "Hades PC Steam", want: "Hades"},
		{raw: "Celeste Switch", want: "Celeste"},
		{raw: "God of War PS4", want: "God of War"},
		{raw: "Skyrim Special Edition", want: "Skyrim"},
		{raw: "The Witcher 3 Game of the Year Edition", want: "The Witcher 3"},
		{raw: "Death Stranding Director's Cut PS5", want: "Death Stranding"},
		{raw: "Divinity: Original Sin Enhanced Edition", want: "Divinity: Original Sin"},
		{raw: "Batman Arkham City GOTY", want: "Batman Arkham City"},
		{raw: "Mass Effect Legendary Edition", want: "Mass Effect Legendary"},
		{raw: "Halo (PC)", want: "Halo"},
		{raw: "Tony Hawk's Pro Skater 1+2", want: "Tony Hawk's Pro Skater 12"},
		{raw: "Half-Life 2: Episode One", want: "Half-Life 2: Episode One"},
		{raw: "Pokémon Legends", want: "Pokémon Legends"},
		{raw: "Steamworld Dig", want: "Steamworld Dig"},
		{raw: "Switch", want: "Switch"},
		{raw: "Epic Mickey HD Remastered", want: "Epic Mickey"},
		{raw: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := normalize.Name(tt.raw); got != tt.want {
				t.Fatalf("Name(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNameIsIdempotent(t *testing.T) {
	inputs := []string{
		"Halo (PC)",
		"Halo PC Steam Xbox",
		"Game GOTY Deluxe Complete Edition PS4",
		"  PC  ",
		"Director’s Cut Director's Cut",
		"Name\twith\nnewlines Switch",
		"!!!",
		"Ōkami HD",
		"Final Fantasy VII Remake Intergrade PS5",
		"a.b:c-d'e_f",
	}
	for _, raw := range inputs {
		once := normalize.Name(raw)
		twice := normalize.Name(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q then %q", raw, once, twice)
		}
	}
}

func TestEqualIsCaseInsensitive(t *testing.T) {
	if !normalize.Equal("HALO", "halo") {
		t.Fatal("expected case-insensitive match")
	}
	if !normalize.Equal(" Ōkami ", "ŌKAMI") {
		t.Fatal("expected case folding to cover non-ASCII letters")
	}
	if normalize.Equal("Halo 2", "Halo") {
		t.Fatal("expected different names to differ")
	}
}
