package broker_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"coverfill/internal/broker"
	"coverfill/internal/catalog"
	"coverfill/internal/engine"
	"coverfill/internal/provider"
)

func TestTerminalPickCandidate(t *testing.T) {
	pending := engine.Pending{
		Item:     catalog.Item{Name: "Halo"},
		Provider: "igdb",
		Candidates: []catalog.Candidate{
			{ID: 1, DisplayName: "Halo: Combat Evolved", Year: "2001", Description: strings.Repeat("long ", 40)},
			{ID: 2, DisplayName: "Halo 2", Year: "2004"},
		},
	}
	tests := []struct {
		input string
		want  broker.Decision
	}{
		{input: "2\n", want: broker.Decision{Action: broker.ActionSelect, Candidate: 1}},
		{input: "\nhuh\nS\n", want: broker.Decision{Action: broker.ActionSkip}},
		{input: "m https://img/x.png\n", want: broker.Decision{Action: broker.ActionManual, URL: "https://img/x.png"}},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		term := broker.NewTerminal(strings.NewReader(tt.input), &out)
		got, err := term.PickCandidate(context.Background(), pending)
		if err != nil {
			t.Fatalf("PickCandidate(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("PickCandidate(%q) = %#v, want %#v", tt.input, got, tt.want)
		}
		rendered := out.String()
		if !strings.Contains(rendered, "Halo: Combat Evolved") || !strings.Contains(rendered, "2004") {
			t.Fatalf("candidates not rendered: %s", rendered)
		}
		if !strings.Contains(rendered, "…") {
			t.Fatalf("expected long description to be shortened: %s", rendered)
		}
	}
}

func TestTerminalPickCover(t *testing.T) {
	detail := provider.Detail{Covers: []catalog.Cover{
		{URL: "https://img/a.jpg", Width: 600, Height: 900, Score: 100, Style: "official"},
	}}
	var out bytes.Buffer
	term := broker.NewTerminal(strings.NewReader("b\n"), &out)
	if _, ok, err := term.PickCover(context.Background(), catalog.Candidate{DisplayName: "Halo"}, detail); err != nil || ok {
		t.Fatalf("expected back navigation, got ok=%v err=%v", ok, err)
	}
	if !strings.Contains(out.String(), "600x900") {
		t.Fatalf("cover size not rendered: %s", out.String())
	}

	term = broker.NewTerminal(strings.NewReader("1\n"), &out)
	index, ok, err := term.PickCover(context.Background(), catalog.Candidate{DisplayName: "Halo"}, detail)
	if err != nil || !ok || index != 0 {
		t.Fatalf("unexpected answer index=%d ok=%v err=%v", index, ok, err)
	}
}
