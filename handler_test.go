package main

import (
	"errors"
	"sort"
	"testing"
)

func TestRegistryGet(t *testing.T) {
	r := defaultRegistry()

	for _, gameType := range []string{"trivia", "would-you-rather", "family-feud"} {
		h, err := r.Get(gameType)
		if err != nil {
			t.Fatalf("Get(%q): %v", gameType, err)
		}
		if h.Type() != gameType {
			t.Fatalf("handler for %q reports type %q", gameType, h.Type())
		}
	}

	if _, err := r.Get("charades"); !errors.Is(err, ErrUnknownGameType) {
		t.Fatalf("err = %v, want %v", err, ErrUnknownGameType)
	}
}

func TestRegistryTypes(t *testing.T) {
	types := defaultRegistry().Types()

	want := []string{"family-feud", "jeopardy", "trivia", "wheel-of-fortune", "would-you-rather"}
	if len(types) != len(want) {
		t.Fatalf("types = %v, want %v", types, want)
	}
	if !sort.StringsAreSorted(types) {
		t.Fatalf("types not sorted: %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("types = %v, want %v", types, want)
		}
	}
}

func TestHandlerBounds(t *testing.T) {
	r := defaultRegistry()

	for _, gameType := range r.Types() {
		h, err := r.Get(gameType)
		if err != nil {
			t.Fatal(err)
		}
		if h.MinPlayers() < 1 {
			t.Fatalf("%s: minPlayers = %d", gameType, h.MinPlayers())
		}
		if h.MaxPlayers() < h.MinPlayers() {
			t.Fatalf("%s: maxPlayers %d below minPlayers %d", gameType, h.MaxPlayers(), h.MinPlayers())
		}
		if h.DefaultRounds() < 1 || h.DefaultRounds() > maxRounds {
			t.Fatalf("%s: defaultRounds = %d", gameType, h.DefaultRounds())
		}
	}
}

func TestPlaceholderHandlersRefuseSessions(t *testing.T) {
	r := defaultRegistry()

	for _, gameType := range []string{"wheel-of-fortune", "jeopardy"} {
		h, err := r.Get(gameType)
		if err != nil {
			t.Fatalf("placeholder %q not registered: %v", gameType, err)
		}
		if _, err := h.CreateInitialState(Settings{}); !errors.Is(err, ErrGameUnavailable) {
			t.Fatalf("%s: err = %v, want %v", gameType, err, ErrGameUnavailable)
		}
	}
}
