package main

import (
	"strings"
	"testing"
)

func TestNewCode(t *testing.T) {
	st := newSessionStore()

	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		code := st.NewCode()

		if len(code) != codeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), codeLength)
		}
		for _, c := range code {
			if !strings.ContainsRune("ABCDEFGHJKMNPQRSTUVWXYZ23456789", c) {
				t.Fatalf("code %q contains ambiguous character %q", code, c)
			}
		}

		if seen[code] {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = true

		// Register the code so collision avoidance has something to check.
		st.Put(code, &Room{})
	}
}

func TestSessionStore(t *testing.T) {
	st := newSessionStore()
	room := &Room{sess: &Session{Code: "ABC234"}}

	if _, ok := st.Get("ABC234"); ok {
		t.Fatal("empty store returned a room")
	}

	st.Put("ABC234", room)
	got, ok := st.Get("ABC234")
	if !ok || got != room {
		t.Fatal("stored room not returned")
	}

	st.Delete("ABC234")
	if _, ok := st.Get("ABC234"); ok {
		t.Fatal("deleted room still present")
	}
}

func TestStandings(t *testing.T) {
	sess := &Session{
		Players: []*Player{
			{ID: "a", Score: 10},
			{ID: "b", Score: 30},
			{ID: "c", Score: 10},
			{ID: "d", Score: 20},
		},
	}

	ranked := sess.Standings()

	want := []string{"b", "d", "a", "c"}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Fatalf("standings[%d] = %s, want %s (ties break by join order)", i, ranked[i].ID, id)
		}
	}

	// Standings is a fresh slice; session order is untouched.
	if sess.Players[0].ID != "a" {
		t.Fatal("Standings mutated the player list")
	}

	// The entries are copies, safe to marshal while the originals change.
	sess.Players[1].Score = 500
	if ranked[0].Score != 30 {
		t.Fatal("standings share live player records")
	}
}

func TestPlayersSnapshotIsDetached(t *testing.T) {
	sess := &Session{
		Players: []*Player{{ID: "a", Score: 1, IsConnected: true}},
	}

	snap := sess.PlayersSnapshot()
	sess.Players[0].Score = 2
	sess.Players[0].IsConnected = false

	if snap[0].Score != 1 || !snap[0].IsConnected {
		t.Fatalf("snapshot tracks live record: %+v", snap[0])
	}
}

func TestTeamMembersAndConnectedCount(t *testing.T) {
	sess := &Session{
		Players: []*Player{
			{ID: "a", Team: feudTeam1, IsConnected: true},
			{ID: "b", Team: feudTeam2, IsConnected: true},
			{ID: "c", Team: feudTeam1, IsConnected: false},
			{ID: "d", IsConnected: true},
		},
	}

	if n := len(sess.TeamMembers(feudTeam1)); n != 2 {
		t.Fatalf("team1 members = %d, want 2 (disconnected players keep their team)", n)
	}
	if n := len(sess.TeamMembers(feudTeam2)); n != 1 {
		t.Fatalf("team2 members = %d, want 1", n)
	}
	if n := sess.ConnectedCount(); n != 3 {
		t.Fatalf("connected = %d, want 3", n)
	}
}
