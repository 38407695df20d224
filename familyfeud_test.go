package main

import (
	"encoding/json"
	"testing"
)

var morningBoard = feudBoard{
	Question: "Name something people do first thing in the morning.",
	Slots: []feudSlot{
		{Answer: "CHECK PHONE", Points: 35},
		{Answer: "BRUSH TEETH", Points: 25},
		{Answer: "USE BATHROOM", Points: 15},
		{Answer: "COFFEE", Points: 12},
		{Answer: "SHOWER", Points: 8},
		{Answer: "PRAY", Points: 5},
	},
}

func feudSession(t *testing.T, boards ...feudBoard) (*FamilyFeudHandler, *Session) {
	t.Helper()

	h := newFamilyFeudHandler()
	sess := &Session{
		Code:        "TEST42",
		Type:        h.Type(),
		Status:      StatusActive,
		HostID:      "host",
		TotalRounds: len(boards),
		GameData: &feudState{
			boards: boards,
			teamNames: map[string]string{
				feudTeam1: "Team 1",
				feudTeam2: "Team 2",
			},
		},
		Players: []*Player{
			{ID: "host", Name: "Harriet", IsConnected: true, Team: feudTeam1},
			{ID: "p1", Name: "Pat", IsConnected: true, Team: feudTeam1},
			{ID: "p2", Name: "Quinn", IsConnected: true, Team: feudTeam2},
			{ID: "p3", Name: "Rae", IsConnected: true, Team: feudTeam2},
		},
	}

	sess.Round = 1
	h.OnRoundStart(sess)

	return h, sess
}

func feudAction(playerID, action, payload string) Action {
	return Action{
		Type:     action,
		PlayerID: playerID,
		Payload:  json.RawMessage(payload),
	}
}

// mustHandle asserts the action was accepted as a state change.
func mustHandle(t *testing.T, h GameHandler, sess *Session, act Action) {
	t.Helper()
	if !h.HandleAction(sess, act) {
		t.Fatalf("action %q by %q was rejected", act.Type, act.PlayerID)
	}
}

// mustReject asserts the action was a no-op.
func mustReject(t *testing.T, h GameHandler, sess *Session, act Action) {
	t.Helper()
	if h.HandleAction(sess, act) {
		t.Fatalf("action %q by %q was accepted, want no-op", act.Type, act.PlayerID)
	}
}

// advanceToPlay walks a fresh round to the play phase with team1 in
// control via a faceoff buzz of buzzAnswer by p1.
func advanceToPlay(t *testing.T, h *FamilyFeudHandler, sess *Session, buzzAnswer string) {
	t.Helper()

	mustHandle(t, h, sess, feudAction("host", "start_round", `{}`))
	mustHandle(t, h, sess, feudAction("host", "open_faceoff", `{}`))
	mustHandle(t, h, sess, feudAction("p1", "faceoff_buzz", `{"answer":"`+buzzAnswer+`"}`))
	mustHandle(t, h, sess, feudAction("host", "judge_faceoff", `{"winner_id":"p1"}`))
}

func TestFamilyFeudFullRound(t *testing.T) {
	h, sess := feudSession(t, morningBoard)
	st := h.state(sess)

	advanceToPlay(t, h, sess, "check phone")

	if st.controllingTeam != feudTeam1 {
		t.Fatalf("controllingTeam = %q, want %q", st.controllingTeam, feudTeam1)
	}
	if !st.revealed[0] || st.roundPoints != 35 {
		t.Fatalf("after faceoff: revealed[0]=%v roundPoints=%d, want true/35", st.revealed[0], st.roundPoints)
	}
	if st.phase != feudPhasePlay {
		t.Fatalf("phase = %q, want %q", st.phase, feudPhasePlay)
	}

	// Miss: no slot contains "flossing".
	mustHandle(t, h, sess, feudAction("p1", "guess", `{"answer":"flossing"}`))
	if st.strikes != 1 {
		t.Fatalf("strikes = %d, want 1", st.strikes)
	}

	// "brushing teeth" shares the word TEETH with "BRUSH TEETH".
	mustHandle(t, h, sess, feudAction("host", "guess", `{"answer":"brushing teeth"}`))
	if !st.revealed[1] || st.roundPoints != 60 {
		t.Fatalf("after second reveal: revealed[1]=%v roundPoints=%d, want true/60", st.revealed[1], st.roundPoints)
	}

	mustHandle(t, h, sess, feudAction("p1", "guess", `{"answer":"jogging"}`))
	mustHandle(t, h, sess, feudAction("p1", "guess", `{"answer":"stretching"}`))
	if st.strikes != 3 || st.phase != feudPhaseSteal {
		t.Fatalf("strikes=%d phase=%q, want 3/%q", st.strikes, st.phase, feudPhaseSteal)
	}

	// Controlling team cannot guess during the steal.
	mustReject(t, h, sess, feudAction("p1", "guess", `{"answer":"coffee"}`))

	// Successful steal transfers the whole pot.
	mustHandle(t, h, sess, feudAction("p2", "guess", `{"answer":"shower"}`))
	if st.roundPoints != 68 {
		t.Fatalf("roundPoints = %d, want 68", st.roundPoints)
	}
	if st.controllingTeam != feudTeam2 {
		t.Fatalf("controllingTeam = %q, want %q after steal", st.controllingTeam, feudTeam2)
	}
	if st.phase != feudPhaseRoundResult {
		t.Fatalf("phase = %q, want %q", st.phase, feudPhaseRoundResult)
	}
	if !h.IsRoundOver(sess) {
		t.Fatal("IsRoundOver = false in round_result")
	}

	res := h.RoundResults(sess)

	// 68 split across two members, floored: 34 each, nothing dropped here.
	if res.Scores["p2"] != 34 || res.Scores["p3"] != 34 {
		t.Fatalf("steal team scores = %v, want 34 each for p2/p3", res.Scores)
	}
	if _, ok := res.Scores["p1"]; ok {
		t.Fatalf("losing team received scores: %v", res.Scores)
	}

	// Sum of revealed point values must equal the pot.
	sum := 0
	for i, slot := range morningBoard.Slots {
		if st.revealed[i] {
			sum += slot.Points
		}
	}
	if sum != st.roundPoints {
		t.Fatalf("revealed sum %d != roundPoints %d", sum, st.roundPoints)
	}
}

func TestFamilyFeudRemainderDropped(t *testing.T) {
	h, sess := feudSession(t, morningBoard)
	st := h.state(sess)

	advanceToPlay(t, h, sess, "check phone")

	st.phase = feudPhaseRoundResult

	// 35 across two members floors to 17 each; the odd point is dropped.
	res := h.RoundResults(sess)
	if res.Scores["host"] != 17 || res.Scores["p1"] != 17 {
		t.Fatalf("scores = %v, want 17 each for team1", res.Scores)
	}
}

func TestFamilyFeudDuplicateGuessIsNoOp(t *testing.T) {
	h, sess := feudSession(t, morningBoard)
	st := h.state(sess)

	advanceToPlay(t, h, sess, "coffee")

	strikes, points := st.strikes, st.roundPoints

	// Identical normalized guess: no second reveal, no strike.
	mustReject(t, h, sess, feudAction("p1", "guess", `{"answer":"  coffee "}`))
	if st.strikes != strikes || st.roundPoints != points {
		t.Fatalf("duplicate guess changed state: strikes %d→%d points %d→%d",
			strikes, st.strikes, points, st.roundPoints)
	}

	// A repeated miss is also a no-op rather than a second strike.
	mustHandle(t, h, sess, feudAction("p1", "guess", `{"answer":"yoga"}`))
	mustReject(t, h, sess, feudAction("p1", "guess", `{"answer":"YOGA"}`))
	if st.strikes != 1 {
		t.Fatalf("strikes = %d, want 1", st.strikes)
	}
}

func TestFamilyFeudFirstUnrevealedSlotWins(t *testing.T) {
	h, sess := feudSession(t, feudBoard{
		Question: "Ambiguous",
		Slots: []feudSlot{
			{Answer: "CAR", Points: 30},
			{Answer: "CARPET", Points: 20},
		},
	})
	st := h.state(sess)

	// "carpet" contains "CAR", so board order wins: slot 0 is revealed
	// even though slot 1 is the exact match.
	advanceToPlay(t, h, sess, "carpet")

	if !st.revealed[0] || st.revealed[1] {
		t.Fatalf("revealed = %v, want only slot 0", st.revealed)
	}
	if st.roundPoints != 30 {
		t.Fatalf("roundPoints = %d, want 30", st.roundPoints)
	}
}

func TestFamilyFeudStealFailureKeepsController(t *testing.T) {
	h, sess := feudSession(t, morningBoard)
	st := h.state(sess)

	advanceToPlay(t, h, sess, "check phone")
	st.phase = feudPhaseSteal
	st.strikes = feudMaxStrikes

	mustHandle(t, h, sess, feudAction("p2", "guess", `{"answer":"nothing on the board"}`))

	if st.controllingTeam != feudTeam1 {
		t.Fatalf("controllingTeam = %q, want %q after failed steal", st.controllingTeam, feudTeam1)
	}
	if st.phase != feudPhaseRoundResult {
		t.Fatalf("phase = %q, want %q", st.phase, feudPhaseRoundResult)
	}

	res := h.RoundResults(sess)
	if res.Scores["host"] != 17 || res.Scores["p1"] != 17 {
		t.Fatalf("scores = %v, want original controller paid", res.Scores)
	}
}

func TestFamilyFeudClearingBoardSkipsSteal(t *testing.T) {
	h, sess := feudSession(t, feudBoard{
		Question: "Tiny board",
		Slots: []feudSlot{
			{Answer: "ALPHA", Points: 60},
			{Answer: "BETA", Points: 40},
		},
	})
	st := h.state(sess)

	advanceToPlay(t, h, sess, "alpha")
	mustHandle(t, h, sess, feudAction("p1", "guess", `{"answer":"beta"}`))

	if st.phase != feudPhaseRoundResult {
		t.Fatalf("phase = %q, want %q after clearing board", st.phase, feudPhaseRoundResult)
	}
	if st.roundPoints != 100 {
		t.Fatalf("roundPoints = %d, want 100", st.roundPoints)
	}
}

func TestFamilyFeudTeamSetup(t *testing.T) {
	h, sess := feudSession(t, morningBoard)
	st := h.state(sess)

	for _, p := range sess.Players {
		p.Team = ""
	}

	// Round cannot start with an empty team.
	mustReject(t, h, sess, feudAction("host", "start_round", `{}`))

	mustHandle(t, h, sess, feudAction("p1", "join_team", `{"team":"team1"}`))
	mustHandle(t, h, sess, feudAction("p2", "join_team", `{"team":"team1"}`))

	// Switching teams leaves the old one; single membership only.
	mustHandle(t, h, sess, feudAction("p2", "join_team", `{"team":"team2"}`))
	if got := sess.FindPlayer("p2").Team; got != feudTeam2 {
		t.Fatalf("p2 team = %q, want %q", got, feudTeam2)
	}
	if len(sess.TeamMembers(feudTeam1)) != 1 {
		t.Fatalf("team1 members = %d, want 1", len(sess.TeamMembers(feudTeam1)))
	}

	// Only the host may rename teams or start the round.
	mustReject(t, h, sess, feudAction("p1", "set_team_name", `{"team":"team1","name":"The Crushers"}`))
	mustHandle(t, h, sess, feudAction("host", "set_team_name", `{"team":"team1","name":"The Crushers"}`))
	if st.teamNames[feudTeam1] != "The Crushers" {
		t.Fatalf("team name = %q", st.teamNames[feudTeam1])
	}
	mustReject(t, h, sess, feudAction("p1", "start_round", `{}`))

	mustHandle(t, h, sess, feudAction("host", "join_team", `{"team":"team1"}`))
	mustHandle(t, h, sess, feudAction("host", "start_round", `{}`))
	if st.phase != feudPhaseFaceoff {
		t.Fatalf("phase = %q, want %q", st.phase, feudPhaseFaceoff)
	}
}

func TestFamilyFeudFaceoffIsHostJudged(t *testing.T) {
	h, sess := feudSession(t, morningBoard)
	st := h.state(sess)

	mustHandle(t, h, sess, feudAction("host", "start_round", `{}`))
	mustHandle(t, h, sess, feudAction("host", "open_faceoff", `{}`))

	// p2 buzzes first, p1 second; control still goes to whoever the
	// host picks, never to the earliest timestamp.
	mustHandle(t, h, sess, feudAction("p2", "faceoff_buzz", `{"answer":"coffee"}`))
	mustHandle(t, h, sess, feudAction("p1", "faceoff_buzz", `{"answer":"shower"}`))

	// One buzz per player.
	mustReject(t, h, sess, feudAction("p2", "faceoff_buzz", `{"answer":"pray"}`))

	// Non-host cannot judge.
	mustReject(t, h, sess, feudAction("p2", "judge_faceoff", `{"winner_id":"p2"}`))

	mustHandle(t, h, sess, feudAction("host", "judge_faceoff", `{"winner_id":"p1"}`))
	if st.controllingTeam != feudTeam1 {
		t.Fatalf("controllingTeam = %q, want %q", st.controllingTeam, feudTeam1)
	}
}

func TestFamilyFeudHostPacing(t *testing.T) {
	h, sess := feudSession(t, morningBoard, morningBoard)
	st := h.state(sess)

	advanceToPlay(t, h, sess, "check phone")
	st.phase = feudPhaseRoundResult

	if h.AdvanceRequested(sess) {
		t.Fatal("AdvanceRequested before next_round")
	}
	mustReject(t, h, sess, feudAction("p1", "next_round", `{}`))
	mustHandle(t, h, sess, feudAction("host", "next_round", `{}`))
	if !h.AdvanceRequested(sess) {
		t.Fatal("AdvanceRequested = false after host next_round")
	}

	sess.Round = 2
	h.OnRoundStart(sess)
	if h.AdvanceRequested(sess) {
		t.Fatal("AdvanceRequested not reset by OnRoundStart")
	}
	if st.phase != feudPhaseTeamSetup {
		t.Fatalf("phase = %q, want %q", st.phase, feudPhaseTeamSetup)
	}
}

func TestFamilyFeudEndGame(t *testing.T) {
	h, sess := feudSession(t, morningBoard, morningBoard)
	st := h.state(sess)

	advanceToPlay(t, h, sess, "check phone")
	st.phase = feudPhaseRoundResult

	mustReject(t, h, sess, feudAction("p1", "end_game", `{}`))
	mustHandle(t, h, sess, feudAction("host", "end_game", `{}`))
	if sess.Status != StatusFinished {
		t.Fatalf("status = %q, want %q", sess.Status, StatusFinished)
	}
	if !h.IsGameOver(sess) {
		t.Fatal("IsGameOver = false after end_game")
	}
}

func TestFamilyFeudPublicStateCopiesMaps(t *testing.T) {
	h, sess := feudSession(t, morningBoard)

	mustHandle(t, h, sess, feudAction("host", "start_round", `{}`))
	mustHandle(t, h, sess, feudAction("host", "open_faceoff", `{}`))
	mustHandle(t, h, sess, feudAction("p1", "faceoff_buzz", `{"answer":"coffee"}`))

	public := h.PublicRoundState(sess).(feudPublicState)

	// Later mutations must not show through the already-built state:
	// it is marshaled outside the room goroutine.
	mustHandle(t, h, sess, feudAction("p2", "faceoff_buzz", `{"answer":"shower"}`))
	if len(public.Buzzes) != 1 {
		t.Fatalf("public buzzes = %d entries, want the 1 present at build time", len(public.Buzzes))
	}

	st := h.state(sess)
	st.phase = feudPhaseTeamSetup
	mustHandle(t, h, sess, feudAction("host", "set_team_name", `{"team":"team1","name":"Renamed"}`))
	if public.TeamNames[feudTeam1] == "Renamed" {
		t.Fatal("public state shares the live team-name map")
	}
}

func TestFamilyFeudPublicStateHidesAnswers(t *testing.T) {
	h, sess := feudSession(t, morningBoard)

	advanceToPlay(t, h, sess, "check phone")

	public, ok := h.PublicRoundState(sess).(feudPublicState)
	if !ok {
		t.Fatalf("PublicRoundState returned %T", h.PublicRoundState(sess))
	}

	if !public.Board[0].Revealed || public.Board[0].Answer != "CHECK PHONE" {
		t.Fatalf("revealed slot not exposed: %+v", public.Board[0])
	}
	for i, slot := range public.Board[1:] {
		if slot.Answer != "" || slot.Points != 0 {
			t.Fatalf("unrevealed slot %d leaked: %+v", i+1, slot)
		}
	}
}
