package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	feudPhaseTeamSetup   = "team_setup"
	feudPhaseFaceoff     = "faceoff"
	feudPhaseFaceoffBuzz = "faceoff_buzz"
	feudPhasePlay        = "play"
	feudPhaseSteal       = "steal"
	feudPhaseRoundResult = "round_result"

	feudMaxStrikes = 3

	feudTeam1 = "team1"
	feudTeam2 = "team2"
)

type feudSlot struct {
	Answer string
	Points int
}

type feudBoard struct {
	Question string
	Slots    []feudSlot
}

type feudBuzz struct {
	Answer string    `json:"answer"`
	At     time.Time `json:"at"`
}

type feudState struct {
	boards    []feudBoard
	hostMode  bool
	teamNames map[string]string

	phase           string
	controllingTeam string
	revealed        []bool
	strikes         int
	roundPoints     int
	buzzes          map[string]feudBuzz
	guessed         map[string]bool
	nextRequested   bool
}

// FamilyFeudHandler runs team survey rounds in the televised format:
// teams form up, the host opens a faceoff, players buzz in with free-text
// guesses, and the host (not a buzz timestamp) judges the winner. The
// winning team plays the board until three strikes hand the other team a
// single steal attempt. Rounds advance only on an explicit host action.
type FamilyFeudHandler struct {
	packs map[string][]feudBoard
}

func newFamilyFeudHandler() *FamilyFeudHandler {
	return &FamilyFeudHandler{packs: feudPacks}
}

func (h *FamilyFeudHandler) Type() string       { return "family-feud" }
func (h *FamilyFeudHandler) MinPlayers() int    { return 2 }
func (h *FamilyFeudHandler) MaxPlayers() int    { return 20 }
func (h *FamilyFeudHandler) DefaultRounds() int { return 3 }

func (h *FamilyFeudHandler) state(sess *Session) *feudState {
	st, _ := sess.GameData.(*feudState)
	return st
}

func (h *FamilyFeudHandler) CreateInitialState(settings Settings) (any, error) {
	pack := settings.Pack
	if pack == "" {
		pack = "classic"
	}
	pool, ok := h.packs[pack]
	if !ok {
		return nil, fmt.Errorf("%w: no survey pack named %q", ErrInvalidSettings, pack)
	}

	boards := make([]feudBoard, len(pool))
	copy(boards, pool)
	shuffle(len(boards), func(i, j int) {
		boards[i], boards[j] = boards[j], boards[i]
	})
	if len(boards) > settings.Rounds {
		boards = boards[:settings.Rounds]
	}

	return &feudState{
		boards:   boards,
		hostMode: settings.HostMode,
		teamNames: map[string]string{
			feudTeam1: "Team 1",
			feudTeam2: "Team 2",
		},
	}, nil
}

func (h *FamilyFeudHandler) board(sess *Session) feudBoard {
	return h.state(sess).boards[sess.Round-1]
}

func (h *FamilyFeudHandler) OnRoundStart(sess *Session) {
	st := h.state(sess)

	if sess.Round-1 >= len(st.boards) {
		sess.Status = StatusFinished
		return
	}

	st.phase = feudPhaseTeamSetup
	st.controllingTeam = ""
	st.revealed = make([]bool, len(st.boards[sess.Round-1].Slots))
	st.strikes = 0
	st.roundPoints = 0
	st.buzzes = make(map[string]feudBuzz)
	st.guessed = make(map[string]bool)
	st.nextRequested = false
}

func (h *FamilyFeudHandler) HandleAction(sess *Session, act Action) bool {
	switch act.Type {
	case "join_team":
		return h.joinTeam(sess, act)
	case "set_team_name":
		return h.setTeamName(sess, act)
	case "start_round":
		return h.startFaceoff(sess, act)
	case "open_faceoff":
		return h.openFaceoff(sess, act)
	case "faceoff_buzz":
		return h.recordBuzz(sess, act)
	case "judge_faceoff":
		return h.judgeFaceoff(sess, act)
	case "guess":
		return h.guess(sess, act)
	case "next_round":
		return h.nextRound(sess, act)
	case "end_game":
		return h.endGame(sess, act)
	}
	return false
}

// joinTeam moves the player onto the named team, leaving any other team
// first; a player is only ever on one team.
func (h *FamilyFeudHandler) joinTeam(sess *Session, act Action) bool {
	st := h.state(sess)
	if st.phase != feudPhaseTeamSetup {
		return false
	}
	if st.hostMode && act.PlayerID == sess.HostID {
		return false
	}

	var payload struct {
		Team string `json:"team"`
	}
	if err := json.Unmarshal(act.Payload, &payload); err != nil {
		return false
	}
	if payload.Team != feudTeam1 && payload.Team != feudTeam2 {
		return false
	}

	p := sess.FindPlayer(act.PlayerID)
	if p == nil || p.Team == payload.Team {
		return false
	}
	p.Team = payload.Team
	return true
}

func (h *FamilyFeudHandler) setTeamName(sess *Session, act Action) bool {
	st := h.state(sess)
	if st.phase != feudPhaseTeamSetup || act.PlayerID != sess.HostID {
		return false
	}

	var payload struct {
		Team string `json:"team"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(act.Payload, &payload); err != nil {
		return false
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		return false
	}
	if _, ok := st.teamNames[payload.Team]; !ok {
		return false
	}

	st.teamNames[payload.Team] = name
	return true
}

// startFaceoff leaves team setup, permitted only once both teams have at
// least one member.
func (h *FamilyFeudHandler) startFaceoff(sess *Session, act Action) bool {
	st := h.state(sess)
	if st.phase != feudPhaseTeamSetup || act.PlayerID != sess.HostID {
		return false
	}
	if len(sess.TeamMembers(feudTeam1)) == 0 || len(sess.TeamMembers(feudTeam2)) == 0 {
		return false
	}

	st.phase = feudPhaseFaceoff
	return true
}

func (h *FamilyFeudHandler) openFaceoff(sess *Session, act Action) bool {
	st := h.state(sess)
	if st.phase != feudPhaseFaceoff || act.PlayerID != sess.HostID {
		return false
	}

	st.phase = feudPhaseFaceoffBuzz
	st.buzzes = make(map[string]feudBuzz)
	return true
}

// recordBuzz stores one free-text guess per player. Buzzes are not
// auto-ranked by timestamp; the host judges the winner.
func (h *FamilyFeudHandler) recordBuzz(sess *Session, act Action) bool {
	st := h.state(sess)
	if st.phase != feudPhaseFaceoffBuzz {
		return false
	}

	var payload struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(act.Payload, &payload); err != nil {
		return false
	}
	answer := normalizeGuess(payload.Answer)
	if answer == "" {
		return false
	}

	p := sess.FindPlayer(act.PlayerID)
	if p == nil || p.Team == "" {
		return false
	}
	if _, buzzed := st.buzzes[act.PlayerID]; buzzed {
		return false
	}

	st.buzzes[act.PlayerID] = feudBuzz{Answer: answer, At: time.Now()}
	return true
}

// judgeFaceoff hands control to the winner's team and runs the winner's
// recorded guess against the board.
func (h *FamilyFeudHandler) judgeFaceoff(sess *Session, act Action) bool {
	st := h.state(sess)
	if st.phase != feudPhaseFaceoffBuzz || act.PlayerID != sess.HostID {
		return false
	}

	var payload struct {
		WinnerID string `json:"winner_id"`
	}
	if err := json.Unmarshal(act.Payload, &payload); err != nil {
		return false
	}

	buzz, buzzed := st.buzzes[payload.WinnerID]
	if !buzzed {
		return false
	}
	winner := sess.FindPlayer(payload.WinnerID)
	if winner == nil || winner.Team == "" {
		return false
	}

	st.controllingTeam = winner.Team
	h.tryReveal(sess, buzz.Answer)
	st.phase = feudPhasePlay

	// A perfect faceoff answer can clear the whole board.
	if h.allRevealed(sess) {
		st.phase = feudPhaseRoundResult
	}
	return true
}

func (h *FamilyFeudHandler) guess(sess *Session, act Action) bool {
	st := h.state(sess)
	if st.phase != feudPhasePlay && st.phase != feudPhaseSteal {
		return false
	}

	p := sess.FindPlayer(act.PlayerID)
	if p == nil || p.Team == "" {
		return false
	}
	if st.phase == feudPhasePlay && p.Team != st.controllingTeam {
		return false
	}
	if st.phase == feudPhaseSteal && p.Team == st.controllingTeam {
		return false
	}

	var payload struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(act.Payload, &payload); err != nil {
		return false
	}
	answer := normalizeGuess(payload.Answer)
	if answer == "" {
		return false
	}

	// A guess already made this round is a no-op, not a strike.
	if st.guessed[answer] {
		return false
	}

	matched := h.tryReveal(sess, answer)

	if st.phase == feudPhaseSteal {
		// One effective steal attempt: success transfers control (and
		// with it all round points), failure leaves the original
		// controller; either way the round is over.
		if matched {
			st.controllingTeam = p.Team
		}
		st.phase = feudPhaseRoundResult
		return true
	}

	if matched {
		if h.allRevealed(sess) {
			st.phase = feudPhaseRoundResult
		}
		return true
	}

	st.strikes++
	if st.strikes >= feudMaxStrikes {
		st.phase = feudPhaseSteal
	}
	return true
}

func (h *FamilyFeudHandler) nextRound(sess *Session, act Action) bool {
	st := h.state(sess)
	if st.phase != feudPhaseRoundResult || act.PlayerID != sess.HostID {
		return false
	}
	st.nextRequested = true
	return true
}

func (h *FamilyFeudHandler) endGame(sess *Session, act Action) bool {
	st := h.state(sess)
	if st.phase != feudPhaseRoundResult || act.PlayerID != sess.HostID {
		return false
	}
	sess.Status = StatusFinished
	return true
}

func normalizeGuess(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// guessMatches reports whether a normalized guess is close enough to a
// normalized board answer: either string contains the other, or the two
// share a whole word ("BRUSHING TEETH" matches "BRUSH TEETH").
func guessMatches(guess, answer string) bool {
	if strings.Contains(guess, answer) || strings.Contains(answer, guess) {
		return true
	}
	for _, gw := range strings.Fields(guess) {
		for _, aw := range strings.Fields(answer) {
			if gw == aw {
				return true
			}
		}
	}
	return false
}

// tryReveal runs the fuzzy match: the guess is recorded in the round's
// guess set, then compared against unrevealed slots in board order. At
// most one slot is revealed per guess, and its points join the round pot.
func (h *FamilyFeudHandler) tryReveal(sess *Session, guess string) bool {
	st := h.state(sess)
	st.guessed[guess] = true

	board := h.board(sess)
	for i, slot := range board.Slots {
		if st.revealed[i] {
			continue
		}
		if guessMatches(guess, normalizeGuess(slot.Answer)) {
			st.revealed[i] = true
			st.roundPoints += slot.Points
			return true
		}
	}
	return false
}

func (h *FamilyFeudHandler) allRevealed(sess *Session) bool {
	for _, r := range h.state(sess).revealed {
		if !r {
			return false
		}
	}
	return true
}

// AdvanceRequested implements host pacing: the round only moves on after
// the host sends next_round from the results screen.
func (h *FamilyFeudHandler) AdvanceRequested(sess *Session) bool {
	return h.state(sess).nextRequested
}

func (h *FamilyFeudHandler) IsRoundOver(sess *Session) bool {
	return h.state(sess).phase == feudPhaseRoundResult
}

type feudRevealedSlot struct {
	Answer   string `json:"answer"`
	Points   int    `json:"points"`
	Revealed bool   `json:"revealed"`
}

type feudSummary struct {
	Question    string             `json:"question"`
	Board       []feudRevealedSlot `json:"board"`
	WinningTeam string             `json:"winning_team"`
	TeamName    string             `json:"team_name"`
	RoundPoints int                `json:"round_points"`
	Strikes     int                `json:"strikes"`
}

// RoundResults credits the whole pot to the controlling team, split
// evenly across its members with the floor-division remainder dropped.
func (h *FamilyFeudHandler) RoundResults(sess *Session) RoundResult {
	st := h.state(sess)
	board := h.board(sess)

	scores := make(map[string]int)
	members := sess.TeamMembers(st.controllingTeam)
	if len(members) > 0 && st.roundPoints > 0 {
		share := st.roundPoints / len(members)
		for _, p := range members {
			scores[p.ID] = share
		}
	}

	full := make([]feudRevealedSlot, len(board.Slots))
	for i, slot := range board.Slots {
		full[i] = feudRevealedSlot{
			Answer:   slot.Answer,
			Points:   slot.Points,
			Revealed: st.revealed[i],
		}
	}

	return RoundResult{
		Scores: scores,
		Summary: feudSummary{
			Question:    board.Question,
			Board:       full,
			WinningTeam: st.controllingTeam,
			TeamName:    st.teamNames[st.controllingTeam],
			RoundPoints: st.roundPoints,
			Strikes:     st.strikes,
		},
	}
}

func (h *FamilyFeudHandler) IsGameOver(sess *Session) bool {
	return sess.Round >= sess.TotalRounds || sess.Status == StatusFinished
}

type feudPublicSlot struct {
	Revealed bool   `json:"revealed"`
	Answer   string `json:"answer,omitempty"`
	Points   int    `json:"points,omitempty"`
}

type feudPublicState struct {
	Phase           string              `json:"phase"`
	Question        string              `json:"question,omitempty"`
	Board           []feudPublicSlot    `json:"board,omitempty"`
	TeamNames       map[string]string   `json:"team_names"`
	ControllingTeam string              `json:"controlling_team,omitempty"`
	Strikes         int                 `json:"strikes"`
	RoundPoints     int                 `json:"round_points"`
	Buzzes          map[string]feudBuzz `json:"buzzes,omitempty"`
}

// PublicRoundState hides unrevealed slot answers; buzz guesses are public
// because they were called out for the whole room to hear. The maps are
// copied, never the live ones: writer goroutines marshal this concurrently
// with the room goroutine's next mutation.
func (h *FamilyFeudHandler) PublicRoundState(sess *Session) any {
	st := h.state(sess)
	if sess.Round < 1 || sess.Round-1 >= len(st.boards) {
		return nil
	}
	board := h.board(sess)

	slots := make([]feudPublicSlot, len(board.Slots))
	for i, slot := range board.Slots {
		if st.revealed[i] {
			slots[i] = feudPublicSlot{Revealed: true, Answer: slot.Answer, Points: slot.Points}
		}
	}

	teamNames := make(map[string]string, len(st.teamNames))
	for team, name := range st.teamNames {
		teamNames[team] = name
	}

	var buzzes map[string]feudBuzz
	if len(st.buzzes) > 0 {
		buzzes = make(map[string]feudBuzz, len(st.buzzes))
		for id, buzz := range st.buzzes {
			buzzes[id] = buzz
		}
	}

	return feudPublicState{
		Phase:           st.phase,
		Question:        board.Question,
		Board:           slots,
		TeamNames:       teamNames,
		ControllingTeam: st.controllingTeam,
		Strikes:         st.strikes,
		RoundPoints:     st.roundPoints,
		Buzzes:          buzzes,
	}
}

var feudPacks = map[string][]feudBoard{
	"classic": {
		{
			Question: "Name something people do first thing in the morning.",
			Slots: []feudSlot{
				{Answer: "CHECK PHONE", Points: 35},
				{Answer: "BRUSH TEETH", Points: 25},
				{Answer: "USE BATHROOM", Points: 15},
				{Answer: "COFFEE", Points: 12},
				{Answer: "SHOWER", Points: 8},
				{Answer: "PRAY", Points: 5},
			},
		},
		{
			Question: "Name a reason someone might be late for work.",
			Slots: []feudSlot{
				{Answer: "TRAFFIC", Points: 38},
				{Answer: "OVERSLEPT", Points: 27},
				{Answer: "KIDS", Points: 14},
				{Answer: "WEATHER", Points: 11},
				{Answer: "LOST KEYS", Points: 6},
				{Answer: "FLAT TIRE", Points: 4},
			},
		},
		{
			Question: "Name something people forget when leaving the house.",
			Slots: []feudSlot{
				{Answer: "PHONE", Points: 32},
				{Answer: "KEYS", Points: 28},
				{Answer: "WALLET", Points: 18},
				{Answer: "LUNCH", Points: 10},
				{Answer: "UMBRELLA", Points: 7},
				{Answer: "GLASSES", Points: 5},
			},
		},
		{
			Question: "Name something you'd find at a birthday party.",
			Slots: []feudSlot{
				{Answer: "CAKE", Points: 40},
				{Answer: "BALLOONS", Points: 22},
				{Answer: "PRESENTS", Points: 17},
				{Answer: "CANDLES", Points: 9},
				{Answer: "MUSIC", Points: 7},
				{Answer: "CLOWN", Points: 5},
			},
		},
		{
			Question: "Name a place where you have to be quiet.",
			Slots: []feudSlot{
				{Answer: "LIBRARY", Points: 41},
				{Answer: "CHURCH", Points: 23},
				{Answer: "MOVIE THEATER", Points: 16},
				{Answer: "HOSPITAL", Points: 11},
				{Answer: "MUSEUM", Points: 5},
				{Answer: "COURTROOM", Points: 4},
			},
		},
		{
			Question: "Name something people collect.",
			Slots: []feudSlot{
				{Answer: "STAMPS", Points: 29},
				{Answer: "COINS", Points: 26},
				{Answer: "CARDS", Points: 19},
				{Answer: "BOOKS", Points: 13},
				{Answer: "SHOES", Points: 8},
				{Answer: "RECORDS", Points: 5},
			},
		},
	},
}
