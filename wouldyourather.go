package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	wyrPhaseVoting  = "voting"
	wyrPhaseResults = "results"

	wyrMajorityPoints = 10
	wyrTiePoints      = 5
)

type wyrPrompt struct {
	OptionA string
	OptionB string
}

type wyrState struct {
	prompts []wyrPrompt
	phase   string
	votes   map[string]string
}

// WouldYouRatherHandler runs binary-choice polling rounds. Each player
// gets exactly one vote per round and the first vote is final. Voting
// with the strict majority earns 10 points; on a tie every voter gets 5.
type WouldYouRatherHandler struct {
	packs map[string][]wyrPrompt
}

func newWouldYouRatherHandler() *WouldYouRatherHandler {
	return &WouldYouRatherHandler{packs: wyrPacks}
}

func (h *WouldYouRatherHandler) Type() string       { return "would-you-rather" }
func (h *WouldYouRatherHandler) MinPlayers() int    { return 2 }
func (h *WouldYouRatherHandler) MaxPlayers() int    { return 24 }
func (h *WouldYouRatherHandler) DefaultRounds() int { return 8 }

func (h *WouldYouRatherHandler) state(sess *Session) *wyrState {
	st, _ := sess.GameData.(*wyrState)
	return st
}

func (h *WouldYouRatherHandler) CreateInitialState(settings Settings) (any, error) {
	pack := settings.Pack
	if pack == "" {
		pack = "classic"
	}
	pool, ok := h.packs[pack]
	if !ok {
		return nil, fmt.Errorf("%w: no would-you-rather pack named %q", ErrInvalidSettings, pack)
	}

	prompts := make([]wyrPrompt, len(pool))
	copy(prompts, pool)
	shuffle(len(prompts), func(i, j int) {
		prompts[i], prompts[j] = prompts[j], prompts[i]
	})
	if len(prompts) > settings.Rounds {
		prompts = prompts[:settings.Rounds]
	}

	return &wyrState{
		prompts: prompts,
		votes:   make(map[string]string),
	}, nil
}

func (h *WouldYouRatherHandler) OnRoundStart(sess *Session) {
	st := h.state(sess)

	if sess.Round-1 >= len(st.prompts) {
		sess.Status = StatusFinished
		return
	}

	st.phase = wyrPhaseVoting
	st.votes = make(map[string]string)
}

func (h *WouldYouRatherHandler) HandleAction(sess *Session, act Action) bool {
	st := h.state(sess)

	if act.Type != "vote" || st.phase != wyrPhaseVoting {
		return false
	}

	var payload struct {
		Choice string `json:"choice"`
	}
	if err := json.Unmarshal(act.Payload, &payload); err != nil {
		return false
	}

	choice := strings.ToUpper(strings.TrimSpace(payload.Choice))
	if choice != "A" && choice != "B" {
		return false
	}

	// The first vote is final.
	if _, voted := st.votes[act.PlayerID]; voted {
		return false
	}

	st.votes[act.PlayerID] = choice

	if h.allConnectedVoted(sess) {
		st.phase = wyrPhaseResults
	}

	return true
}

func (h *WouldYouRatherHandler) allConnectedVoted(sess *Session) bool {
	st := h.state(sess)
	for _, p := range sess.Players {
		if !p.IsConnected {
			continue
		}
		if _, ok := st.votes[p.ID]; !ok {
			return false
		}
	}
	return true
}

// OnDeadline closes the voting window; players who never voted simply
// sit the round out.
func (h *WouldYouRatherHandler) OnDeadline(sess *Session) {
	st := h.state(sess)
	if st.phase == wyrPhaseVoting {
		st.phase = wyrPhaseResults
	}
}

// OnPlayerLeft closes the vote early once everyone still connected has
// voted.
func (h *WouldYouRatherHandler) OnPlayerLeft(sess *Session) {
	st := h.state(sess)
	if st.phase != wyrPhaseVoting {
		return
	}
	if h.allConnectedVoted(sess) {
		st.phase = wyrPhaseResults
	}
}

func (h *WouldYouRatherHandler) IsRoundOver(sess *Session) bool {
	return h.state(sess).phase == wyrPhaseResults
}

type wyrSummary struct {
	OptionA  string `json:"option_a"`
	OptionB  string `json:"option_b"`
	VotesA   int    `json:"votes_a"`
	VotesB   int    `json:"votes_b"`
	PercentA int    `json:"percent_a"`
	PercentB int    `json:"percent_b"`
	Majority string `json:"majority"`
}

func (h *WouldYouRatherHandler) RoundResults(sess *Session) RoundResult {
	st := h.state(sess)
	prompt := st.prompts[sess.Round-1]

	votesA, votesB := 0, 0
	for _, choice := range st.votes {
		if choice == "A" {
			votesA++
		} else {
			votesB++
		}
	}

	summary := wyrSummary{
		OptionA: prompt.OptionA,
		OptionB: prompt.OptionB,
		VotesA:  votesA,
		VotesB:  votesB,
	}

	total := votesA + votesB
	if total > 0 {
		summary.PercentA = votesA * 100 / total
		summary.PercentB = 100 - summary.PercentA
	}

	switch {
	case votesA > votesB:
		summary.Majority = "A"
	case votesB > votesA:
		summary.Majority = "B"
	default:
		summary.Majority = "tie"
	}

	scores := make(map[string]int)
	for id, choice := range st.votes {
		switch {
		case summary.Majority == "tie":
			scores[id] = wyrTiePoints
		case choice == summary.Majority:
			scores[id] = wyrMajorityPoints
		default:
			scores[id] = 0
		}
	}

	return RoundResult{Scores: scores, Summary: summary}
}

func (h *WouldYouRatherHandler) IsGameOver(sess *Session) bool {
	return sess.Round >= sess.TotalRounds || sess.Status == StatusFinished
}

type wyrPublicState struct {
	Phase   string   `json:"phase"`
	OptionA string   `json:"option_a,omitempty"`
	OptionB string   `json:"option_b,omitempty"`
	Voted   []string `json:"voted,omitempty"`
}

// PublicRoundState exposes who has voted but never how, until results.
func (h *WouldYouRatherHandler) PublicRoundState(sess *Session) any {
	st := h.state(sess)
	if sess.Round < 1 || sess.Round-1 >= len(st.prompts) {
		return nil
	}
	prompt := st.prompts[sess.Round-1]

	voted := make([]string, 0, len(st.votes))
	for id := range st.votes {
		voted = append(voted, id)
	}

	return wyrPublicState{
		Phase:   st.phase,
		OptionA: prompt.OptionA,
		OptionB: prompt.OptionB,
		Voted:   voted,
	}
}

var wyrPacks = map[string][]wyrPrompt{
	"classic": {
		{OptionA: "Be able to fly", OptionB: "Be invisible"},
		{OptionA: "Always be 10 minutes late", OptionB: "Always be 20 minutes early"},
		{OptionA: "Live without music", OptionB: "Live without movies"},
		{OptionA: "Have unlimited money", OptionB: "Have unlimited free time"},
		{OptionA: "Only eat sweet food", OptionB: "Only eat savory food"},
		{OptionA: "Speak every language", OptionB: "Play every instrument"},
		{OptionA: "Live in the mountains", OptionB: "Live by the sea"},
		{OptionA: "Never use social media again", OptionB: "Never watch another series"},
		{OptionA: "Be able to pause time", OptionB: "Be able to rewind time"},
		{OptionA: "Always know when someone is lying", OptionB: "Always get away with lying"},
		{OptionA: "Have a personal chef", OptionB: "Have a personal driver"},
		{OptionA: "Explore deep space", OptionB: "Explore the ocean floor"},
	},
	"office": {
		{OptionA: "Work four 10-hour days", OptionB: "Work five 8-hour days"},
		{OptionA: "Have meetings all morning", OptionB: "Have meetings all afternoon"},
		{OptionA: "Never answer another email", OptionB: "Never sit in another meeting"},
		{OptionA: "Have a desk by the window", OptionB: "Have a desk by the coffee machine"},
		{OptionA: "Work fully remote forever", OptionB: "Work in the office with your best friends"},
		{OptionA: "Get every Friday off", OptionB: "Get double pay for Fridays"},
		{OptionA: "Hot-desk every day", OptionB: "Keep one desk but share it on Mondays"},
		{OptionA: "Present to a hundred strangers", OptionB: "Present to ten executives"},
	},
}
