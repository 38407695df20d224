package main

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	triviaPhaseQuestion = "question"
	triviaPhaseResults  = "results"

	triviaBasePoints  = 100
	triviaSpeedPoints = 50
)

type triviaQuestion struct {
	Prompt  string
	Options []string
	Correct int
}

type triviaAnswer struct {
	choice int
	at     time.Time
}

type triviaState struct {
	questions []triviaQuestion
	phase     string
	answers   map[string]triviaAnswer
	deadline  time.Time
}

// TriviaHandler runs multiple-choice quiz rounds. Each player submits at
// most one answer index per question (-1 records a timeout); the round
// closes when every connected player has answered or the server-side
// deadline fires. Scoring is 100 points for a correct answer plus a speed
// bonus of up to 50, scaled by time remaining when the answer arrived.
type TriviaHandler struct {
	packs map[string][]triviaQuestion
}

func newTriviaHandler() *TriviaHandler {
	return &TriviaHandler{packs: triviaPacks}
}

func (h *TriviaHandler) Type() string       { return "trivia" }
func (h *TriviaHandler) MinPlayers() int    { return 1 }
func (h *TriviaHandler) MaxPlayers() int    { return 16 }
func (h *TriviaHandler) DefaultRounds() int { return 5 }

func (h *TriviaHandler) state(sess *Session) *triviaState {
	st, _ := sess.GameData.(*triviaState)
	return st
}

func (h *TriviaHandler) CreateInitialState(settings Settings) (any, error) {
	pack := settings.Pack
	if pack == "" {
		pack = "general"
	}
	pool, ok := h.packs[pack]
	if !ok {
		return nil, fmt.Errorf("%w: no trivia pack named %q", ErrInvalidSettings, pack)
	}

	questions := make([]triviaQuestion, len(pool))
	copy(questions, pool)
	shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	if len(questions) > settings.Rounds {
		questions = questions[:settings.Rounds]
	}

	return &triviaState{
		questions: questions,
		answers:   make(map[string]triviaAnswer),
	}, nil
}

func (h *TriviaHandler) OnRoundStart(sess *Session) {
	st := h.state(sess)

	if sess.Round-1 >= len(st.questions) {
		sess.Status = StatusFinished
		return
	}

	st.phase = triviaPhaseQuestion
	st.answers = make(map[string]triviaAnswer)
	st.deadline = time.Now().Add(sess.TimerDuration)
}

func (h *TriviaHandler) HandleAction(sess *Session, act Action) bool {
	st := h.state(sess)

	if act.Type != "answer" || st.phase != triviaPhaseQuestion {
		return false
	}

	var payload struct {
		Answer *int `json:"answer"`
	}
	if err := json.Unmarshal(act.Payload, &payload); err != nil || payload.Answer == nil {
		return false
	}

	// One answer per player per question; the first one is final.
	if _, answered := st.answers[act.PlayerID]; answered {
		return false
	}

	choice := *payload.Answer
	question := st.questions[sess.Round-1]
	if choice < -1 || choice >= len(question.Options) {
		return false
	}

	st.answers[act.PlayerID] = triviaAnswer{choice: choice, at: time.Now()}

	if h.allConnectedAnswered(sess) {
		st.phase = triviaPhaseResults
	}

	return true
}

func (h *TriviaHandler) allConnectedAnswered(sess *Session) bool {
	st := h.state(sess)
	for _, p := range sess.Players {
		if !p.IsConnected {
			continue
		}
		if _, ok := st.answers[p.ID]; !ok {
			return false
		}
	}
	return true
}

// OnDeadline closes the answer window authoritatively: every connected
// player without a recorded answer gets a -1 timeout entry.
func (h *TriviaHandler) OnDeadline(sess *Session) {
	st := h.state(sess)
	if st.phase != triviaPhaseQuestion {
		return
	}

	for _, p := range sess.Players {
		if !p.IsConnected {
			continue
		}
		if _, ok := st.answers[p.ID]; !ok {
			st.answers[p.ID] = triviaAnswer{choice: -1, at: st.deadline}
		}
	}

	st.phase = triviaPhaseResults
}

// OnPlayerLeft closes the question early once everyone still connected
// has answered; the deadline otherwise remains the backstop.
func (h *TriviaHandler) OnPlayerLeft(sess *Session) {
	st := h.state(sess)
	if st.phase != triviaPhaseQuestion {
		return
	}
	if h.allConnectedAnswered(sess) {
		st.phase = triviaPhaseResults
	}
}

func (h *TriviaHandler) IsRoundOver(sess *Session) bool {
	return h.state(sess).phase == triviaPhaseResults
}

type triviaPlayerResult struct {
	Choice  int  `json:"choice"`
	Correct bool `json:"correct"`
}

type triviaSummary struct {
	Prompt  string                        `json:"prompt"`
	Options []string                      `json:"options"`
	Correct int                           `json:"correct"`
	Tallies []int                         `json:"tallies"`
	Answers map[string]triviaPlayerResult `json:"answers"`
}

func (h *TriviaHandler) RoundResults(sess *Session) RoundResult {
	st := h.state(sess)
	question := st.questions[sess.Round-1]

	scores := make(map[string]int)
	tallies := make([]int, len(question.Options))
	answers := make(map[string]triviaPlayerResult, len(st.answers))

	for id, ans := range st.answers {
		if ans.choice >= 0 && ans.choice < len(tallies) {
			tallies[ans.choice]++
		}

		correct := ans.choice == question.Correct
		answers[id] = triviaPlayerResult{Choice: ans.choice, Correct: correct}

		if !correct {
			scores[id] = 0
			continue
		}
		scores[id] = triviaBasePoints + speedBonus(ans.at, st.deadline, sess.TimerDuration)
	}

	return RoundResult{
		Scores: scores,
		Summary: triviaSummary{
			Prompt:  question.Prompt,
			Options: question.Options,
			Correct: question.Correct,
			Tallies: tallies,
			Answers: answers,
		},
	}
}

// speedBonus scales linearly with the time left on the clock when the
// answer arrived, from triviaSpeedPoints down to zero.
func speedBonus(answeredAt, deadline time.Time, duration time.Duration) int {
	if duration <= 0 {
		return 0
	}
	remaining := deadline.Sub(answeredAt)
	if remaining <= 0 {
		return 0
	}
	if remaining > duration {
		remaining = duration
	}
	return int(int64(triviaSpeedPoints) * int64(remaining) / int64(duration))
}

func (h *TriviaHandler) IsGameOver(sess *Session) bool {
	return sess.Round >= sess.TotalRounds || sess.Status == StatusFinished
}

type triviaPublicState struct {
	Phase    string   `json:"phase"`
	Prompt   string   `json:"prompt,omitempty"`
	Options  []string `json:"options,omitempty"`
	Answered []string `json:"answered,omitempty"`
}

// PublicRoundState never includes the correct index while the question is
// open; clients only learn it from the round-end summary.
func (h *TriviaHandler) PublicRoundState(sess *Session) any {
	st := h.state(sess)
	if sess.Round < 1 || sess.Round-1 >= len(st.questions) {
		return nil
	}
	question := st.questions[sess.Round-1]

	answered := make([]string, 0, len(st.answers))
	for id := range st.answers {
		answered = append(answered, id)
	}

	return triviaPublicState{
		Phase:    st.phase,
		Prompt:   question.Prompt,
		Options:  question.Options,
		Answered: answered,
	}
}

var triviaPacks = map[string][]triviaQuestion{
	"general": {
		{Prompt: "What is the largest planet in the solar system?", Options: []string{"Earth", "Saturn", "Jupiter", "Neptune"}, Correct: 2},
		{Prompt: "Which element has the chemical symbol Au?", Options: []string{"Silver", "Gold", "Aluminium", "Argon"}, Correct: 1},
		{Prompt: "In which year did the first person walk on the Moon?", Options: []string{"1965", "1969", "1971", "1973"}, Correct: 1},
		{Prompt: "What is the capital of Australia?", Options: []string{"Sydney", "Melbourne", "Perth", "Canberra"}, Correct: 3},
		{Prompt: "How many strings does a standard violin have?", Options: []string{"4", "5", "6", "7"}, Correct: 0},
		{Prompt: "Which ocean is the deepest?", Options: []string{"Atlantic", "Indian", "Pacific", "Arctic"}, Correct: 2},
		{Prompt: "Who painted the Mona Lisa?", Options: []string{"Michelangelo", "Raphael", "Leonardo da Vinci", "Donatello"}, Correct: 2},
		{Prompt: "What is the smallest prime number?", Options: []string{"0", "1", "2", "3"}, Correct: 2},
		{Prompt: "Which country invented paper?", Options: []string{"Egypt", "China", "Greece", "India"}, Correct: 1},
		{Prompt: "What gas do plants absorb from the atmosphere?", Options: []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Hydrogen"}, Correct: 2},
		{Prompt: "How many continents are there?", Options: []string{"5", "6", "7", "8"}, Correct: 2},
		{Prompt: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Mercury", "Saturn"}, Correct: 1},
	},
	"movies": {
		{Prompt: "Which film won the first Academy Award for Best Picture?", Options: []string{"Wings", "Sunrise", "Metropolis", "The Jazz Singer"}, Correct: 0},
		{Prompt: "Who directed Jaws?", Options: []string{"George Lucas", "Steven Spielberg", "Martin Scorsese", "Francis Ford Coppola"}, Correct: 1},
		{Prompt: "In The Matrix, which pill does Neo take?", Options: []string{"Blue", "Green", "Red", "Yellow"}, Correct: 2},
		{Prompt: "What is the highest-grossing film of all time unadjusted for inflation?", Options: []string{"Titanic", "Avatar", "Avengers: Endgame", "Star Wars: The Force Awakens"}, Correct: 1},
		{Prompt: "Which actor played the Joker in The Dark Knight?", Options: []string{"Jack Nicholson", "Jared Leto", "Joaquin Phoenix", "Heath Ledger"}, Correct: 3},
		{Prompt: "What year was the original Toy Story released?", Options: []string{"1993", "1995", "1997", "1999"}, Correct: 1},
		{Prompt: "Which country produced the film Parasite?", Options: []string{"Japan", "China", "South Korea", "Thailand"}, Correct: 2},
		{Prompt: "Who composed the score for Star Wars?", Options: []string{"Hans Zimmer", "John Williams", "Ennio Morricone", "Danny Elfman"}, Correct: 1},
		{Prompt: "What is the name of the hobbit played by Elijah Wood?", Options: []string{"Bilbo", "Sam", "Frodo", "Pippin"}, Correct: 2},
		{Prompt: "Which studio created Spirited Away?", Options: []string{"Toei", "Studio Ghibli", "Madhouse", "Kyoto Animation"}, Correct: 1},
	},
}
