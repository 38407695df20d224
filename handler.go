package main

import (
	"encoding/json"
	"sort"
)

// Settings are the host-supplied options for a new session.
type Settings struct {
	Pack     string `json:"pack,omitempty"`
	Rounds   int    `json:"rounds,omitempty"`
	HostMode bool   `json:"host_mode,omitempty"`
}

// Action is an inbound, untrusted player action. Handlers must validate
// the current phase and the acting player before mutating any state.
type Action struct {
	Type     string          `json:"action"`
	PlayerID string          `json:"-"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// RoundResult carries the score deltas for a finished round plus a
// public, game-specific summary (revealed answers, tallies, and so on).
type RoundResult struct {
	Scores  map[string]int `json:"scores"`
	Summary any            `json:"summary"`
}

// GameHandler is the per-game-type strategy contract. Implementations are
// stateless and shared; all mutable state lives in the session's GameData,
// which is only ever touched from inside a single room goroutine.
type GameHandler interface {
	// Type returns the identifier clients use to create sessions.
	Type() string

	MinPlayers() int
	MaxPlayers() int
	DefaultRounds() int

	// CreateInitialState builds the game data for a new session, sized to
	// settings.Rounds (question pools, team scaffolding, phase fields).
	CreateInitialState(settings Settings) (any, error)

	// OnRoundStart selects the prompt for the current round and resets
	// per-round ephemeral fields. It may mark the session finished if the
	// prompt pool has been exhausted.
	OnRoundStart(sess *Session)

	// HandleAction applies a validated action to the game data and reports
	// whether anything changed. Wrong-phase and wrong-actor actions leave
	// state untouched and return false.
	HandleAction(sess *Session, act Action) bool

	IsRoundOver(sess *Session) bool

	// RoundResults is called exactly once per finished round, before score
	// deltas are applied to the players.
	RoundResults(sess *Session) RoundResult

	IsGameOver(sess *Session) bool

	// PublicRoundState returns the subset of game data safe to broadcast:
	// correct answers and unrevealed board slots are withheld.
	PublicRoundState(sess *Session) any
}

// deadlineAware handlers have a per-round answer deadline the server
// enforces itself, rather than trusting a client-reported timeout.
type deadlineAware interface {
	// OnDeadline closes the current round's answer window, recording a
	// timeout for every player who has not acted.
	OnDeadline(sess *Session)
}

// connectionAware handlers re-check round completion when a player
// disconnects, so an open round never stalls waiting on someone who left.
type connectionAware interface {
	OnPlayerLeft(sess *Session)
}

// hostPaced handlers advance rounds on an explicit host action instead of
// the engine's round-delay timer.
type hostPaced interface {
	// AdvanceRequested reports whether the host has asked for the next
	// round since the current one ended.
	AdvanceRequested(sess *Session) bool
}

// Registry maps game-type identifiers to their handlers. It is populated
// once at process start and read-only afterwards.
type Registry struct {
	handlers map[string]GameHandler
}

func newRegistry(handlers ...GameHandler) *Registry {
	r := &Registry{
		handlers: make(map[string]GameHandler, len(handlers)),
	}
	for _, h := range handlers {
		r.handlers[h.Type()] = h
	}
	return r
}

// defaultRegistry returns the registry served by the binary.
func defaultRegistry() *Registry {
	return newRegistry(
		newTriviaHandler(),
		newWouldYouRatherHandler(),
		newFamilyFeudHandler(),
		newPlaceholderHandler("wheel-of-fortune"),
		newPlaceholderHandler("jeopardy"),
	)
}

func (r *Registry) Get(gameType string) (GameHandler, error) {
	h, ok := r.handlers[gameType]
	if !ok {
		return nil, ErrUnknownGameType
	}
	return h, nil
}

// Types lists registered game types in stable order, for the home page.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
