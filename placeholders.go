package main

import "fmt"

// PlaceholderHandler reserves a game-type identifier for a game that is
// not built yet. It satisfies the full contract so the registry and home
// page can list it, but session creation is refused.
type PlaceholderHandler struct {
	gameType string
}

func newPlaceholderHandler(gameType string) *PlaceholderHandler {
	return &PlaceholderHandler{gameType: gameType}
}

func (h *PlaceholderHandler) Type() string       { return h.gameType }
func (h *PlaceholderHandler) MinPlayers() int    { return 2 }
func (h *PlaceholderHandler) MaxPlayers() int    { return 16 }
func (h *PlaceholderHandler) DefaultRounds() int { return 3 }

func (h *PlaceholderHandler) CreateInitialState(settings Settings) (any, error) {
	return nil, fmt.Errorf("%w: %s", ErrGameUnavailable, h.gameType)
}

func (h *PlaceholderHandler) OnRoundStart(sess *Session)                 {}
func (h *PlaceholderHandler) HandleAction(sess *Session, act Action) bool { return false }
func (h *PlaceholderHandler) IsRoundOver(sess *Session) bool              { return false }
func (h *PlaceholderHandler) RoundResults(sess *Session) RoundResult {
	return RoundResult{Scores: map[string]int{}}
}
func (h *PlaceholderHandler) IsGameOver(sess *Session) bool      { return true }
func (h *PlaceholderHandler) PublicRoundState(sess *Session) any { return nil }
