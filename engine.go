package main

import (
	"fmt"
	"time"
)

const (
	maxRounds = 50

	// How long a finished session lingers so clients can read the final
	// standings before the room is torn down.
	gameOverGrace = 30 * time.Second
)

// PlayerInfo is the identity a client presents when creating or joining
// a session. The id comes from the player's cookie, never the payload.
type PlayerInfo struct {
	ID        string
	Name      string
	AvatarURL string
}

// Engine is the session lifecycle controller. It owns no session state of
// its own; every mutating method is only ever called from the goroutine of
// the room whose session is being mutated, which serializes all actions
// for a given session without locks.
type Engine struct {
	cfg      *Config
	registry *Registry
	store    *SessionStore
}

func newEngine(cfg *Config, registry *Registry, store *SessionStore) *Engine {
	return &Engine{
		cfg:      cfg,
		registry: registry,
		store:    store,
	}
}

func (e *Engine) handlerFor(sess *Session) GameHandler {
	h, err := e.registry.Get(sess.Type)
	if err != nil {
		// Sessions are only ever created through the registry.
		panic("session with unregistered game type: " + sess.Type)
	}
	return h
}

// CreateSession validates settings against the handler's bounds, builds
// the initial game data, allocates a unique code, and starts the room
// goroutine for the new session.
func (e *Engine) CreateSession(gameType, hostID string, settings Settings) (*Room, error) {
	h, err := e.registry.Get(gameType)
	if err != nil {
		return nil, err
	}

	if settings.Rounds == 0 {
		settings.Rounds = h.DefaultRounds()
	}
	if settings.Rounds < 1 || settings.Rounds > maxRounds {
		return nil, fmt.Errorf("%w: rounds must be between 1 and %d", ErrInvalidSettings, maxRounds)
	}

	data, err := h.CreateInitialState(settings)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Code:        e.store.NewCode(),
		Type:        gameType,
		Status:      StatusWaiting,
		HostID:      hostID,
		Round:       0,
		TotalRounds: settings.Rounds,
		GameData:    data,
		CreatedAt:   time.Now(),
	}
	if _, ok := h.(deadlineAware); ok {
		sess.TimerDuration = e.cfg.answerTime
	}

	room := newRoom(e, h, sess)
	e.store.Put(sess.Code, room)
	go room.run(e.cfg)

	logf(e.cfg, "GAMES: Created %s session %s", gameType, sess.Code)

	return room, nil
}

// Join adds a new player to the session, or restores an existing one on
// reconnect. Reconnection leaves score and team untouched.
func (e *Engine) Join(sess *Session, info PlayerInfo) (*Player, error) {
	if sess.Status == StatusFinished {
		return nil, ErrSessionFinished
	}

	if p := sess.FindPlayer(info.ID); p != nil {
		p.IsConnected = true
		return p, nil
	}

	if len(sess.Players) >= e.handlerFor(sess).MaxPlayers() {
		return nil, ErrSessionFull
	}

	p := &Player{
		ID:          info.ID,
		Name:        info.Name,
		AvatarURL:   info.AvatarURL,
		IsConnected: true,
	}
	sess.Players = append(sess.Players, p)

	if sess.HostID == "" {
		sess.HostID = p.ID
	}

	return p, nil
}

// Leave marks the player disconnected without deleting it, so score and
// team survive a later reconnect. A departing host is replaced by another
// connected player when one exists. The return value reports whether the
// session is now empty and should be terminated.
func (e *Engine) Leave(sess *Session, playerID string) (empty bool) {
	p := sess.FindPlayer(playerID)
	if p == nil {
		return sess.ConnectedCount() == 0
	}
	p.IsConnected = false

	if sess.HostID == playerID {
		for _, other := range sess.Players {
			if other.IsConnected {
				sess.HostID = other.ID
				break
			}
		}
	}

	return sess.ConnectedCount() == 0
}

// StartRound advances the round counter and hands the new round to the
// handler. It reports whether the handler declared the game finished
// instead (prompt pool exhausted).
func (e *Engine) StartRound(sess *Session) (finished bool) {
	sess.Round++
	e.handlerFor(sess).OnRoundStart(sess)
	return sess.Status == StatusFinished
}

// Dispatch applies one inbound action to the session. Actions for
// inactive sessions or from unknown players are no-ops, as are actions
// the handler rejects for phase or actor reasons.
func (e *Engine) Dispatch(sess *Session, act Action) (changed bool) {
	if sess.Status != StatusActive {
		return false
	}
	if sess.FindPlayer(act.PlayerID) == nil {
		return false
	}
	return e.handlerFor(sess).HandleAction(sess, act)
}

// FinishRound computes the round results and applies the score deltas to
// the players in one step.
func (e *Engine) FinishRound(sess *Session) RoundResult {
	res := e.handlerFor(sess).RoundResults(sess)
	for id, delta := range res.Scores {
		if p := sess.FindPlayer(id); p != nil {
			p.Score += delta
		}
	}
	return res
}
