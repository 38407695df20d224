package main

import (
	"sync"
	"time"
)

// Messages sent to clients.

type CreatedMessage struct {
	Type string `json:"type"` // "created"
	Code string `json:"code"`
}

// SessionInfoMessage is sent to a client immediately after it joins, so it
// knows its own id, the host, and the current session shape.
type SessionInfoMessage struct {
	Type        string    `json:"type"` // "session_info"
	Code        string    `json:"code"`
	GameType    string    `json:"game_type"`
	Status      string    `json:"status"`
	Round       int       `json:"round"`
	TotalRounds int       `json:"total_rounds"`
	HostID      string    `json:"host_id"`
	You         string    `json:"you"`
	Players     []*Player `json:"players"`
	State       any       `json:"state,omitempty"`
}

// UpdateMessage is the incremental broadcast after each state change:
// the player list plus the public-safe view of the current round.
type UpdateMessage struct {
	Type    string    `json:"type"` // "update"
	Round   int       `json:"round"`
	Status  string    `json:"status"`
	HostID  string    `json:"host_id"`
	Players []*Player `json:"players"`
	State   any       `json:"state,omitempty"`
}

type RoundStartMessage struct {
	Type        string `json:"type"` // "round_start"
	Round       int    `json:"round"`
	TotalRounds int    `json:"total_rounds"`
	State       any    `json:"state,omitempty"`
}

type RoundEndMessage struct {
	Type      string         `json:"type"` // "round_end"
	Round     int            `json:"round"`
	Scores    map[string]int `json:"scores"`
	Summary   any            `json:"summary,omitempty"`
	Standings []*Player      `json:"standings"`
}

type EndedMessage struct {
	Type      string    `json:"type"` // "ended"
	Standings []*Player `json:"standings"`
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type joinRequest struct {
	client *Client
	info   PlayerInfo
	// ok reports whether the engine accepted the player; buffered so the
	// room goroutine never blocks replying.
	ok chan bool
}

type actionRequest struct {
	client *Client
	act    Action
}

type timerKind int

const (
	timerAdvance timerKind = iota
	timerDeadline
	timerTeardown
)

type timerFire struct {
	gen  int
	kind timerKind
}

// Room owns one session. Its run goroutine is the single writer for the
// session's players, scores, and game data; joins, leaves, actions, and
// timer fires are all funneled through its channels and processed one at
// a time, so the handlers never need locks around game state.
type Room struct {
	engine  *Engine
	handler GameHandler
	sess    *Session

	clients map[*Client]bool

	joins   chan joinRequest
	unreg   chan *Client
	actions chan actionRequest
	timers  chan timerFire

	quit     chan struct{}
	quitOnce sync.Once

	// Read by the store's reaper from outside the room goroutine.
	mu         sync.RWMutex
	lastActive time.Time

	timerGen    int
	roundScored bool
	gameEnded   bool
}

func newRoom(engine *Engine, handler GameHandler, sess *Session) *Room {
	return &Room{
		engine:  engine,
		handler: handler,
		sess:    sess,
		clients: make(map[*Client]bool),
		joins:   make(chan joinRequest),
		unreg:   make(chan *Client),
		actions: make(chan actionRequest),
		timers:  make(chan timerFire, 4),
		quit:    make(chan struct{}),
	}
}

func (r *Room) run(cfg *Config) {
	r.touch()

	for {
		select {
		case jr := <-r.joins:
			r.handleJoin(cfg, jr)

		case c := <-r.unreg:
			if r.handleLeave(cfg, c) {
				return
			}

		case ar := <-r.actions:
			if r.handleAction(cfg, ar) {
				return
			}

		case tf := <-r.timers:
			if r.handleTimer(cfg, tf) {
				return
			}

		case <-r.quit:
			r.terminate()
			return
		}
	}
}

func (r *Room) touch() {
	r.mu.Lock()
	r.lastActive = time.Now()
	r.mu.Unlock()
}

// scheduleTimer arms a one-shot timer delivered back into the run loop.
// Arming a new timer invalidates any outstanding one: fires carry the
// generation they were armed with, and stale generations are dropped.
func (r *Room) scheduleTimer(kind timerKind, d time.Duration) {
	r.timerGen++
	gen := r.timerGen
	time.AfterFunc(d, func() {
		select {
		case r.timers <- timerFire{gen: gen, kind: kind}:
		default:
		}
	})
}

// send delivers one message to a single client, evicting it if its write
// buffer is full.
func (r *Room) send(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(r.clients, c)
		close(c.send)
	}
}

func (r *Room) broadcast(msg any) {
	for c := range r.clients {
		r.send(c, msg)
	}
}

func (r *Room) broadcastUpdate() {
	r.broadcast(UpdateMessage{
		Type:    "update",
		Round:   r.sess.Round,
		Status:  string(r.sess.Status),
		HostID:  r.sess.HostID,
		Players: r.sess.PlayersSnapshot(),
		State:   r.handler.PublicRoundState(r.sess),
	})
}

func (r *Room) handleJoin(cfg *Config, jr joinRequest) {
	r.touch()

	p, err := r.engine.Join(r.sess, jr.info)
	if err != nil {
		jr.client.trySend(ErrorMessage{Type: "error", Message: err.Error()})
		jr.ok <- false
		return
	}

	r.clients[jr.client] = true
	jr.ok <- true

	r.send(jr.client, SessionInfoMessage{
		Type:        "session_info",
		Code:        r.sess.Code,
		GameType:    r.sess.Type,
		Status:      string(r.sess.Status),
		Round:       r.sess.Round,
		TotalRounds: r.sess.TotalRounds,
		HostID:      r.sess.HostID,
		You:         p.ID,
		Players:     r.sess.PlayersSnapshot(),
		State:       r.handler.PublicRoundState(r.sess),
	})

	logf(cfg, "GAMES: Player %q joined %s", p.Name, r.sess.Code)

	r.broadcastUpdate()
}

// handleLeave marks the player disconnected and reports whether the room
// should shut down because nobody is left.
func (r *Room) handleLeave(cfg *Config, c *Client) (done bool) {
	r.touch()

	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.send)
	}

	if c.playerID == "" {
		return false
	}

	if r.engine.Leave(r.sess, c.playerID) {
		logf(cfg, "GAMES: Session %s emptied, terminating", r.sess.Code)
		r.terminate()
		return true
	}

	// An open round must not stall waiting on the departed player.
	if ca, ok := r.handler.(connectionAware); ok && r.sess.Status == StatusActive && !r.roundScored {
		ca.OnPlayerLeft(r.sess)
	}

	return r.afterChange(cfg, true)
}

func (r *Room) handleAction(cfg *Config, ar actionRequest) (done bool) {
	r.touch()

	// Starting the game is the one action owned by the engine rather
	// than a handler.
	if ar.act.Type == "start_game" {
		r.startGame(cfg, ar)
		return false
	}

	changed := r.engine.Dispatch(r.sess, ar.act)

	return r.afterChange(cfg, changed)
}

func (r *Room) startGame(cfg *Config, ar actionRequest) {
	if r.sess.Status != StatusWaiting || ar.act.PlayerID != r.sess.HostID {
		return
	}
	if r.sess.ConnectedCount() < r.handler.MinPlayers() {
		ar.client.trySend(ErrorMessage{
			Type:    "error",
			Message: "not enough players to start",
		})
		return
	}

	r.sess.Status = StatusActive
	logf(cfg, "GAMES: Session %s started with %d players", r.sess.Code, r.sess.ConnectedCount())
	r.startRound(cfg)
}

// afterChange runs the engine's post-dispatch checks: handler-declared
// game end, round completion and scoring, host-paced advancement, and
// otherwise the ordinary delta broadcast.
func (r *Room) afterChange(cfg *Config, changed bool) (done bool) {
	if r.sess.Status == StatusFinished {
		r.finishGame(cfg)
		return false
	}

	if !r.roundScored && r.handler.IsRoundOver(r.sess) {
		r.scoreRound(cfg)
		return false
	}

	if r.roundScored {
		if hp, ok := r.handler.(hostPaced); ok && hp.AdvanceRequested(r.sess) {
			r.startRound(cfg)
			return false
		}
	}

	if changed {
		r.broadcastUpdate()
	}
	return false
}

// startRound advances to the next round and broadcasts its public state.
// If the handler ends the game instead (no prompts left), the round-start
// broadcast is skipped and the session moves straight to termination.
func (r *Room) startRound(cfg *Config) {
	r.roundScored = false

	if r.engine.StartRound(r.sess) {
		r.finishGame(cfg)
		return
	}

	r.broadcast(RoundStartMessage{
		Type:        "round_start",
		Round:       r.sess.Round,
		TotalRounds: r.sess.TotalRounds,
		State:       r.handler.PublicRoundState(r.sess),
	})

	if _, ok := r.handler.(deadlineAware); ok && r.sess.TimerDuration > 0 {
		r.scheduleTimer(timerDeadline, r.sess.TimerDuration)
	}
}

// scoreRound applies the round's score deltas atomically and broadcasts
// the round-end event. Timer-paced games then schedule the next round;
// host-paced games wait for the host.
func (r *Room) scoreRound(cfg *Config) {
	r.roundScored = true

	res := r.engine.FinishRound(r.sess)

	r.broadcast(RoundEndMessage{
		Type:      "round_end",
		Round:     r.sess.Round,
		Scores:    res.Scores,
		Summary:   res.Summary,
		Standings: r.sess.Standings(),
	})

	if r.handler.IsGameOver(r.sess) {
		r.finishGame(cfg)
		return
	}

	if _, ok := r.handler.(hostPaced); !ok {
		r.scheduleTimer(timerAdvance, cfg.roundDelay)
	}
}

func (r *Room) finishGame(cfg *Config) {
	if r.gameEnded {
		return
	}
	r.gameEnded = true
	r.sess.Status = StatusFinished

	r.broadcast(EndedMessage{
		Type:      "ended",
		Standings: r.sess.Standings(),
	})

	logf(cfg, "GAMES: Session %s finished after %d rounds", r.sess.Code, r.sess.Round)

	r.scheduleTimer(timerTeardown, gameOverGrace)
}

func (r *Room) handleTimer(cfg *Config, tf timerFire) (done bool) {
	if tf.gen != r.timerGen {
		return false
	}

	switch tf.kind {
	case timerAdvance:
		r.startRound(cfg)

	case timerDeadline:
		if da, ok := r.handler.(deadlineAware); ok {
			da.OnDeadline(r.sess)
			return r.afterChange(cfg, true)
		}

	case timerTeardown:
		r.terminate()
		return true
	}

	return false
}

// deliverJoin hands a join request to the room goroutine and reports
// whether the engine accepted the player. A rejected join (session full or
// finished) or a terminated room leaves the client unregistered, so the
// caller must not treat the client as a member. Once the request is
// received, handleJoin always replies.
func (r *Room) deliverJoin(client *Client, info PlayerInfo) bool {
	jr := joinRequest{client: client, info: info, ok: make(chan bool, 1)}
	select {
	case r.joins <- jr:
		return <-jr.ok
	case <-r.quit:
		return false
	}
}

func (r *Room) deliverAction(ar actionRequest) {
	select {
	case r.actions <- ar:
	case <-r.quit:
	}
}

func (r *Room) deliverLeave(c *Client) {
	select {
	case r.unreg <- c:
	case <-r.quit:
	}
}

// terminate removes the room from the store and disconnects everyone.
// The caller returns from the run loop afterwards.
func (r *Room) terminate() {
	r.quitOnce.Do(func() {
		close(r.quit)
	})
	r.engine.store.Delete(r.sess.Code)
	for c := range r.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(r.clients, c)
	}
}

// shutdown asks the room goroutine to terminate. Safe to call from
// outside the room goroutine (the store's reaper uses it).
func (r *Room) shutdown() {
	r.quitOnce.Do(func() {
		close(r.quit)
	})
}
