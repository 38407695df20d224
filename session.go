package main

import (
	"crypto/rand"
	"sync"
	"time"
)

type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting"
	StatusActive   SessionStatus = "active"
	StatusFinished SessionStatus = "finished"
)

// Player is created on join and preserved across disconnects so scores
// and team membership survive reconnection. Players are only removed when
// the session itself is torn down.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Score       int    `json:"score"`
	IsConnected bool   `json:"is_connected"`
	Team        string `json:"team,omitempty"`
}

// Session is the mutable record for one running game. GameData is an
// opaque container owned exclusively by the handler for Type; it is only
// mutated inside a handler call invoked from the session's room goroutine.
type Session struct {
	Code          string
	Type          string
	Status        SessionStatus
	HostID        string
	Players       []*Player
	Round         int
	TotalRounds   int
	TimerDuration time.Duration
	GameData      any
	CreatedAt     time.Time
}

func (s *Session) FindPlayer(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) ConnectedCount() int {
	n := 0
	for _, p := range s.Players {
		if p.IsConnected {
			n++
		}
	}
	return n
}

// TeamMembers returns the players currently assigned to the named team.
func (s *Session) TeamMembers(team string) []*Player {
	var members []*Player
	for _, p := range s.Players {
		if p.Team == team {
			members = append(members, p)
		}
	}
	return members
}

// PlayersSnapshot returns detached copies of the player records. Outbound
// messages are marshaled by per-client writer goroutines while the room
// goroutine keeps mutating the live records, so no live reference may
// enter a send channel.
func (s *Session) PlayersSnapshot() []*Player {
	out := make([]*Player, len(s.Players))
	for i, p := range s.Players {
		c := *p
		out[i] = &c
	}
	return out
}

// Standings returns copies of the players sorted by score, highest first,
// with ties broken by join order.
func (s *Session) Standings() []*Player {
	ranked := s.PlayersSnapshot()
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].Score > ranked[j-1].Score; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	return ranked
}

// SessionStore owns the code-keyed set of live rooms. It is the only
// cross-session shared state, and every access goes through its mutex; the
// sessions themselves are never touched outside their own room goroutine.
type SessionStore struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func newSessionStore() *SessionStore {
	return &SessionStore{
		rooms: make(map[string]*Room),
	}
}

func (st *SessionStore) Get(code string) (*Room, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	room, ok := st.rooms[code]
	return room, ok
}

func (st *SessionStore) Put(code string, room *Room) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rooms[code] = room
}

func (st *SessionStore) Delete(code string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.rooms, code)
}

const codeLength = 6

// NewCode generates a crypto-random session code and ensures it doesn't
// collide with any live session.
func (st *SessionStore) NewCode() string {
	const letters = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	const max = byte(255 - (256 % len(letters)))

	for {
		out := make([]byte, 0, codeLength)
		buf := make([]byte, codeLength*2)

		for len(out) < codeLength {
			if _, err := rand.Read(buf); err != nil {
				panic("crypto/rand failure: " + err.Error())
			}
			for _, b := range buf {
				if b <= max {
					out = append(out, letters[int(b)%len(letters)])
					if len(out) == codeLength {
						break
					}
				}
			}
		}
		code := string(out)

		st.mu.Lock()
		_, exists := st.rooms[code]
		st.mu.Unlock()

		if !exists {
			return code
		}
	}
}

// reaperLoop periodically tears down rooms that have been idle longer than
// idleTimeout. Players inside a live room are never reaped individually;
// their records must survive reconnection.
func (st *SessionStore) reaperLoop(idleTimeout time.Duration) {
	ticker := time.NewTicker(idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-idleTimeout)

		st.mu.Lock()
		for code, room := range st.rooms {
			room.mu.RLock()
			last := room.lastActive
			room.mu.RUnlock()

			if last.Before(cutoff) {
				delete(st.rooms, code)
				go room.shutdown()
			}
		}
		st.mu.Unlock()
	}
}
