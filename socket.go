package main

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// ClientMessage is the inbound envelope for everything a client sends.
type ClientMessage struct {
	Type      string          `json:"type"` // "create", "join", "action"
	GameType  string          `json:"game_type,omitempty"`
	Code      string          `json:"code,omitempty"`
	Name      string          `json:"name,omitempty"`
	AvatarURL string          `json:"avatar_url,omitempty"`
	Settings  Settings        `json:"settings,omitempty"`
	Action    string          `json:"action,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

// trySend delivers a message without blocking; a full buffer drops it.
// Used for direct replies outside the room goroutine, which owns eviction.
func (c *Client) trySend(msg any) {
	select {
	case c.send <- msg:
	default:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "gamenight_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func serveWS(cfg *Config, engine *Engine, store *SessionStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: websocket upgrade: %v", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		go client.writePump()
		client.readPump(cfg, engine, store)
	}
}

func (c *Client) readPump(cfg *Config, engine *Engine, store *SessionStore) {
	var room *Room

	defer func() {
		if room != nil {
			room.deliverLeave(c)
		} else {
			close(c.send)
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "create":
			if room != nil {
				continue
			}
			created, err := engine.CreateSession(msg.GameType, c.playerID, msg.Settings)
			if err != nil {
				c.trySend(ErrorMessage{Type: "error", Message: err.Error()})
				continue
			}
			c.trySend(CreatedMessage{Type: "created", Code: created.sess.Code})
			if created.deliverJoin(c, PlayerInfo{ID: c.playerID, Name: msg.Name, AvatarURL: msg.AvatarURL}) {
				room = created
			}

		case "join":
			if room != nil {
				continue
			}
			code := strings.ToUpper(strings.TrimSpace(msg.Code))
			found, ok := store.Get(code)
			if !ok {
				c.trySend(ErrorMessage{Type: "error", Message: ErrSessionNotFound.Error()})
				continue
			}
			if found.deliverJoin(c, PlayerInfo{ID: c.playerID, Name: msg.Name, AvatarURL: msg.AvatarURL}) {
				room = found
			}

		case "action":
			if room == nil {
				c.trySend(ErrorMessage{Type: "error", Message: ErrSessionNotFound.Error()})
				continue
			}
			room.deliverAction(actionRequest{
				client: c,
				act: Action{
					Type:     msg.Action,
					PlayerID: c.playerID,
					Payload:  msg.Payload,
				},
			})

		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for a session's join URL.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if code == "" {
		http.Error(w, "missing session code", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

//go:embed assets/index.html
var indexHTML []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

// registerGames sets up the game routes:
//   - /play/:code     → HTML client for one session
//   - /play/:code/qr  → PNG QR code for the join URL
//   - /ws             → WebSocket carrying create/join/action events
func registerGames(cfg *Config, engine *Engine, store *SessionStore, mux *httprouter.Router) {
	mux.GET(cfg.prefix+"/play/:code", getIndexHandler(cfg))
	mux.GET(cfg.prefix+"/play/:code/qr", qrHandler)
	mux.GET(cfg.prefix+"/ws", serveWS(cfg, engine, store))
}
