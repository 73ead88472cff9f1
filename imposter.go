// Imposter Party Game
//
// Players join a shared room and each round receive a prompt to answer.
// One player per round — the imposter — secretly receives a different prompt.
// Once every answer is in, the answers are revealed and everyone votes on who
// they think the imposter was. Guessing right earns a point, and after the
// final round the highest score wins.
//
// Features:
// - Single WebSocket endpoint: /path/ws; all game events flow over it as JSON
// - Rooms identified by shareable 6-character uppercase codes, collision-checked
// - First player to join a room is the host and controls game start
// - Per-player round prompts: the imposter's differs from everyone else's
// - Disconnects are treated as silent leaves; empty rooms are deleted
// - Rooms auto-reaped after a configurable idle timeout
// - In-browser QR code to share a room's join URL, backed by go-qrcode

package main

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type          string `json:"type"`                    // "createRoom", "joinRoom", "getRoomData", "leaveRoom", "startGame", "submitAnswer", "vote"
	RoomID        string `json:"roomId,omitempty"`        // all but createRoom
	PlayerName    string `json:"playerName,omitempty"`    // joinRoom
	MaxPlayers    int    `json:"maxPlayers,omitempty"`    // createRoom / startGame
	Rounds        int    `json:"rounds,omitempty"`        // createRoom / startGame
	Answer        string `json:"answer,omitempty"`        // submitAnswer
	VotedPlayerID string `json:"votedPlayerId,omitempty"` // vote
}

// RoomCreatedMessage replies to the creating client with the shareable code.
type RoomCreatedMessage struct {
	Type   string `json:"type"` // "roomCreated"
	RoomID string `json:"roomId"`
}

// PlayerInfo is the per-player slice of the room roster.
type PlayerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// PlayerListMessage carries the current roster; sent as "playerJoined" or
// "playerLeft" depending on what changed.
type PlayerListMessage struct {
	Type    string       `json:"type"`
	Players []PlayerInfo `json:"players"`
}

// GameReadyMessage tells a room it has enough players to start.
type GameReadyMessage struct {
	Type string `json:"type"` // "gameReady"
}

// NewRoundMessage is sent per-player; the imposter's question differs.
type NewRoundMessage struct {
	Type        string `json:"type"` // "newRound"
	Question    string `json:"question"`
	RoundNumber int    `json:"roundNumber"`
	TimeLimit   int    `json:"timeLimit"` // seconds
}

// PlayerAnswer pairs a player with their submitted answer.
type PlayerAnswer struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Answer     string `json:"answer"`
}

// AnswersMessage reveals every answer once the round is complete.
type AnswersMessage struct {
	Type    string         `json:"type"` // "allAnswersSubmitted"
	Answers []PlayerAnswer `json:"answers"`
}

// PlayerScore pairs a player with their cumulative score.
type PlayerScore struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
}

// RoundEndMessage reveals the imposter and the updated scores.
type RoundEndMessage struct {
	Type     string        `json:"type"` // "roundEnd"
	Imposter string        `json:"imposter"`
	Scores   []PlayerScore `json:"scores"`
}

// GameEndMessage announces the winner after the final round.
type GameEndMessage struct {
	Type   string      `json:"type"` // "gameEnd"
	Winner PlayerScore `json:"winner"`
}

// ErrorMessage is sent only to the client whose request failed.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

// trySend queues msg for delivery, dropping the connection if the client
// cannot keep up.
func (c *Client) trySend(msg any) {
	select {
	case c.send <- msg:
	default:
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

func (c *Client) sendError(text string) {
	c.trySend(ErrorMessage{
		Type:    "error",
		Message: text,
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWSForStore(cfg *Config, store *RoomStore) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: WebSocket upgrade from %s failed: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 32),
			playerID: uuid.NewString(),
		}

		go client.writePump()
		client.readPump(cfg, store)
	}
}

func (c *Client) readPump(cfg *Config, store *RoomStore) {
	defer func() {
		store.dropClient(c)
		_ = c.conn.Close()
		close(c.send)
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		if msg.Type == "createRoom" {
			store.createRoom(c, msg.MaxPlayers, msg.Rounds)
			continue
		}

		roomID := strings.ToUpper(strings.TrimSpace(msg.RoomID))
		if roomID == "" {
			c.sendError("Missing room id")
			continue
		}

		room, ok := store.getRoom(roomID)
		if !ok {
			c.sendError("Room not found")
			continue
		}

		switch msg.Type {
		case "joinRoom":
			room.join(c, msg.PlayerName)
		case "getRoomData":
			room.roomData(c)
		case "leaveRoom":
			room.leave(c)
		case "startGame":
			room.start(c, msg.MaxPlayers, msg.Rounds)
		case "submitAnswer":
			room.submitAnswer(c, msg.Answer)
		case "vote":
			room.submitVote(c, msg.VotedPlayerID)
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

// QR handler: generates a PNG QR code for a room's join URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("roomid")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../qr/:roomid; strip the "/qr/:roomid" suffix to get the game path.
	path := strings.TrimSuffix(r.URL.Path, "/qr/"+roomID)

	url := scheme + "://" + r.Host + path + "/" + roomID

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// registerImposterGame sets up routes so that:
//   - $path/ws           → WebSocket carrying all game events
//   - $path/qr/:roomid   → PNG QR code linking to that room
func registerImposterGame(cfg *Config, path string, mux *httprouter.Router) {
	store := newRoomStore(cfg)

	mux.GET(cfg.prefix+path+"/ws", serveWSForStore(cfg, store))

	mux.GET(cfg.prefix+path+"/qr/:roomid", qrHandler)
}
