package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGameServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := testConfig()

	mux := httprouter.New()
	registerImposterGame(cfg, "/imposter", mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func dialGame(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/imposter/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func wsSend(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// wsReadUntil reads frames off conn until one of the wanted type arrives.
func wsReadUntil(t *testing.T, conn *websocket.Conn, wantType string) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %q", wantType)

		if msg["type"] == wantType {
			return msg
		}
	}
}

func TestFullGameOverWebSocket(t *testing.T) {
	srv := newGameServer(t)

	alice := dialGame(t, srv)
	bob := dialGame(t, srv)

	// Create a room and have both players join it.
	wsSend(t, alice, ClientMessage{Type: "createRoom", MaxPlayers: 4, Rounds: 3})
	created := wsReadUntil(t, alice, "roomCreated")
	roomID, _ := created["roomId"].(string)
	require.Regexp(t, `^[A-Z0-9]{6}$`, roomID)

	wsSend(t, alice, ClientMessage{Type: "joinRoom", RoomID: roomID, PlayerName: "alice"})
	first := wsReadUntil(t, alice, "playerJoined")
	require.Len(t, first["players"], 1)

	wsSend(t, bob, ClientMessage{Type: "joinRoom", RoomID: roomID, PlayerName: "bob"})

	roster := wsReadUntil(t, alice, "playerJoined")
	players, ok := roster["players"].([]any)
	require.True(t, ok)
	require.Len(t, players, 2)

	ids := make(map[string]string)
	for _, entry := range players {
		p, ok := entry.(map[string]any)
		require.True(t, ok)
		ids[p["name"].(string)] = p["id"].(string)
	}
	require.Len(t, ids, 2)

	// Both players are told the room is ready once two are present.
	wsReadUntil(t, alice, "gameReady")
	wsReadUntil(t, bob, "gameReady")

	wsSend(t, alice, ClientMessage{Type: "startGame", RoomID: roomID})

	for round := 1; round <= 3; round++ {
		aliceRound := wsReadUntil(t, alice, "newRound")
		bobRound := wsReadUntil(t, bob, "newRound")

		assert.EqualValues(t, round, aliceRound["roundNumber"])
		assert.EqualValues(t, round, bobRound["roundNumber"])
		assert.EqualValues(t, 30, aliceRound["timeLimit"])

		// Prompts must differ for exactly one of the two players.
		pair := promptCatalog[(round-1)%len(promptCatalog)]
		aliceQ, _ := aliceRound["question"].(string)
		bobQ, _ := bobRound["question"].(string)
		require.NotEqual(t, aliceQ, bobQ)

		var imposterID string
		switch {
		case aliceQ == pair.Imposter && bobQ == pair.Normal:
			imposterID = ids["alice"]
		case bobQ == pair.Imposter && aliceQ == pair.Normal:
			imposterID = ids["bob"]
		default:
			t.Fatalf("round %d prompts do not match the catalog: %q / %q", round, aliceQ, bobQ)
		}

		wsSend(t, alice, ClientMessage{Type: "submitAnswer", RoomID: roomID, Answer: "something"})
		wsSend(t, bob, ClientMessage{Type: "submitAnswer", RoomID: roomID, Answer: "something else"})

		answers := wsReadUntil(t, alice, "allAnswersSubmitted")
		require.Len(t, answers["answers"], 2)
		wsReadUntil(t, bob, "allAnswersSubmitted")

		// Everyone votes for the true imposter, so everyone scores.
		wsSend(t, alice, ClientMessage{Type: "vote", RoomID: roomID, VotedPlayerID: imposterID})
		wsSend(t, bob, ClientMessage{Type: "vote", RoomID: roomID, VotedPlayerID: imposterID})

		for _, conn := range []*websocket.Conn{alice, bob} {
			end := wsReadUntil(t, conn, "roundEnd")
			assert.Equal(t, imposterID, end["imposter"])

			scores, ok := end["scores"].([]any)
			require.True(t, ok)
			require.Len(t, scores, 2)
			for _, entry := range scores {
				s := entry.(map[string]any)
				assert.EqualValues(t, round, s["score"], "scores increment by one per correct vote")
			}
		}
	}

	// Tied at 3 points each: the first player in join order wins.
	for _, conn := range []*websocket.Conn{alice, bob} {
		end := wsReadUntil(t, conn, "gameEnd")
		winner, ok := end["winner"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, ids["alice"], winner["playerId"])
		assert.EqualValues(t, 3, winner["score"])
	}
}

func TestErrorsGoToOriginatingConnectionOnly(t *testing.T) {
	srv := newGameServer(t)

	alice := dialGame(t, srv)
	bob := dialGame(t, srv)

	wsSend(t, alice, ClientMessage{Type: "createRoom", MaxPlayers: 4, Rounds: 3})
	created := wsReadUntil(t, alice, "roomCreated")
	roomID := created["roomId"].(string)

	wsSend(t, alice, ClientMessage{Type: "joinRoom", RoomID: roomID, PlayerName: "alice"})
	wsReadUntil(t, alice, "playerJoined")

	wsSend(t, bob, ClientMessage{Type: "joinRoom", RoomID: "NOSUCH", PlayerName: "bob"})
	errMsg := wsReadUntil(t, bob, "error")
	assert.Equal(t, "Room not found", errMsg["message"])

	// The room itself is unaffected: alice still sees her roster.
	wsSend(t, alice, ClientMessage{Type: "getRoomData", RoomID: roomID})
	roster := wsReadUntil(t, alice, "playerJoined")
	assert.Len(t, roster["players"], 1)
}

func TestDisconnectActsAsSilentLeave(t *testing.T) {
	srv := newGameServer(t)

	alice := dialGame(t, srv)
	bob := dialGame(t, srv)

	wsSend(t, alice, ClientMessage{Type: "createRoom", MaxPlayers: 4, Rounds: 3})
	created := wsReadUntil(t, alice, "roomCreated")
	roomID := created["roomId"].(string)

	wsSend(t, alice, ClientMessage{Type: "joinRoom", RoomID: roomID, PlayerName: "alice"})
	wsSend(t, bob, ClientMessage{Type: "joinRoom", RoomID: roomID, PlayerName: "bob"})
	wsReadUntil(t, alice, "gameReady")

	require.NoError(t, bob.Close())

	left := wsReadUntil(t, alice, "playerLeft")
	players, ok := left["players"].([]any)
	require.True(t, ok)
	require.Len(t, players, 1)
	assert.Equal(t, "alice", players[0].(map[string]any)["name"])
}

func TestRoomQRCode(t *testing.T) {
	srv := newGameServer(t)

	resp, err := http.Get(srv.URL + "/imposter/qr/ABC123")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}
