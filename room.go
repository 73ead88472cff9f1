package main

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"
)

type roomState int

const (
	stateWaiting roomState = iota
	stateAnswering
	stateVoting
	stateEnded
)

// Player holds the data we store server-side for one room member.
type Player struct {
	ID            string
	Name          string
	Score         int
	CurrentAnswer string
	CurrentVote   string
	IsImposter    bool

	client *Client
}

// Room is one isolated game session. All state is guarded by mu, so every
// mutation of a room happens one at a time.
type Room struct {
	mu sync.Mutex

	id         string
	players    []*Player
	state      roomState
	maxPlayers int
	maxRounds  int

	currentRound int
	prompts      []PromptPair

	createdAt  time.Time
	lastActive time.Time
	closed     bool

	store *RoomStore
	cfg   *Config
}

func newRoom(store *RoomStore, id string, maxPlayers, maxRounds int) *Room {
	now := time.Now()
	return &Room{
		id:         id,
		state:      stateWaiting,
		maxPlayers: maxPlayers,
		maxRounds:  maxRounds,
		prompts:    buildPrompts(maxRounds),
		createdAt:  now,
		lastActive: now,
		store:      store,
		cfg:        store.cfg,
	}
}

func (r *Room) rosterLocked() []PlayerInfo {
	players := make([]PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, PlayerInfo{
			ID:    p.ID,
			Name:  p.Name,
			Score: p.Score,
		})
	}
	return players
}

func (r *Room) broadcastLocked(msg any) {
	for _, p := range r.players {
		p.client.trySend(msg)
	}
}

func (r *Room) playerByClientLocked(c *Client) *Player {
	for _, p := range r.players {
		if p.client == c {
			return p
		}
	}
	return nil
}

// join adds a new player to the room. Joins are only accepted while the room
// is still waiting; allowing them mid-round would corrupt the completeness
// checks for the round in flight.
func (r *Room) join(c *Client, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		c.sendError("Player name cannot be empty")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		c.sendError("Room not found")
		return
	}

	if r.state != stateWaiting {
		c.sendError("Game already in progress")
		return
	}

	if len(r.players) >= r.maxPlayers {
		c.sendError("Room is full")
		return
	}

	if r.playerByClientLocked(c) != nil {
		c.sendError("Already in this room")
		return
	}

	r.lastActive = time.Now()

	r.players = append(r.players, &Player{
		ID:     c.playerID,
		Name:   name,
		client: c,
	})

	logf(r.cfg, "ROOMS: Player %q joined %s", name, r.id)

	r.broadcastLocked(PlayerListMessage{
		Type:    "playerJoined",
		Players: r.rosterLocked(),
	})

	if len(r.players) >= 2 {
		r.broadcastLocked(GameReadyMessage{
			Type: "gameReady",
		})
	}
}

// roomData replies with the current roster, to the requesting client only.
func (r *Room) roomData(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.trySend(PlayerListMessage{
		Type:    "playerJoined",
		Players: r.rosterLocked(),
	})
}

// leave removes the player owned by c, if any. Explicit leaves and silent
// disconnects both land here; the departed player simply shrinks the roster
// the round-completion checks run against.
func (r *Room) leave(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	dst := r.players[:0]
	found := false
	var name string

	for _, p := range r.players {
		if p.client == c {
			found = true
			name = p.Name
			continue
		}
		dst = append(dst, p)
	}
	r.players = dst

	if !found {
		return
	}

	r.lastActive = time.Now()

	logf(r.cfg, "ROOMS: Player %q left %s", name, r.id)

	if len(r.players) == 0 {
		r.closed = true
		r.store.remove(r.id)
		logf(r.cfg, "ROOMS: Deleted empty room %s", r.id)
		return
	}

	r.broadcastLocked(PlayerListMessage{
		Type:    "playerLeft",
		Players: r.rosterLocked(),
	})

	// The departure may have completed the round in flight.
	switch r.state {
	case stateAnswering:
		r.checkAnswersLocked()
	case stateVoting:
		r.checkVotesLocked()
	}
}

// start begins play. Only the host (the first player to join) may start,
// and final maxPlayers/rounds overrides are applied here.
func (r *Room) start(c *Client, maxPlayers, rounds int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		c.sendError("Room not found")
		return
	}

	if r.state != stateWaiting {
		c.sendError("Game already in progress")
		return
	}

	player := r.playerByClientLocked(c)
	if player == nil {
		c.sendError("You are not in this room")
		return
	}

	if r.players[0] != player {
		c.sendError("Only the host can start the game")
		return
	}

	if len(r.players) < 2 {
		c.sendError("Need at least 2 players to start")
		return
	}

	if maxPlayers > 0 {
		if maxPlayers < len(r.players) {
			c.sendError("Player cap cannot be below the current player count")
			return
		}
		r.maxPlayers = maxPlayers
	}

	if rounds > 0 && rounds != r.maxRounds {
		r.maxRounds = rounds
		r.prompts = buildPrompts(rounds)
	}

	r.lastActive = time.Now()

	logf(r.cfg, "ROOMS: Started game in %s (%d players, %d rounds)", r.id, len(r.players), r.maxRounds)

	r.startRoundLocked()
}

// randomIndex returns a uniform index in [0, n) using crypto/rand.
func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}

	max := byte(255 - (256 % n))
	var b [1]byte

	for {
		if _, err := rand.Read(b[:]); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		if b[0] <= max {
			return int(b[0]) % n
		}
	}
}

// startRoundLocked advances to the next round: it picks the imposter and
// deals each player their prompt. Delivery is per-player, since the
// imposter's prompt differs from everyone else's.
func (r *Room) startRoundLocked() {
	r.currentRound++

	// Flags are cleared at round end, but clear again so a retained flag
	// can never produce two imposters.
	for _, p := range r.players {
		p.IsImposter = false
	}

	imposter := r.players[randomIndex(len(r.players))]
	imposter.IsImposter = true

	r.state = stateAnswering

	pair := r.prompts[r.currentRound-1]
	limit := int(r.cfg.answerTimeLimit.Seconds())

	for _, p := range r.players {
		question := pair.Normal
		if p.IsImposter {
			question = pair.Imposter
		}

		p.client.trySend(NewRoundMessage{
			Type:        "newRound",
			Question:    question,
			RoundNumber: r.currentRound,
			TimeLimit:   limit,
		})
	}
}

// submitAnswer records a player's answer for the current round.
func (r *Room) submitAnswer(c *Client, answer string) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		c.sendError("Answer cannot be empty")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateAnswering {
		c.sendError("Not accepting answers right now")
		return
	}

	player := r.playerByClientLocked(c)
	if player == nil {
		c.sendError("You are not in this room")
		return
	}

	r.lastActive = time.Now()
	player.CurrentAnswer = answer

	r.checkAnswersLocked()
}

// checkAnswersLocked moves the room to voting once every current player has
// answered. The check always runs against the live roster, never a cached
// count, so leaves and disconnects shrink the denominator.
func (r *Room) checkAnswersLocked() {
	if r.state != stateAnswering || len(r.players) == 0 {
		return
	}

	for _, p := range r.players {
		if p.CurrentAnswer == "" {
			return
		}
	}

	answers := make([]PlayerAnswer, 0, len(r.players))
	for _, p := range r.players {
		answers = append(answers, PlayerAnswer{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Answer:     p.CurrentAnswer,
		})
	}

	r.state = stateVoting

	r.broadcastLocked(AnswersMessage{
		Type:    "allAnswersSubmitted",
		Answers: answers,
	})
}

// submitVote records a player's vote for who they think the imposter is.
// Nothing stops a player voting for themselves; the vote counts like any other.
func (r *Room) submitVote(c *Client, votedID string) {
	if votedID == "" {
		c.sendError("Missing voted player id")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateVoting {
		c.sendError("Not accepting votes right now")
		return
	}

	player := r.playerByClientLocked(c)
	if player == nil {
		c.sendError("You are not in this room")
		return
	}

	r.lastActive = time.Now()
	player.CurrentVote = votedID

	r.checkVotesLocked()
}

// checkVotesLocked scores the round once every current player has voted,
// then either starts the next round or ends the game.
func (r *Room) checkVotesLocked() {
	if r.state != stateVoting || len(r.players) == 0 {
		return
	}

	for _, p := range r.players {
		if p.CurrentVote == "" {
			return
		}
	}

	r.scoreRoundLocked()

	if r.currentRound < r.maxRounds {
		r.startRoundLocked()
	} else {
		r.endGameLocked()
	}
}

// closeAll disconnects every client in this room (used by the reaper).
func (r *Room) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	for _, p := range r.players {
		if p.client.conn != nil {
			_ = p.client.conn.Close()
		}
	}
	r.players = nil
}
