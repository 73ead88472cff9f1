package main

import (
	"crypto/rand"
	"sync"
	"time"
)

// RoomStore holds every active room keyed by its shareable code, so each
// code is its own isolated session.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*Room
	cfg   *Config
}

func newRoomStore(cfg *Config) *RoomStore {
	s := &RoomStore{
		rooms: make(map[string]*Room),
		cfg:   cfg,
	}
	if cfg.roomTimeout > 0 {
		go s.reaperLoop()
	}
	return s
}

const roomCodeLength = 6

// randomRoomCode generates a crypto-random uppercase alphanumeric code.
func randomRoomCode(n int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const max = byte(255 - (256 % len(letters)))

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, letters[int(b)%len(letters)])
				if len(out) == n {
					return string(out)
				}
			}
		}
	}

	return string(out)
}

// createRoom builds a fresh room and replies to the creating client with its
// code. Creating a room does not join the creator; they join like anyone else.
func (s *RoomStore) createRoom(c *Client, maxPlayers, rounds int) {
	if maxPlayers <= 0 {
		maxPlayers = s.cfg.defaultMaxPlayers
	}
	if rounds <= 0 {
		rounds = s.cfg.defaultRounds
	}

	if maxPlayers < 2 || rounds < 1 {
		c.sendError("Failed to create room")
		return
	}

	s.mu.Lock()

	var id string
	for {
		id = randomRoomCode(roomCodeLength)
		if _, exists := s.rooms[id]; !exists {
			break
		}
	}

	s.rooms[id] = newRoom(s, id, maxPlayers, rounds)

	s.mu.Unlock()

	logf(s.cfg, "ROOMS: Created room %s (%d players max, %d rounds)", id, maxPlayers, rounds)

	c.trySend(RoomCreatedMessage{
		Type:   "roomCreated",
		RoomID: id,
	})
}

func (s *RoomStore) getRoom(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	return room, ok
}

// remove is called by a room once its last player has left.
func (s *RoomStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, id)
}

// dropClient removes a disconnected client from whichever room holds it.
// The room is not known a priori, so every room is checked.
func (s *RoomStore) dropClient(c *Client) {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	s.mu.Unlock()

	for _, room := range rooms {
		room.leave(c)
	}
}

// reaperLoop periodically removes rooms that have been idle longer than
// the configured timeout.
func (s *RoomStore) reaperLoop() {
	ticker := time.NewTicker(s.cfg.roomTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-s.cfg.roomTimeout)

		// Snapshot first; rooms lock their own mutex before the store's,
		// so holding s.mu across room locks would invert the order.
		s.mu.Lock()
		rooms := make(map[string]*Room, len(s.rooms))
		for id, room := range s.rooms {
			rooms[id] = room
		}
		s.mu.Unlock()

		for id, room := range rooms {
			room.mu.Lock()
			last := room.lastActive
			room.mu.Unlock()

			if !last.Before(cutoff) {
				continue
			}

			s.mu.Lock()
			delete(s.rooms, id)
			s.mu.Unlock()

			logf(s.cfg, "ROOMS: Reaped idle room %s", id)
			go room.closeAll()
		}
	}
}
