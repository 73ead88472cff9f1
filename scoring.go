package main

// scoresLocked returns the cumulative scoreboard in join order.
func (r *Room) scoresLocked() []PlayerScore {
	scores := make([]PlayerScore, 0, len(r.players))
	for _, p := range r.players {
		scores = append(scores, PlayerScore{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Score:      p.Score,
		})
	}
	return scores
}

// scoreRoundLocked tallies votes against the true imposter, awards a point
// per correct vote (the imposter's own vote counts identically), broadcasts
// the round results, and resets per-round state.
func (r *Room) scoreRoundLocked() {
	var imposterID string
	for _, p := range r.players {
		if p.IsImposter {
			imposterID = p.ID
			break
		}
	}

	// If the imposter left mid-round, nobody scores this round.
	if imposterID != "" {
		for _, p := range r.players {
			if p.CurrentVote == imposterID {
				p.Score++
			}
		}
	}

	r.broadcastLocked(RoundEndMessage{
		Type:     "roundEnd",
		Imposter: imposterID,
		Scores:   r.scoresLocked(),
	})

	for _, p := range r.players {
		p.CurrentAnswer = ""
		p.CurrentVote = ""
		p.IsImposter = false
	}
}

// winnerLocked picks the player with the highest score; ties go to whoever
// joined first.
func (r *Room) winnerLocked() PlayerScore {
	var winner *Player
	for _, p := range r.players {
		if winner == nil || p.Score > winner.Score {
			winner = p
		}
	}

	return PlayerScore{
		PlayerID:   winner.ID,
		PlayerName: winner.Name,
		Score:      winner.Score,
	}
}

func (r *Room) endGameLocked() {
	r.state = stateEnded

	winner := r.winnerLocked()

	logf(r.cfg, "ROOMS: Game over in %s, %q wins with %d points", r.id, winner.PlayerName, winner.Score)

	r.broadcastLocked(GameEndMessage{
		Type:   "gameEnd",
		Winner: winner,
	})
}
