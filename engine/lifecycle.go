package engine

// advanceFromPicking transitions picking -> peace once every player has
// picked a starting node. If PeaceDuration is zero, it falls straight
// through to playing (no peace grace period configured).
func (m *Match) advanceFromPicking() {
	for _, p := range m.Players {
		if !m.PlayersWhoPicked[p.ID] {
			return
		}
	}

	m.PeaceStartedAtTick = m.TickCount
	if m.Settings.PeaceDuration <= 0 {
		m.Phase = PhasePlaying
		m.PlayingStartedAtTick = m.TickCount
		return
	}
	m.Phase = PhasePeace
}

// checkPeaceExpiry transitions peace -> playing once PeaceDuration worth of
// ticks have elapsed. Called once per tick at the start of checkVictory, so
// peace never outlives its configured grace period.
func (m *Match) checkPeaceExpiry() {
	if m.Phase != PhasePeace {
		return
	}
	elapsedTicks := m.TickCount - m.PeaceStartedAtTick
	elapsedSeconds := float64(elapsedTicks) * m.Settings.TickInterval.Seconds()
	if elapsedSeconds >= m.Settings.PeaceDuration.Seconds() {
		m.Phase = PhasePlaying
		m.PlayingStartedAtTick = m.TickCount
	}
}

// checkVictory runs the ordered victory checks from spec §4.3 step 8:
// capital victory, then zero-nodes elimination, then timer expiry. The
// first positive outcome sets phase=ended and records winner_id.
func (m *Match) checkVictory() {
	m.checkPeaceExpiry()

	if m.GameEnded {
		return
	}

	if m.checkCapitalVictory() {
		return
	}
	if m.checkZeroNodesElimination() {
		return
	}
	if m.checkTimerExpiry() {
		return
	}
}

func (m *Match) checkCapitalVictory() bool {
	counts := m.capitalCountsByOwner()
	for _, id := range m.sortedPlayerIDs() {
		if counts[id] >= m.Settings.CapitalWinCount {
			m.endMatch(id)
			return true
		}
	}
	return false
}

// checkZeroNodesElimination: if exactly two players remain, the surviving
// player wins outright. With more than two, the zero-node player is
// eliminated and the match continues.
func (m *Match) checkZeroNodesElimination() bool {
	if m.Phase != PhasePlaying {
		return false
	}

	counts := m.nodeCountsByOwner()
	active := 0
	for _, id := range m.sortedPlayerIDs() {
		if !m.EliminatedPlayers[id] {
			active++
		}
	}

	for _, id := range m.sortedPlayerIDs() {
		if m.EliminatedPlayers[id] {
			continue
		}
		if counts[id] != 0 {
			continue
		}

		if active <= 2 {
			for _, other := range m.sortedPlayerIDs() {
				if other != id && !m.EliminatedPlayers[other] {
					m.endMatch(other)
					return true
				}
			}
		}

		m.EliminatedPlayers[id] = true
		m.PendingEliminations = append(m.PendingEliminations, EliminationEvent{PlayerID: id})
		active--
	}

	return m.GameEnded
}

func (m *Match) checkTimerExpiry() bool {
	if m.Phase != PhasePlaying || m.PlayingStartedAtTick < 0 {
		return false
	}
	elapsedTicks := m.TickCount - m.PlayingStartedAtTick
	elapsedSeconds := float64(elapsedTicks) * m.Settings.TickInterval.Seconds()
	if elapsedSeconds < m.Settings.GameDuration.Seconds() {
		return false
	}

	counts := m.nodeCountsByOwner()
	juiceSums := m.juiceSumsByOwner()

	var winner PlayerID
	bestNodes := -1
	bestJuice := -1.0
	for _, id := range m.sortedPlayerIDs() {
		if m.EliminatedPlayers[id] {
			continue
		}
		nodes := counts[id]
		juice := juiceSums[id]
		if nodes > bestNodes || (nodes == bestNodes && juice > bestJuice) {
			bestNodes = nodes
			bestJuice = juice
			winner = id
		}
	}
	if winner == NoOwner {
		return false
	}

	m.endMatch(winner)
	return true
}

func (m *Match) juiceSumsByOwner() map[PlayerID]float64 {
	sums := make(map[PlayerID]float64)
	for _, id := range m.Store.SortedNodeIDs() {
		n := m.Store.Nodes[id]
		if n.Owner != NoOwner {
			sums[n.Owner] += n.Juice
		}
	}
	return sums
}

func (m *Match) endMatch(winner PlayerID) {
	m.GameEnded = true
	m.WinnerID = winner
	m.Phase = PhaseEnded
}
