package engine

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func nodeCountStore(counts map[PlayerID]int) *Store {
	s := NewStore()
	id := NodeID(1)
	for owner, n := range counts {
		for i := 0; i < n; i++ {
			s.InsertNode(&Node{ID: id, X: float64(id), Y: 0, Owner: owner})
			id++
		}
	}
	return s
}

func TestScenarioS5TimerExpiryPicksMostNodesAndEndsMatch(t *testing.T) {
	Convey("Given two players with node counts 7 and 5, a short game duration", t, func() {
		store := nodeCountStore(map[PlayerID]int{1: 7, 2: 5})
		m := newTestMatch(store, 1, 2)
		m.Settings.GameDurationSec = 5
		m.Settings.TickIntervalMS = 100
		m.Settings.GameDuration = 5 * time.Second
		m.Settings.TickInterval = 100 * time.Millisecond

		m.Phase = PhasePlaying
		m.PlayingStartedAtTick = 0

		Convey("At tick 51 the timer fires, the 7-node player wins, and the match ends", func() {
			for i := 0; i < 60 && !m.GameEnded; i++ {
				m.Tick()
			}

			So(m.GameEnded, ShouldBeTrue)
			So(m.WinnerID, ShouldEqual, PlayerID(1))
			So(m.Phase, ShouldEqual, PhaseEnded)
			So(m.TickCount, ShouldEqual, int64(51))

			Convey("Subsequent commands are rejected with a phase error", func() {
				_, err := m.BuildBridge(1, 1, 2, 1e9)
				So(err, ShouldNotBeNil)
				var cmdErr *CommandError
				So(errors.As(err, &cmdErr), ShouldBeTrue)
				So(cmdErr.Kind, ShouldEqual, ErrPhase)
			})
		})
	})
}
