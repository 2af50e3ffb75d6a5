package engine

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"durb/config"
)

func newTestMatch(store *Store, players ...PlayerID) *Match {
	settings := config.Default()
	ps := make([]*Player, 0, len(players))
	for _, id := range players {
		ps = append(ps, &Player{ID: id, Name: "p"})
	}
	return NewMatch(settings, store, ps)
}

func lineStoreS1() *Store {
	s := NewStore()
	s.InsertNode(&Node{ID: 1, X: 0, Y: 0, Juice: 2.0})
	s.InsertNode(&Node{ID: 2, X: 10, Y: 0, Juice: 2.0})
	s.InsertNode(&Node{ID: 3, X: 20, Y: 0, Juice: 2.0})
	s.InsertNode(&Node{ID: 4, X: 30, Y: 0, Juice: 2.0})
	s.InsertNode(&Node{ID: 5, X: 40, Y: 0, Juice: 2.0})
	// Both producer edges point into node 3, per S1's (2->3)/(4->3) toggles.
	s.InsertEdge(1, 2)
	s.InsertEdge(2, 3)
	s.InsertEdge(4, 3)
	s.InsertEdge(4, 5)
	return s
}

func TestScenarioS1NodeThreeFlipsAndAwardsCaptureGold(t *testing.T) {
	Convey("Given a five-node line with two players picking nodes 2 and 4", t, func() {
		store := lineStoreS1()
		m := newTestMatch(store, 1, 2)
		m.Settings.PeaceDurationSec = 0
		m.Settings.PeaceDuration = 0

		So(m.PickStartingNode(1, 2), ShouldBeNil)
		So(m.PickStartingNode(2, 4), ShouldBeNil)
		So(m.Phase, ShouldEqual, PhasePlaying)

		Convey("Once both players toggle their edges into node 3 on, it eventually flips", func() {
			edgeTwoThree := EdgeID(2)
			edgeFourThree := EdgeID(3)
			So(m.ToggleEdge(1, edgeTwoThree), ShouldBeNil)
			So(m.ToggleEdge(2, edgeFourThree), ShouldBeNil)

			var captured *CaptureEvent
			for i := 0; i < 500 && captured == nil; i++ {
				m.Tick()
				for _, c := range m.DrainCaptures() {
					if c.NodeID == 3 {
						cc := c
						captured = &cc
					}
				}
			}

			So(captured, ShouldNotBeNil)
			So(captured.PriorOwner, ShouldEqual, NoOwner)
			So(captured.GoldAwarded, ShouldEqual, m.Settings.NeutralCaptureGold)
			So(store.Nodes[3].Owner, ShouldEqual, captured.NewOwner)
			So(m.Gold(captured.NewOwner), ShouldBeGreaterThanOrEqualTo, captured.GoldAwarded)
		})
	})
}

func TestScenarioS2ExactJuiceAfterOneTick(t *testing.T) {
	Convey("Given a player owning A (juice 100) flowing into neutral B and C (juice 10 each)", t, func() {
		store := NewStore()
		store.InsertNode(&Node{ID: 1, X: 0, Y: 0, Juice: 100, Owner: 1})
		store.InsertNode(&Node{ID: 2, X: 10, Y: 0, Juice: 10})
		store.InsertNode(&Node{ID: 3, X: -10, Y: 0, Juice: 10})
		eAB, _ := store.InsertEdge(1, 2)
		eAC, _ := store.InsertEdge(1, 3)
		eAB.On, eAB.Flowing = true, true
		eAC.On, eAC.Flowing = true, true

		m := newTestMatch(store, 1)
		m.Phase = PhasePlaying

		Convey("After one tick, juice matches the scenario's exact arithmetic", func() {
			m.Tick()

			So(store.Nodes[1].Juice, ShouldAlmostEqual, 99.15, 1e-9)
			So(store.Nodes[2].Juice, ShouldAlmostEqual, 9.5, 1e-9)
			So(store.Nodes[3].Juice, ShouldAlmostEqual, 9.5, 1e-9)
		})
	})
}

func TestScenarioS6PeacePhaseAttackRejected(t *testing.T) {
	Convey("Given node A owned by player 1 with an edge into enemy-owned B", t, func() {
		store := NewStore()
		store.InsertNode(&Node{ID: 1, X: 0, Y: 0, Owner: 1})
		store.InsertNode(&Node{ID: 2, X: 10, Y: 0, Owner: 2})
		e, _ := store.InsertEdge(1, 2)

		m := newTestMatch(store, 1, 2)
		m.Phase = PhasePeace

		Convey("Toggling the edge on is rejected as a phase attack and leaves it off", func() {
			err := m.ToggleEdge(1, e.ID)
			So(err, ShouldNotBeNil)

			var cmdErr *CommandError
			So(errors.As(err, &cmdErr), ShouldBeTrue)
			So(cmdErr.Kind, ShouldEqual, ErrPhaseAttack)
			So(e.On, ShouldBeFalse)
		})
	})
}

func TestR1ToggleEdgeTwiceReturnsToOriginalOnState(t *testing.T) {
	Convey("Given an off edge a player owns the source of", t, func() {
		store := NewStore()
		store.InsertNode(&Node{ID: 1, X: 0, Y: 0, Owner: 1})
		store.InsertNode(&Node{ID: 2, X: 10, Y: 0})
		e, _ := store.InsertEdge(1, 2)

		m := newTestMatch(store, 1)
		m.Phase = PhasePlaying

		Convey("Toggling twice returns it to its original on state", func() {
			originalOn := e.On
			So(m.ToggleEdge(1, e.ID), ShouldBeNil)
			So(m.ToggleEdge(1, e.ID), ShouldBeNil)
			So(e.On, ShouldEqual, originalOn)
		})
	})
}

func TestR2ReverseEdgeTwiceCostsDouble(t *testing.T) {
	Convey("Given a length-10 edge a player owns the source of, with ample gold", t, func() {
		store := NewStore()
		store.InsertNode(&Node{ID: 1, X: 0, Y: 0, Owner: 1})
		store.InsertNode(&Node{ID: 2, X: 10, Y: 0})
		e, _ := store.InsertEdge(1, 2)

		m := newTestMatch(store, 1)
		m.Phase = PhasePlaying
		m.PlayerGold[1] = NewAtomicFloat64(30.0)
		cost := 10.0 * m.Settings.BridgeCostPerUnitDistance

		Convey("Reversing twice restores direction but is charged the distance cost twice", func() {
			originalSource, originalTarget := e.Source, e.Target

			So(m.ReverseEdge(1, e.ID, cost), ShouldBeNil)
			So(e.Source, ShouldEqual, originalTarget)
			goldAfterFirst := m.Gold(1)
			So(goldAfterFirst, ShouldAlmostEqual, 30.0-cost, 1e-9)

			So(m.ReverseEdge(1, e.ID, cost), ShouldBeNil)
			So(e.Source, ShouldEqual, originalSource)
			So(e.Target, ShouldEqual, originalTarget)
			So(m.Gold(1), ShouldAlmostEqual, 30.0-2*cost, 1e-9)
		})

		Convey("A declared cost below the engine's computation is rejected as Bad cost", func() {
			err := m.ReverseEdge(1, e.ID, cost-1)
			So(err, ShouldNotBeNil)

			var cmdErr *CommandError
			So(errors.As(err, &cmdErr), ShouldBeTrue)
			So(cmdErr.Kind, ShouldEqual, ErrEconomy)
			So(e.Source, ShouldEqual, originalSource)
			So(m.Gold(1), ShouldAlmostEqual, 30.0, 1e-9)
		})

		Convey("A declared cost above the engine's computation is accepted, charging only the true cost", func() {
			So(m.ReverseEdge(1, e.ID, cost+5), ShouldBeNil)
			So(m.Gold(1), ShouldAlmostEqual, 30.0-cost, 1e-9)
		})
	})
}

func TestB2BridgeCostExactBoundary(t *testing.T) {
	Convey("Given a player whose gold exactly covers a bridge's distance cost", t, func() {
		store := NewStore()
		store.InsertNode(&Node{ID: 1, X: 0, Y: 0, Owner: 1})
		store.InsertNode(&Node{ID: 2, X: 10, Y: 0})

		m := newTestMatch(store, 1)
		m.Phase = PhasePlaying
		m.Settings.BridgeBuildTicksPerUnit = 0 // isolate the gold check from build-timer bookkeeping

		cost := 10.0 * m.Settings.BridgeCostPerUnitDistance

		Convey("Exactly enough gold succeeds when the declared cost matches", func() {
			m.PlayerGold[1] = NewAtomicFloat64(cost)
			e, err := m.BuildBridge(1, 1, 2, cost)
			So(err, ShouldBeNil)
			So(e, ShouldNotBeNil)
			So(m.Gold(1), ShouldAlmostEqual, 0, 1e-9)
		})

		Convey("One unit less fails with an economy error", func() {
			m.PlayerGold[1] = NewAtomicFloat64(cost - 1)
			_, err := m.BuildBridge(1, 1, 2, cost)
			So(err, ShouldNotBeNil)

			var cmdErr *CommandError
			So(errors.As(err, &cmdErr), ShouldBeTrue)
			So(cmdErr.Kind, ShouldEqual, ErrEconomy)
		})

		Convey("A declared cost below the engine's computation is rejected even with ample gold", func() {
			m.PlayerGold[1] = NewAtomicFloat64(cost)
			_, err := m.BuildBridge(1, 1, 2, cost-1)
			So(err, ShouldNotBeNil)

			var cmdErr *CommandError
			So(errors.As(err, &cmdErr), ShouldBeTrue)
			So(cmdErr.Kind, ShouldEqual, ErrEconomy)
		})
	})
}

func TestDestroyNodeRemovesIncidentEdgesAndChargesGold(t *testing.T) {
	Convey("Given a player-owned node with two incident edges", t, func() {
		store := NewStore()
		store.InsertNode(&Node{ID: 1, X: 0, Y: 0, Owner: 1})
		store.InsertNode(&Node{ID: 2, X: 10, Y: 0})
		store.InsertNode(&Node{ID: 3, X: -10, Y: 0})
		e1, _ := store.InsertEdge(1, 2)
		e2, _ := store.InsertEdge(3, 1)

		m := newTestMatch(store, 1)
		m.Phase = PhasePlaying
		m.PlayerGold[1] = NewAtomicFloat64(DestroyNodeGoldCost)

		Convey("Destroying it removes the node and both edges, charging the flat cost", func() {
			removed, err := m.DestroyNode(1, 1)
			So(err, ShouldBeNil)
			So(removed, ShouldContain, e1.ID)
			So(removed, ShouldContain, e2.ID)

			_, stillExists := store.Nodes[1]
			So(stillExists, ShouldBeFalse)
			_, e1Exists := store.Edges[e1.ID]
			So(e1Exists, ShouldBeFalse)
			_, e2Exists := store.Edges[e2.ID]
			So(e2Exists, ShouldBeFalse)
			So(m.Gold(1), ShouldAlmostEqual, 0, 1e-9)
		})

		Convey("Insufficient gold fails with an economy error", func() {
			m.PlayerGold[1] = NewAtomicFloat64(DestroyNodeGoldCost - 1)
			_, err := m.DestroyNode(1, 1)
			So(err, ShouldNotBeNil)

			var cmdErr *CommandError
			So(errors.As(err, &cmdErr), ShouldBeTrue)
			So(cmdErr.Kind, ShouldEqual, ErrEconomy)
		})
	})
}
