package engine

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func newTestStore() *Store {
	s := NewStore()
	s.InsertNode(&Node{ID: 1, X: 0, Y: 0})
	s.InsertNode(&Node{ID: 2, X: 10, Y: 0})
	s.InsertNode(&Node{ID: 3, X: 20, Y: 0})
	return s
}

func TestStoreInsertEdge(t *testing.T) {
	Convey("Given a store with three nodes", t, func() {
		s := newTestStore()

		Convey("Inserting an edge attaches it to both endpoints (I1)", func() {
			e, err := s.InsertEdge(1, 2)
			So(err, ShouldBeNil)
			So(e.ID, ShouldEqual, EdgeID(1))
			So(s.Nodes[1].AttachedEdgeIDs, ShouldResemble, []EdgeID{1})
			So(s.Nodes[2].AttachedEdgeIDs, ShouldResemble, []EdgeID{1})
		})

		Convey("A duplicate edge in either direction is rejected (I4)", func() {
			_, err := s.InsertEdge(1, 2)
			So(err, ShouldBeNil)

			_, err = s.InsertEdge(1, 2)
			So(err, ShouldNotBeNil)

			_, err = s.InsertEdge(2, 1)
			So(err, ShouldNotBeNil)
		})

		Convey("A self-loop is rejected", func() {
			_, err := s.InsertEdge(1, 1)
			So(err, ShouldNotBeNil)
		})

		Convey("NextEdgeID is one greater than the current max", func() {
			e1, _ := s.InsertEdge(1, 2)
			e2, _ := s.InsertEdge(2, 3)
			So(e2.ID, ShouldEqual, e1.ID+1)
			So(s.NextEdgeID(), ShouldEqual, e2.ID+1)
		})
	})
}

func TestStoreRemoveNode(t *testing.T) {
	Convey("Given a store with a node that has two incident edges", t, func() {
		s := newTestStore()
		e1, _ := s.InsertEdge(1, 2)
		e2, _ := s.InsertEdge(2, 3)

		Convey("Removing node 2 cascades both incident edges", func() {
			removed := s.RemoveNode(2)
			So(removed, ShouldContain, e1.ID)
			So(removed, ShouldContain, e2.ID)
			So(s.Edges, ShouldBeEmpty)
			So(s.Nodes[1].AttachedEdgeIDs, ShouldBeEmpty)
			So(s.Nodes[3].AttachedEdgeIDs, ShouldBeEmpty)
		})
	})
}

func TestStoreSortedIteration(t *testing.T) {
	Convey("Given nodes inserted out of id order", t, func() {
		s := NewStore()
		s.InsertNode(&Node{ID: 3})
		s.InsertNode(&Node{ID: 1})
		s.InsertNode(&Node{ID: 2})

		Convey("SortedNodeIDs returns ascending order", func() {
			So(s.SortedNodeIDs(), ShouldResemble, []NodeID{1, 2, 3})
		})
	})
}
