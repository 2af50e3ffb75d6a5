/*
Durb is a real-time, two-or-more-player territory-control game server. Players
claim starting nodes on a planar graph, flow juice along directed pipes to
capture neutral and enemy territory, build bridges, and race to either hold
enough capital nodes, eliminate every opponent, or lead on nodes/juice when
the match timer runs out. One process serves exactly one match: the graph is
handed to the engine by an external generation policy (see selectGraph
below), not decided by it.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"math"

	"durb/config"
	"durb/engine"
	"durb/server"
)

var (
	dbg        *bool
	host       *string
	port       *string
	configPath *string
	players    *int
	addr       string
)

// TODO: per 12-factor rules these should come from env/config-map too; KISS for now.
func init() {
	dbg = flag.Bool("debug", false, "debug mode")
	host = flag.String("host", "", "the host ip")
	port = flag.String("port", "8080", "the host port")
	configPath = flag.String("config", "", "path to a match settings yaml file; empty uses built-in defaults")
	players = flag.Int("players", 2, "number of players in the match (2-4)")
	flag.Parse()
	addr = *host + ":" + *port
}

// selectGraph builds the planar graph a match starts from. Graph generation
// is explicitly out of scope for the engine core (see SPEC_FULL.md §1) —
// this is a minimal ring generator, enough to exercise a real
// match end to end, not a design the engine depends on.
func selectGraph(nodeCount int) *engine.Store {
	if *dbg {
		return debugRing(5)
	}
	return debugRing(nodeCount)
}

// debugRing lays n nodes evenly around a circle and links each node i to
// node i+1 (wrapping around), so every node has its two neighbors attached.
// A chord between non-adjacent nodes lies inside the ring and crosses none
// of its edges.
func debugRing(n int) *engine.Store {
	if n < 3 {
		n = 3
	}
	store := engine.NewStore()
	radius := 100.0

	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		store.InsertNode(&engine.Node{
			ID:    engine.NodeID(i),
			X:     radius * math.Cos(angle),
			Y:     radius * math.Sin(angle),
			Juice: 2.0,
		})
	}
	for i := 0; i < n; i++ {
		from := engine.NodeID(i)
		to := engine.NodeID((i + 1) % n)
		if _, err := store.InsertEdge(from, to); err != nil {
			panic(fmt.Sprintf("debugRing: unexpected edge rejection: %v", err))
		}
	}
	return store
}

func loadSettings() (*config.Settings, error) {
	if *configPath == "" {
		return config.Default(), nil
	}
	return config.Load(*configPath)
}

func runApp() error {
	settings, err := loadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	n := *players
	if n < 2 {
		n = 2
	}
	if n > 4 {
		n = 4
	}

	store := selectGraph(n * 4)

	roster := make([]*engine.Player, 0, n)
	colors := []string{"red", "blue", "green", "yellow"}
	for i := 0; i < n; i++ {
		roster = append(roster, &engine.Player{
			ID:    engine.PlayerID(i + 1),
			Color: colors[i%len(colors)],
			Name:  fmt.Sprintf("player-%d", i+1),
		})
	}

	match := engine.NewMatch(settings, store, roster)

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	srv := server.NewServer(addr, match)
	return srv.Serve(appCtx)
}

func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
	}
}
