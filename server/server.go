package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"durb/engine"
)

// Server exposes one running match over HTTP: a health check, a gold/phase
// status poll, and a per-player websocket upgrade endpoint. One Server
// serves exactly one match (spec §1/§5's "no horizontal scale-out, one
// match per engine instance"); running several matches means running
// several Servers, each its own process or each bound to its own address.
type Server struct {
	addr string
	hub  *Hub
	match *engine.Match
}

// NewServer wires a Server around a match that has not yet started ticking
// — call Serve to both start the match's tick/command loop and begin
// accepting HTTP connections.
func NewServer(addr string, match *engine.Match) *Server {
	return &Server{
		addr:  addr,
		hub:   NewHub(match),
		match: match,
	}
}

// Serve runs the match's hub loop and the HTTP listener until ctx is
// cancelled. The hub loop also stops on its own when the match ends, but
// the HTTP listener keeps serving after that. Routing uses gorilla/mux rather than plain
// http.HandleFunc so each endpoint can declare its own method and path
// pattern independently (the websocket route needs a path variable for the
// player id).
func (s *Server) Serve(ctx context.Context) error {
	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.hub.Run(hubCtx)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.serveHealth).Methods(http.MethodGet)
	router.HandleFunc("/status", s.serveStatus).Methods(http.MethodGet)
	router.HandleFunc("/ws/{playerId:[0-9]+}", s.serveWebsocket).Methods(http.MethodGet)

	httpServer := &http.Server{Addr: s.addr, Handler: router}

	go func() {
		<-hubCtx.Done()
		_ = httpServer.Close()
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// serveStatus polls per-player gold via the lock-free AtomicFloat64 reads
// (engine.Match.Gold), and the match phase, without going through the hub's
// command channel — the one place a second goroutine legitimately touches
// match state concurrently with the hub's own tick/command loop.
func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	gold := make(map[string]float64, len(s.match.Players))
	for _, p := range s.match.Players {
		gold[playerKey(p.ID)] = s.match.Gold(p.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Phase     engine.Phase       `json:"phase"`
		TickCount int64              `json:"tickCount"`
		Gold      map[string]float64 `json:"gold"`
	}{Phase: s.match.Phase, TickCount: s.match.TickCount, Gold: gold})
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	playerIDInt, err := strconv.Atoi(vars["playerId"])
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}
	player := engine.PlayerID(playerIDInt)
	if _, ok := s.match.Players[player]; !ok {
		http.Error(w, "unknown player id", http.StatusNotFound)
		return
	}

	conn, err := newPlayerConn(s.hub, player, w, r)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}

	if err := conn.Sync(r.Context()); err != nil {
		log.Printf("player %d connection closed: %v", player, err)
	}
}
