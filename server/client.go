package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"durb/engine"
)

// Per-connection timing: a player connection pings on the same cadence
// regardless of the match's own tick rate, since liveness detection and
// gameplay pacing are unrelated concerns.
const (
	writeWait        = 1 * time.Second
	maxMessageSize    = 8192
	pingResolution   = time.Millisecond * 500
	pongWait         = pingResolution * 4
	closeGracePeriod = 10 * time.Second
)

var upgrader = websocket.Upgrader{}

// ErrPongDeadlineExceeded signals that a connection missed too many pongs
// and should be torn down.
var ErrPongDeadlineExceeded = errors.New("client disconnect, pong deadline exceeded")

// playerConn is one player's websocket, bound to a PlayerID and a Hub. It
// reads inbound command frames and forwards them to the hub's single
// goroutine (never touching Match directly), and exposes send for the hub
// to push outbound messages back out over the wire.
type playerConn struct {
	player  engine.PlayerID
	hub     *Hub
	ws      *websock
	outbound chan interface{}
}

// newPlayerConn upgrades an HTTP request to a websocket and wraps it for a
// given player. Call Sync to start its read/ping/publish goroutines.
func newPlayerConn(hub *Hub, player engine.PlayerID, w http.ResponseWriter, r *http.Request) (*playerConn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}
	ws.SetReadLimit(maxMessageSize)

	return &playerConn{
		player:   player,
		hub:      hub,
		ws:       newWebSocket(ws),
		outbound: make(chan interface{}, 64),
	}, nil
}

// send queues an outbound message, dropping it if the connection's buffer
// is full rather than blocking the hub's single goroutine on a slow client.
func (conn *playerConn) send(msg interface{}) {
	select {
	case conn.outbound <- msg:
	default:
		// Buffer full: the connection is not keeping up. Dropping here
		// (rather than blocking) protects the hub loop; the next tick
		// message will still carry authoritative state.
	}
}

// Sync runs the connection's read pump, ping/pong liveness check, and
// outbound publisher concurrently, tearing all three down together on the
// first error.
func (conn *playerConn) Sync(ctx context.Context) error {
	conn.hub.Register(conn)
	defer conn.hub.Unregister(conn)
	defer conn.ws.Close()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return conn.readCommands(groupCtx) })
	group.Go(func() error { return conn.pingPong(groupCtx) })
	group.Go(func() error { return conn.publish(groupCtx) })
	return group.Wait()
}

func (conn *playerConn) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	conn.ws.Conn().SetPongHandler(func(_ string) error {
		pong <- struct{}{}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := conn.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (conn *playerConn) ping(ctx context.Context) error {
	return conn.ws.Write(ctx, func(ws *websocket.Conn) error {
		if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			if isUnexpectedClose(err) {
				return fmt.Errorf("ping failed: %w", err)
			}
		}
		return nil
	})
}

// readCommands decodes inbound JSON envelopes and forwards each to the
// hub's command queue. A malformed envelope ends the connection, same as a
// websocket read error would — the rest of the pipeline assumes every
// queued command is well-formed.
func (conn *playerConn) readCommands(ctx context.Context) error {
	for {
		var envelope inboundEnvelope
		err := conn.ws.Read(ctx, func(ws *websocket.Conn) error {
			return ws.ReadJSON(&envelope)
		})
		if err != nil {
			return err
		}
		if envelope.Type == "" {
			continue
		}
		conn.hub.Submit(conn.player, envelope.Type, envelope.Payload)
	}
}

func (conn *playerConn) publish(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-conn.outbound:
			if !ok {
				return nil
			}
			err := conn.ws.Write(ctx, func(ws *websocket.Conn) error {
				if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return fmt.Errorf("failed to set deadline: %w", err)
				}
				if err := ws.WriteJSON(msg); err != nil && isUnexpectedClose(err) {
					return fmt.Errorf("publish failed: %w", err)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
	}
}

func isUnexpectedClose(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// websock serializes concurrent reads/writes to a *websocket.Conn, since
// gorilla/websocket permits at most one reader and one writer at a time.
type websock struct {
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

func (sock *websock) Conn() *websocket.Conn { return sock.ws }

func (sock *websock) Close() {
	sock.readSem <- struct{}{}
	sock.writeSem <- struct{}{}

	_ = sock.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = sock.ws.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGracePeriod)
	sock.ws.Close()
}

const sockOpTimeout = time.Second

// ErrSockCongestion indicates too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

func (sock *websock) Read(ctx context.Context, readFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	case <-time.After(sockOpTimeout):
		return ErrSockCongestion
	}
}

func (sock *websock) Write(ctx context.Context, writeFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(sockOpTimeout):
		return ErrSockCongestion
	}
}
