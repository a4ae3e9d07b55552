// Knowr
//
// One phone, passed around the table. One player is the target and secretly
// picks one of two options; everybody else, one at a time, guesses what the
// target picked. Correct guesses score a point.
//
// Features:
// - A single game session per process, owned by one Hub goroutine
// - Every intent from the browser is applied in arrival order by Hub.run
// - The browser presenter talks to the hub over one WebSocket: /knowr/ws
// - After every change the hub pushes the derived view to all open pages
// - Players, target and scores are saved to SQLite and restored on start
// - Rounds never resume after a restart; the game always reopens in setup
// - Final standings are also available as a plain page: /knowr/standings
// - QR code of the game URL, for opening it on the phone: /knowr/qr

package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Seednode/knowr/games/knowr"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`                // see Hub.apply
	Name     string `json:"name,omitempty"`      // add_player
	PlayerID string `json:"player_id,omitempty"` // remove_player / select_target
	Choice   string `json:"choice,omitempty"`    // pick / guess
}

// ViewMessage carries everything the presenter draws.
type ViewMessage struct {
	Type string     `json:"type"` // "view"
	View knowr.View `json:"view"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
}

type intentRequest struct {
	client *Client
	msg    ClientMessage
}

// Hub owns the session. Only run touches it, so intents never overlap.
type Hub struct {
	session *knowr.Session
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	intents  chan intentRequest
	views    chan chan knowr.View

	done chan struct{}
}

func newHub(session *knowr.Session) *Hub {
	return &Hub{
		session:  session,
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		intents:  make(chan intentRequest),
		views:    make(chan chan knowr.View),
		done:     make(chan struct{}),
	}
}

func (h *Hub) run(ctx context.Context, cfg *Config) {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = true
			logf(cfg, "GAMES: Presenter connected (%d open)", len(h.clients))

			h.sendLocked(c, ViewMessage{Type: "view", View: h.session.View()})

		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case ir := <-h.intents:
			if h.apply(cfg, ir.msg) {
				h.broadcastViewLocked()
			}

		case reply := <-h.views:
			reply <- h.session.View()
		}
	}
}

// apply runs one intent against the session and reports whether anything
// changed. Unknown or invalid intents are ignored.
func (h *Hub) apply(cfg *Config, msg ClientMessage) bool {
	s := h.session
	choice := knowr.Choice(strings.ToUpper(msg.Choice))

	var changed bool

	switch msg.Type {
	case "add_player":
		changed = s.AddPlayer(msg.Name)
		if changed {
			logf(cfg, "GAMES: Player %q joined", strings.TrimSpace(msg.Name))
		}
	case "remove_player":
		changed = s.RemovePlayer(msg.PlayerID)
		if changed {
			logf(cfg, "GAMES: Player %s removed", msg.PlayerID)
		}
	case "select_target":
		changed = s.SelectTarget(msg.PlayerID)
	case "start_game":
		changed = s.StartGame()
	case "ack_target":
		changed = s.AcknowledgeTargetHandoff()
	case "pick":
		changed = s.Pick(choice)
	case "ack_guesser":
		changed = s.AcknowledgeGuesserHandoff()
	case "guess":
		changed = s.SubmitGuess(choice)
	case "advance_round":
		changed = s.AdvanceRound()
	case "return_to_setup":
		changed = s.ReturnToSetup()
	case "reset_scores":
		changed = s.ResetScores()
	case "new_game":
		changed = s.NewGame()
	default:
		return false
	}

	if changed {
		logf(cfg, "GAMES: %s -> %s (round %d/%d)", msg.Type, s.Phase(), s.Round(), s.MaxRounds())
	}

	return changed
}

// sendLocked must only be called from run.
func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastViewLocked() {
	msg := ViewMessage{Type: "view", View: h.session.View()}

	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// closeAll disconnects all clients (used on shutdown).
func (h *Hub) closeAll() {
	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

// view asks the hub for the current view.
func (h *Hub) view(ctx context.Context) (knowr.View, bool) {
	reply := make(chan knowr.View, 1)

	select {
	case h.views <- reply:
	case <-h.done:
		return knowr.View{}, false
	case <-ctx.Done():
		return knowr.View{}, false
	}

	select {
	case v := <-reply:
		return v, true
	case <-ctx.Done():
		return knowr.View{}, false
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(cfg *Config, hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			errorf("upgrade: %v", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 8),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.intents <- intentRequest{client: c, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func serveView(cfg *Config, hub *Hub, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		v, ok := hub.view(r.Context())
		if !ok {
			http.Error(w, "game unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(v); err != nil {
			errs <- err
		}
	}
}

// QR handler: generates a PNG QR code for the game URL using go-qrcode.
func qrHandler(cfg *Config, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := cfg.scheme()
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

// ---- Static file paths ----

//go:embed knowr/index.html
var indexHTML []byte

//go:embed knowr/app.css
var knowrCSS []byte

//go:embed knowr/app.js
var knowrJS []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Expires", time.Now().UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(indexHTML)
	}
}

// registerKnowrGame sets up routes so that:
//   - $path            → HTML presenter
//   - $path/ws         → WebSocket for intents and views
//   - $path/view.json  → current view as JSON
//   - $path/standings  → standings page
//   - $path/qr         → PNG QR code for the game URL
func registerKnowrGame(cfg *Config, path string, hub *Hub, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+path, getIndexHandler(cfg))

	mux.GET(cfg.prefix+"/assets/knowr/app.css", serveEmbedded(cfg, "Stylesheet", "text/css; charset=utf-8", knowrCSS, errs))
	mux.GET(cfg.prefix+"/assets/knowr/app.js", serveEmbedded(cfg, "Script", "application/javascript; charset=utf-8", knowrJS, errs))

	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, hub))
	mux.GET(cfg.prefix+path+"/view.json", serveView(cfg, hub, errs))
	mux.GET(cfg.prefix+path+"/standings", serveStandings(cfg, hub, errs))
	mux.GET(cfg.prefix+path+"/qr", qrHandler(cfg, path))
}
