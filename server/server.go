// Package server streams the progress of a running evolution to websocket
// clients and serves the current champion image over HTTP.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SvenDH/go-circle-evolution/evolution"
	"github.com/SvenDH/go-circle-evolution/render"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	StartedAction  = "evolution.started"
	ImprovedAction = "evolution.improved"
	StoppedAction  = "evolution.stopped"
	StatusAction   = "evolution.status"

	clientBuffer    = 256
	broadcastBuffer = 64
)

type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func (message *Message) encode() []byte {
	data, _ := json.Marshal(message)
	return data
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Status is the state of the run as last reported by the engine.
type Status struct {
	Shape          string  `json:"shape"`
	Genes          int     `json:"genes"`
	MaxGenerations int     `json:"max_generations"`
	Generation     int     `json:"generation"`
	Iteration      int     `json:"iteration"`
	Fitness        float64 `json:"fitness"`
	Previous       float64 `json:"previous,omitempty"`
	Running        bool    `json:"running"`
	Interrupted    bool    `json:"interrupted,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// Hub fans engine events out to connected clients. As an evolution.Reporter
// it never blocks the engine: messages that do not fit the broadcast buffer
// are dropped, and clients that fall behind are disconnected.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	closeOnce  sync.Once

	mutex    sync.Mutex
	status   Status
	champion *render.Raster
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

func (hub *Hub) Run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client] = true
			m := Message{Type: StatusAction, Data: hub.Status()}
			client.send <- m.encode()
		case client := <-hub.unregister:
			hub.remove(client)
		case message := <-hub.broadcast:
			for client := range hub.clients {
				select {
				case client.send <- message:
				default:
					log.Printf("client %s too slow, disconnecting", client.Name)
					hub.remove(client)
				}
			}
		case <-hub.done:
			for client := range hub.clients {
				hub.remove(client)
			}
			return
		}
	}
}

func (hub *Hub) remove(client *Client) {
	if hub.clients[client] {
		delete(hub.clients, client)
		close(client.send)
	}
}

// Close stops Run and disconnects all clients.
func (hub *Hub) Close() {
	hub.closeOnce.Do(func() { close(hub.done) })
}

func (hub *Hub) Status() Status {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	return hub.status
}

// Champion is the phenotype of the current champion, nil before the run starts.
func (hub *Hub) Champion() *render.Raster {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	return hub.champion
}

// Report publishes engine events to connected clients. Progress messages are
// dropped while the broadcast buffer is full; the final stopped message waits
// for room until the hub is closed.
func (hub *Hub) Report(ev evolution.Event) {
	var m Message
	hub.mutex.Lock()
	switch ev := ev.(type) {
	case evolution.Started:
		hub.status = Status{
			Shape:          ev.Shape.String(),
			Genes:          ev.Genes,
			MaxGenerations: ev.MaxGenerations,
			Generation:     ev.Generation,
			Iteration:      ev.Iteration,
			Fitness:        ev.Fitness,
			Running:        true,
		}
		hub.champion = ev.Phenotype
		m = Message{Type: StartedAction, Data: hub.status}
	case evolution.Improved:
		hub.status.Generation = ev.Generation
		hub.status.Iteration = ev.Iteration
		hub.status.Fitness = ev.Fitness
		hub.status.Previous = ev.Previous
		hub.champion = ev.Phenotype
		m = Message{Type: ImprovedAction, Data: hub.status}
	case evolution.Stopped:
		hub.status.Generation = ev.Generation
		hub.status.Iteration = ev.Iterations
		hub.status.Fitness = ev.Fitness
		hub.status.Running = false
		hub.status.Interrupted = ev.Interrupted
		if ev.Err != nil {
			hub.status.Error = ev.Err.Error()
		}
		m = Message{Type: StoppedAction, Data: hub.status}
	default:
		hub.mutex.Unlock()
		return
	}
	hub.mutex.Unlock()

	if m.Type == StoppedAction {
		select {
		case hub.broadcast <- m.encode():
		case <-hub.done:
		}
		return
	}
	select {
	case hub.broadcast <- m.encode():
	default:
		evolution.Logger().Debug("progress message dropped", "type", m.Type)
	}
}

type Client struct {
	Name string
	conn *websocket.Conn
	hub  *Hub
	send chan []byte
}

func newClient(conn *websocket.Conn, hub *Hub, name string) *Client {
	return &Client{
		Name: name,
		conn: conn,
		hub:  hub,
		send: make(chan []byte, clientBuffer),
	}
}

// readPump only keeps the connection alive; clients have nothing to say.
func (client *Client) readPump() {
	defer func() {
		select {
		case client.hub.unregister <- client:
		case <-client.hub.done:
		}
		client.conn.Close()
	}()
	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error { client.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("unexpected close error: %v", err)
			}
			break
		}
	}
}

func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	user, _ := r.Context().Value(UserContextKey).(string)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	client := newClient(conn, hub, user)

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}
