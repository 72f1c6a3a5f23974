// Package sse streams analysis and reminder events to browser clients.
package sse

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	// WriteTimeout bounds a single write to a client.
	WriteTimeout = 2 * time.Second
	// KeepAliveInterval is how often an idle stream receives a comment line.
	KeepAliveInterval = 30 * time.Second
)

var errClientClosed = errors.New("sse: client closed")

// Client is one connected event stream.
type Client struct {
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
	ID      string

	writeMu   sync.Mutex
	closed    bool // guarded by writeMu
	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Done) })
}

// Broadcaster fans events out to every connected client.
type Broadcaster struct {
	clients map[string]*Client
	mu      sync.RWMutex
	nextID  int
}

// NewBroadcaster creates a broadcaster with no clients.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]*Client),
	}
}

// AddClient registers w as an event stream.
func (b *Broadcaster) AddClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	id := fmt.Sprintf("client-%d", b.nextID)
	client := &Client{
		ID:      id,
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	b.clients[id] = client
	clientCount := len(b.clients)
	b.mu.Unlock()

	log.Debug().
		Str("clientId", id).
		Int("totalClients", clientCount).
		Msg("SSE client connected")

	return client, nil
}

// RemoveClient unregisters client and waits for an in-flight write to finish.
// Later writes to client are discarded. It is safe to call more than once.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.unregister(client)

	client.writeMu.Lock()
	client.closed = true
	client.writeMu.Unlock()
}

// unregister drops client from the fan-out and signals its stream to end
// without waiting on its writer.
func (b *Broadcaster) unregister(client *Client) {
	b.mu.Lock()
	_, exists := b.clients[client.ID]
	delete(b.clients, client.ID)
	clientCount := len(b.clients)
	b.mu.Unlock()

	client.close()

	if exists {
		log.Debug().
			Str("clientId", client.ID).
			Int("totalClients", clientCount).
			Msg("SSE client disconnected")
	}
}

// Broadcast sends an event named event with data encoded as JSON.
// Clients that fail or time out are removed.
func (b *Broadcaster) Broadcast(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to marshal SSE data")
		return
	}
	b.send(formatEvent(event, payload))
}

func formatEvent(event string, payload []byte) string {
	if event == "" {
		return fmt.Sprintf("data: %s\n\n", payload)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, payload)
}

func (b *Broadcaster) send(message string) {
	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	var (
		wg   sync.WaitGroup
		dead sync.Map
	)
	for _, client := range clients {
		select {
		case <-client.Done:
			continue
		default:
		}
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if !b.writeToClient(c, message) {
				dead.Store(c.ID, c)
			}
		}(client)
	}
	wg.Wait()

	// A timed-out write may still hold the writer. HandleSSE finishes the
	// removal once it observes Done.
	dead.Range(func(_, v any) bool {
		c := v.(*Client)
		b.unregister(c)
		return true
	})
}

// writeToClient reports whether message reached the client in time.
func (b *Broadcaster) writeToClient(client *Client, message string) bool {
	result := make(chan error, 1)
	go func() {
		client.writeMu.Lock()
		defer client.writeMu.Unlock()
		if client.closed {
			result <- errClientClosed
			return
		}
		if _, err := client.Writer.Write([]byte(message)); err != nil {
			result <- err
			return
		}
		client.Flusher.Flush()
		result <- nil
	}()

	select {
	case err := <-result:
		if err != nil {
			log.Debug().
				Str("clientId", client.ID).
				Err(err).
				Msg("Failed to write to SSE client, marking for removal")
			return false
		}
		return true
	case <-time.After(WriteTimeout):
		log.Warn().
			Str("clientId", client.ID).
			Dur("timeout", WriteTimeout).
			Msg("SSE write timed out, marking client for removal")
		return false
	case <-client.Done:
		return true
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// HandleSSE serves an event stream until the request context ends.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	client, err := b.AddClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.RemoveClient(client)

	hello, _ := json.Marshal(map[string]string{"clientId": client.ID})
	if !b.writeToClient(client, formatEvent("connected", hello)) {
		return
	}

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.Done:
			return
		case <-keepAlive.C:
			if !b.writeToClient(client, ": keep-alive\n\n") {
				return
			}
		}
	}
}
