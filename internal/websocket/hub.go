package websocket

import (
	"context"

	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"
)

type publication struct {
	topic string
	msg   models.WSMessage
}

// Hub routes messages to dashboard clients by topic. A client watching a
// single bed subscribes to its subject topic; the ward overview screen
// subscribes to the global topic. Publish never blocks the caller: the
// evaluation pipeline fires and forgets, and a saturated hub drops the
// message rather than stalling ingest.
//
// The clients map is owned exclusively by the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	publish    chan publication
	register   chan *Client
	unregister chan *Client
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		publish:    make(chan publication, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		log:        log,
	}
}

// Run drives the hub until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("WebSocket hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Info("WebSocket hub shutting down...")
			return
		case client := <-h.register:
			h.clients[client] = true
			h.log.Info("WS client %s connected (topics: %v). Total: %d",
				client.id, client.topicList(), len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case pub := <-h.publish:
			for client := range h.clients {
				if !client.subscribed(pub.topic) {
					continue
				}
				select {
				case client.send <- pub.msg:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Publish queues a message for every client subscribed to the topic.
// Drops the message when the hub's queue is full.
func (h *Hub) Publish(topic string, msg models.WSMessage) {
	select {
	case h.publish <- publication{topic: topic, msg: msg}:
	default:
		h.log.Warn("WS publish queue full, dropping message for topic %s", topic)
	}
}
