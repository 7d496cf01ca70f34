package websocket

import (
	"net/http"
	"time"

	"WardMonitorAPI/internal/alerting"
	"WardMonitorAPI/internal/logger"
	"WardMonitorAPI/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan models.WSMessage
	topics map[string]bool
}

func (c *Client) subscribed(topic string) bool {
	return c.topics[topic]
}

func (c *Client) topicList() []string {
	list := make([]string, 0, len(c.topics))
	for t := range c.topics {
		list = append(list, t)
	}
	return list
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and tears the client down when the
// connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// ServeWs upgrades the request and registers the client. With
// ?subject_id=N the client only receives that subject's topic; otherwise
// it gets the global feed.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, subjectID int, log *logger.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("WS upgrade error: %v", err)
		return
	}

	topics := map[string]bool{}
	if subjectID > 0 {
		topics[alerting.SubjectTopic(subjectID)] = true
	} else {
		topics[alerting.TopicGlobal] = true
	}

	client := &Client{
		id:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		send:   make(chan models.WSMessage, 256),
		topics: topics,
	}

	client.hub.register <- client
	go client.writePump()
	go client.readPump()
}
