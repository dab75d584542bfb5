// Copyright 2025 CommunityBig
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"time"

	"github.com/google/logger"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 600 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 30 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

type jobStatus struct {
	Input    string  `json:"Input"`
	Status   string  `json:"Status"`
	Fraction float64 `json:"Fraction"`
	ETA      string  `json:"ETA"`
	LastLine string  `json:"LastLine"`
	Outcome  string  `json:"Outcome"`
}

type statusMessage struct {
	Jobs          map[string]jobStatus `json:"Jobs"`
	RefreshNeeded bool                 `json:"RefreshNeeded"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan statusMessage
}

type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound status updates fanned out to clients.
	broadcast chan statusMessage

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client
}

// writePump pumps messages from the hub to the websocket connection.
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		c.hub.unregister <- c
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
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

func (c *Client) readPump() {
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

func newHub() *Hub {
	return &Hub{
		broadcast:  make(chan statusMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			logger.Infof("registered client %#v", client)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				logger.Infof("unregistered client %#v", client)
			}
		case message := <-h.broadcast:
			// drain the queue
			r := message.RefreshNeeded
			jobs := message.Jobs
			ql := len(h.broadcast)
			for i := 0; i < ql; i++ {
				nm := <-h.broadcast
				if nm.RefreshNeeded {
					r = true
				}
				for id, js := range nm.Jobs {
					if jobs == nil {
						jobs = make(map[string]jobStatus)
					}
					jobs[id] = js
				}
			}
			// send only the most relevant message
			message.RefreshNeeded = r
			message.Jobs = jobs
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// notifyJob queues a single job update for broadcast. Never blocks; when the
// queue is full the update is dropped, a later one supersedes it anyway.
func (h *Hub) notifyJob(id string, js jobStatus) {
	select {
	case h.broadcast <- statusMessage{Jobs: map[string]jobStatus{id: js}}:
	default:
	}
}

// notifyRefresh asks connected status pages to reload their job tables.
func (h *Hub) notifyRefresh() {
	select {
	case h.broadcast <- statusMessage{RefreshNeeded: true}:
	default:
	}
}
