/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package emit

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"bennypowers.dev/mako/internal/logging"
)

// HMRPath is the WebSocket path clients connect to (spec §6 "HMR wire
// protocol").
const HMRPath = "/__/hmr-ws"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     isLocalOrigin,
}

// isLocalOrigin mirrors serve/websocket.go's origin check: allow same-host
// requests and localhost/127.0.0.0/8, reject everything else, since the dev
// server has no other authentication layer.
func isLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := originURL.Hostname()
	requestHost := r.Host
	if i := strings.IndexByte(requestHost, ':'); i != -1 {
		requestHost = requestHost[:i]
	}
	if host == requestHost || host == "localhost" || host == "127.0.0.1" || host == "::1" || host == "[::1]" {
		return true
	}
	return strings.HasPrefix(host, "127.") || strings.HasSuffix(host, ".localhost")
}

// hashMessage is the one-field wire frame spec §6 defines: {"hash":"<hex>"}.
type hashMessage struct {
	Hash string `json:"hash"`
}

// Hub fans a hash update out to every connected HMR client (spec §6 "HMR
// wire protocol", §4.7 step 6 "publish {hash} to every connected client").
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the request to a WebSocket and registers the
// connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warning("hmr: upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	// Clients never send us anything meaningful; just drain reads so the
	// connection's read deadline/ping-pong machinery keeps working and we
	// notice when it closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends {"hash": hash} to every connected client (spec §6).
func (h *Hub) Broadcast(hash string) {
	data, err := json.Marshal(hashMessage{Hash: hash})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logging.Debug("hmr: write failed, dropping client: %v", err)
			go conn.Close()
			delete(h.clients, conn)
		}
	}
}

// BroadcastFullReload sends a full-reload directive for HMR-kind fatal
// errors (spec §7 "HMR — cycle in new graph, chunk-graph reshape fails").
// Clients treat a missing/empty hash field together with reload=true as a
// hard refresh rather than trying to fetch a hot-update chunk.
func (h *Hub) BroadcastFullReload() {
	data, _ := json.Marshal(struct {
		Reload bool `json:"reload"`
	}{Reload: true})

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			go conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
