// Package client provides the WebSocket and HTTP clients the TUI uses to
// talk to a running focusd server. Wire types come straight from the
// internal/ws package so the two surfaces cannot drift apart.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/tasksnap/focusd/internal/ws"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

// wsEnvelope is the decode-side view of ws.WSMessage: the payload stays raw
// until the message type selects a concrete struct.
type wsEnvelope struct {
	Type    ws.MessageType  `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// WSClient manages the WebSocket connection to the focusd server.
type WSClient struct {
	url   string
	token string

	mu      sync.Mutex
	writeMu sync.Mutex // serialises all conn writes
	conn    *websocket.Conn
	pingCtx context.CancelFunc // cancels the active ping goroutine
}

// NewWSClient creates a client that connects to the given WebSocket URL.
func NewWSClient(url, token string) *WSClient {
	return &WSClient{url: url, token: token}
}

// --- Bubble Tea messages ---

// WSConnectedMsg is sent when the WebSocket connects.
type WSConnectedMsg struct{}

// WSDisconnectedMsg is sent when the connection drops.
type WSDisconnectedMsg struct{ Err error }

// WSSnapshotMsg delivers a full session snapshot.
type WSSnapshotMsg struct{ Payload ws.SnapshotPayload }

// WSDeltaMsg delivers incremental session updates.
type WSDeltaMsg struct{ Payload ws.DeltaPayload }

// WSCompletionMsg is sent when a session runs down to zero.
type WSCompletionMsg struct{ Payload ws.CompletionPayload }

// WSCancellationMsg is sent when a session is cancelled.
type WSCancellationMsg struct{ Payload ws.CancellationPayload }

// WSAchievementMsg is sent when an achievement unlocks.
type WSAchievementMsg struct{ Payload ws.AchievementUnlockedPayload }

// WSStreakMsg is sent when the daily streak advances.
type WSStreakMsg struct{ Payload ws.StreakPayload }

// WSGardenMsg is sent when the garden grows.
type WSGardenMsg struct{ Payload ws.GardenPayload }

// WSRoomUpdateMsg is sent when a room's occupancy changes.
type WSRoomUpdateMsg struct{ Payload ws.RoomUpdatePayload }

// WSErrorMsg wraps a server-side error.
type WSErrorMsg struct{ Raw json.RawMessage }

// Listen returns a Bubble Tea command that connects and reports the result.
// It retries with exponential backoff until the context is cancelled.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			conn, _, err := websocket.DefaultDialer.Dial(c.dialURL(), nil)
			if err != nil {
				log.Printf("ws dial error: %v (retry in %v)", err, delay)
				time.Sleep(delay)
				delay = min(delay*2, reconnectMaxDelay)
				continue
			}

			// Cancel any previous ping goroutine.
			c.mu.Lock()
			if c.pingCtx != nil {
				c.pingCtx()
			}
			pingCtx, pingCancel := context.WithCancel(ctx)
			c.conn = conn
			c.pingCtx = pingCancel
			c.mu.Unlock()

			go c.pingLoop(pingCtx, conn)

			return WSConnectedMsg{}
		}
	}
}

// ReadLoop returns a Bubble Tea command that reads until a message worth
// dispatching arrives. Start it after receiving WSConnectedMsg and again
// after every dispatched message.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return WSDisconnectedMsg{Err: fmt.Errorf("no connection")}
		}

		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongTimeout))
			return nil
		})
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.conn == conn {
					c.conn = nil
				}
				c.mu.Unlock()
				conn.Close()
				return WSDisconnectedMsg{Err: err}
			}

			var msg wsEnvelope
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}

			if teaMsg := dispatch(msg); teaMsg != nil {
				return teaMsg
			}
		}
	}
}

// pingLoop sends periodic pings on the given connection. It exits when the
// context is cancelled or the connection changes.
func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			cc := c.conn
			c.mu.Unlock()
			if cc != conn {
				return
			}
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// dialURL appends the auth token as a query parameter when one is set.
func (c *WSClient) dialURL() string {
	if c.token == "" {
		return c.url
	}
	sep := "?"
	if strings.Contains(c.url, "?") {
		sep = "&"
	}
	return c.url + sep + "token=" + url.QueryEscape(c.token)
}

func dispatch(msg wsEnvelope) tea.Msg {
	switch msg.Type {
	case ws.MsgSnapshot:
		var p ws.SnapshotPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSSnapshotMsg{Payload: p}
		}
	case ws.MsgDelta:
		var p ws.DeltaPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSDeltaMsg{Payload: p}
		}
	case ws.MsgCompletion:
		var p ws.CompletionPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSCompletionMsg{Payload: p}
		}
	case ws.MsgCancellation:
		var p ws.CancellationPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSCancellationMsg{Payload: p}
		}
	case ws.MsgAchievementUnlocked:
		var p ws.AchievementUnlockedPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSAchievementMsg{Payload: p}
		}
	case ws.MsgStreak:
		var p ws.StreakPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSStreakMsg{Payload: p}
		}
	case ws.MsgGarden:
		var p ws.GardenPayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSGardenMsg{Payload: p}
		}
	case ws.MsgRoomUpdate:
		var p ws.RoomUpdatePayload
		if json.Unmarshal(msg.Payload, &p) == nil {
			return WSRoomUpdateMsg{Payload: p}
		}
	case ws.MsgError:
		return WSErrorMsg{Raw: msg.Payload}
	}
	return nil
}
