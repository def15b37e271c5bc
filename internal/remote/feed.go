package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/logging"
)

const (
	feedPongWait   = 60 * time.Second
	feedWriteWait  = 10 * time.Second
	feedPingPeriod = 30 * time.Second
)

// FeedURL derives the websocket change feed URL from the service base URL.
func (c *Client) FeedURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// Subscribe opens the change feed. Events are delivered on the returned
// channel until ctx is cancelled or the connection drops; the channel is
// closed then. Reconnecting is the caller's job.
func (c *Client) Subscribe(ctx context.Context) (<-chan Event, error) {
	header := http.Header{}
	if token := c.bearer(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.httpClient.Timeout}
	conn, resp, err := dialer.DialContext(ctx, c.FeedURL(), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, errors.Wrap(errors.ErrUnauthorized, "change feed refused", err)
		}
		return nil, errors.Wrap(errors.ErrRemoteUnavailable, "failed to open change feed", err)
	}

	events := make(chan Event, 16)
	done := make(chan struct{})

	// Closing the connection unblocks ReadMessage when ctx ends.
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	go keepAlive(conn, done)

	go func() {
		defer close(events)
		defer close(done)

		conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(feedPongWait))
			return nil
		})

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logging.Warn("Change feed closed", map[string]interface{}{"error": err.Error()})
				}
				return
			}

			var ev Event
			if err := json.Unmarshal(message, &ev); err != nil || ev.Type == "" {
				logging.Debug("Ignoring malformed feed message", map[string]interface{}{"size": len(message)})
				continue
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// keepAlive pings the server until done closes.
func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		}
	}
}
