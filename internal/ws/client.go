package ws

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"dispatch/internal/relay"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 8192
)

// Client-originated events.
const (
	eventIdentify       = "identify"
	eventJobSubscribe   = "job:subscribe"
	eventJobUnsubscribe = "job:unsubscribe"
	eventLocationUpdate = "driver:location:update"
)

// eventLocation is the server-originated live-location fanout.
const eventLocation = "driver:location"

// Client is one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// guarded by hub.mu
	userID string
	rooms  map[string]struct{}
}

func (c *Client) trySend(msg []byte) {
	select {
	case c.send <- msg:
	default:
		// Slow consumer; drop the connection rather than block the hub.
		select {
		case c.hub.unregister <- c:
		default:
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: read error: %v", err)
			}
			return
		}

		var msg envelope
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("malformed message")
			continue
		}

		if err := c.handleMessage(msg); err != nil {
			c.sendError(err.Error())
		}
	}
}

func (c *Client) handleMessage(msg envelope) error {
	switch msg.Event {
	case eventIdentify:
		var data struct {
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.UserID == "" {
			return errors.New("identify requires user_id")
		}
		c.hub.identify(data.UserID, c)
		return nil

	case eventJobSubscribe:
		jobID, err := jobIDFrom(msg.Data)
		if err != nil {
			return err
		}
		c.hub.joinRoom(jobID, c)
		// A late joiner gets the current position immediately if one is live.
		if c.hub.relay != nil {
			if sample, ok := c.hub.relay.Get(jobID); ok {
				if out, err := marshalEnvelope(eventLocation, locationPayload(sample)); err == nil {
					c.trySend(out)
				}
			}
		}
		return nil

	case eventJobUnsubscribe:
		jobID, err := jobIDFrom(msg.Data)
		if err != nil {
			return err
		}
		c.hub.leaveRoom(jobID, c)
		return nil

	case eventLocationUpdate:
		return c.handleLocationUpdate(msg.Data)

	default:
		return errors.New("unknown event")
	}
}

func (c *Client) handleLocationUpdate(data json.RawMessage) error {
	var update struct {
		JobID     string  `json:"job_id"`
		Lat       float64 `json:"lat"`
		Lng       float64 `json:"lng"`
		Bearing   float64 `json:"bearing"`
		Speed     float64 `json:"speed"`
		Timestamp int64   `json:"timestamp"` // unix millis from the device clock
	}
	if err := json.Unmarshal(data, &update); err != nil || update.JobID == "" {
		return errors.New("location update requires job_id")
	}

	sample := relay.Sample{
		Lat:             update.Lat,
		Lng:             update.Lng,
		Bearing:         update.Bearing,
		Speed:           update.Speed,
		ClientTimestamp: time.UnixMilli(update.Timestamp),
	}

	if c.hub.relay != nil {
		if err := c.hub.relay.Set(update.JobID, sample); err != nil {
			return err
		}
		// Fan out the stamped copy so subscribers see server receive time.
		if stored, ok := c.hub.relay.Get(update.JobID); ok {
			sample = stored
		}
	} else {
		sample.JobID = update.JobID
		sample.ServerReceivedAt = time.Now()
	}

	c.hub.BroadcastToJob(update.JobID, eventLocation, locationPayload(sample))
	return nil
}

func (c *Client) sendError(reason string) {
	if out, err := marshalEnvelope("error", map[string]string{"reason": reason}); err == nil {
		c.trySend(out)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func jobIDFrom(data json.RawMessage) (string, error) {
	var msg struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.JobID == "" {
		return "", errors.New("job_id required")
	}
	return msg.JobID, nil
}

func locationPayload(s relay.Sample) map[string]any {
	return map[string]any{
		"job_id":      s.JobID,
		"lat":         s.Lat,
		"lng":         s.Lng,
		"bearing":     s.Bearing,
		"speed":       s.Speed,
		"timestamp":   s.ClientTimestamp.UnixMilli(),
		"received_at": s.ServerReceivedAt.UnixMilli(),
	}
}
