package ws

import (
	"encoding/json"
	"testing"
	"time"

	"dispatch/internal/relay"
)

// newTestClient builds a client that is registered directly, bypassing the
// connection pumps so delivery can be observed on the send channel.
func newTestClient(h *Hub, buffer int) *Client {
	c := &Client{
		hub:   h,
		send:  make(chan []byte, buffer),
		rooms: make(map[string]struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func receive(t *testing.T, c *Client) envelope {
	t.Helper()
	select {
	case msg := <-c.send:
		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("malformed envelope: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return envelope{}
	}
}

func TestHub_BroadcastGlobal(t *testing.T) {
	h := NewHub(nil)
	a := newTestClient(h, 4)
	b := newTestClient(h, 4)

	h.BroadcastGlobal("job:requested", map[string]string{"job_id": "j1"})

	for _, c := range []*Client{a, b} {
		env := receive(t, c)
		if env.Event != "job:requested" {
			t.Errorf("expected job:requested, got %s", env.Event)
		}
	}
}

func TestHub_RoomScoping(t *testing.T) {
	h := NewHub(nil)
	inside := newTestClient(h, 4)
	outside := newTestClient(h, 4)

	h.joinRoom("j1", inside)

	h.BroadcastToJob("j1", "job:accepted", map[string]string{"job_id": "j1"})

	env := receive(t, inside)
	if env.Event != "job:accepted" {
		t.Errorf("expected job:accepted, got %s", env.Event)
	}
	if len(outside.send) != 0 {
		t.Error("client outside the room received a room broadcast")
	}

	h.leaveRoom("j1", inside)
	h.BroadcastToJob("j1", "job:arrived", nil)
	if len(inside.send) != 0 {
		t.Error("client received a broadcast after leaving the room")
	}
	if h.RoomSize("j1") != 0 {
		t.Errorf("expected empty room, got %d members", h.RoomSize("j1"))
	}
}

func TestHub_UserTargeting(t *testing.T) {
	h := NewHub(nil)
	tech := newTestClient(h, 4)
	other := newTestClient(h, 4)

	h.identify("tech-1", tech)
	h.identify("tech-2", other)

	h.BroadcastToUser("tech-1", "job:cancelled", map[string]string{"job_id": "j1"})

	env := receive(t, tech)
	if env.Event != "job:cancelled" {
		t.Errorf("expected job:cancelled, got %s", env.Event)
	}
	if len(other.send) != 0 {
		t.Error("wrong user received a targeted broadcast")
	}

	// Re-identify moves the binding.
	h.identify("tech-3", tech)
	h.BroadcastToUser("tech-1", "job:completed", nil)
	if len(tech.send) != 0 {
		t.Error("client received a broadcast for a previous identity")
	}
}

func TestHub_RemoveClientCleansBindings(t *testing.T) {
	h := NewHub(nil)
	c := newTestClient(h, 4)

	h.joinRoom("j1", c)
	h.identify("tech-1", c)

	h.removeClient(c)

	if h.RoomSize("j1") != 0 {
		t.Error("room binding survived client removal")
	}
	h.BroadcastToUser("tech-1", "job:completed", nil)
	// Channel is closed after removal; a zero-length read confirms nothing
	// was queued before the close.
	if _, ok := <-c.send; ok {
		t.Error("removed client still received a broadcast")
	}

	// Double removal is harmless.
	h.removeClient(c)
}

func TestHub_LateJoinerGetsCurrentLocation(t *testing.T) {
	r := relay.New(relay.Options{})
	h := NewHub(r)
	c := newTestClient(h, 4)

	if err := r.Set("j1", relay.Sample{Lat: 12.9, Lng: 77.5, ClientTimestamp: time.Now()}); err != nil {
		t.Fatalf("relay Set failed: %v", err)
	}

	data, _ := json.Marshal(map[string]string{"job_id": "j1"})
	if err := c.handleMessage(envelope{Event: eventJobSubscribe, Data: data}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	env := receive(t, c)
	if env.Event != eventLocation {
		t.Errorf("expected %s snapshot on subscribe, got %s", eventLocation, env.Event)
	}
}

func TestHub_LocationUpdateFansOutToRoom(t *testing.T) {
	r := relay.New(relay.Options{})
	h := NewHub(r)
	driver := newTestClient(h, 4)
	watcher := newTestClient(h, 4)

	h.joinRoom("j1", watcher)

	payload, _ := json.Marshal(map[string]any{
		"job_id":    "j1",
		"lat":       12.9,
		"lng":       77.5,
		"timestamp": time.Now().UnixMilli(),
	})
	if err := driver.handleMessage(envelope{Event: eventLocationUpdate, Data: payload}); err != nil {
		t.Fatalf("location update failed: %v", err)
	}

	env := receive(t, watcher)
	if env.Event != eventLocation {
		t.Errorf("expected %s, got %s", eventLocation, env.Event)
	}

	var loc struct {
		JobID      string `json:"job_id"`
		ReceivedAt int64  `json:"received_at"`
	}
	if err := json.Unmarshal(env.Data, &loc); err != nil {
		t.Fatalf("malformed location payload: %v", err)
	}
	if loc.JobID != "j1" {
		t.Errorf("expected job j1, got %s", loc.JobID)
	}
	if loc.ReceivedAt == 0 {
		t.Error("expected server receive timestamp on fanout")
	}

	if _, ok := r.Get("j1"); !ok {
		t.Error("sample should be stored in the relay")
	}
}

func TestHub_StaleLocationUpdateRejected(t *testing.T) {
	r := relay.New(relay.Options{StaleThreshold: 30 * time.Second})
	h := NewHub(r)
	driver := newTestClient(h, 4)
	watcher := newTestClient(h, 4)
	h.joinRoom("j1", watcher)

	payload, _ := json.Marshal(map[string]any{
		"job_id":    "j1",
		"lat":       12.9,
		"lng":       77.5,
		"timestamp": time.Now().Add(-time.Minute).UnixMilli(),
	})

	if err := driver.handleMessage(envelope{Event: eventLocationUpdate, Data: payload}); err == nil {
		t.Fatal("expected stale sample rejection")
	}
	if len(watcher.send) != 0 {
		t.Error("stale sample must not be fanned out")
	}
	if _, ok := r.Get("j1"); ok {
		t.Error("stale sample must not be stored")
	}
}
