package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/relay"
	"dispatch/internal/service"
)

// LocationHandler is the HTTP fallback for the live-location relay, used by
// clients without a WebSocket connection. Writes and reads hit the same
// in-memory store as the socket path.
type LocationHandler struct {
	relay       *relay.Relay
	broadcaster service.Broadcaster
}

// NewLocationHandler creates a new LocationHandler. broadcaster may be nil;
// HTTP writes then skip the room fanout.
func NewLocationHandler(locationRelay *relay.Relay, broadcaster service.Broadcaster) *LocationHandler {
	return &LocationHandler{relay: locationRelay, broadcaster: broadcaster}
}

// UpdateLiveLocationRequest is the HTTP request body for a position report.
type UpdateLiveLocationRequest struct {
	JobID     string  `json:"job_id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Bearing   float64 `json:"bearing,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
	Timestamp int64   `json:"timestamp"` // unix millis from the device clock
}

// LiveLocationResponse is the HTTP representation of a live position.
type LiveLocationResponse struct {
	JobID      string  `json:"job_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Bearing    float64 `json:"bearing"`
	Speed      float64 `json:"speed"`
	Timestamp  int64   `json:"timestamp"`
	ReceivedAt int64   `json:"received_at"`
}

// Update handles POST /driver/location
func (h *LocationHandler) Update(c *gin.Context) {
	var req UpdateLiveLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.JobID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "job_id is required"})
		return
	}

	sample := relay.Sample{
		Lat:             req.Lat,
		Lng:             req.Lng,
		Bearing:         req.Bearing,
		Speed:           req.Speed,
		ClientTimestamp: time.UnixMilli(req.Timestamp),
	}

	if err := h.relay.Set(req.JobID, sample); err != nil {
		respondError(c, err)
		return
	}

	stored, ok := h.relay.Get(req.JobID)
	if !ok {
		// Stored a moment ago; only a concurrent removal can race this.
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no live location for job"})
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastToJob(req.JobID, "driver:location", map[string]any{
			"job_id":      stored.JobID,
			"lat":         stored.Lat,
			"lng":         stored.Lng,
			"bearing":     stored.Bearing,
			"speed":       stored.Speed,
			"timestamp":   stored.ClientTimestamp.UnixMilli(),
			"received_at": stored.ServerReceivedAt.UnixMilli(),
		})
	}

	respondJSON(c, http.StatusOK, LiveLocationResponse{
		JobID:      stored.JobID,
		Lat:        stored.Lat,
		Lng:        stored.Lng,
		Bearing:    stored.Bearing,
		Speed:      stored.Speed,
		Timestamp:  stored.ClientTimestamp.UnixMilli(),
		ReceivedAt: stored.ServerReceivedAt.UnixMilli(),
	})
}

// Get handles GET /driver/location/:jobID
func (h *LocationHandler) Get(c *gin.Context) {
	sample, ok := h.relay.Get(c.Param("jobID"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no live location for job"})
		return
	}

	respondJSON(c, http.StatusOK, LiveLocationResponse{
		JobID:      sample.JobID,
		Lat:        sample.Lat,
		Lng:        sample.Lng,
		Bearing:    sample.Bearing,
		Speed:      sample.Speed,
		Timestamp:  sample.ClientTimestamp.UnixMilli(),
		ReceivedAt: sample.ServerReceivedAt.UnixMilli(),
	})
}

// Remove handles DELETE /driver/location/:jobID
func (h *LocationHandler) Remove(c *gin.Context) {
	h.relay.Remove(c.Param("jobID"))
	c.Status(http.StatusNoContent)
}
