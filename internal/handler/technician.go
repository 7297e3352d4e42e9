package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// TechnicianHandler handles HTTP requests for technician profiles.
type TechnicianHandler struct {
	technicianService *service.TechnicianService
	jobService        *service.JobService
}

// NewTechnicianHandler creates a new TechnicianHandler.
func NewTechnicianHandler(technicianService *service.TechnicianService, jobService *service.JobService) *TechnicianHandler {
	return &TechnicianHandler{
		technicianService: technicianService,
		jobService:        jobService,
	}
}

// UpdateProfileRequest is the HTTP request body for editing a profile.
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UpdateLocationRequest is the HTTP request body for a profile location update.
type UpdateLocationRequest struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// TechnicianResponse is the HTTP representation of a technician profile.
type TechnicianResponse struct {
	UserID            string  `json:"user_id"`
	Name              string  `json:"name,omitempty"`
	Phone             string  `json:"phone,omitempty"`
	IsOnline          bool    `json:"is_online"`
	CanAcceptJobs     bool    `json:"can_accept_jobs"`
	Lat               float64 `json:"lat"`
	Lng               float64 `json:"lng"`
	LocationAddress   string  `json:"location_address,omitempty"`
	LocationUpdatedAt string  `json:"location_updated_at,omitempty"`
	Balance           float64 `json:"balance"`
	CommissionDue     float64 `json:"commission_due"`
	TodayEarnings     float64 `json:"today_earnings"`
	CompletedJobs     int     `json:"completed_jobs"`
	TotalJobs         int     `json:"total_jobs"`
	Rating            float64 `json:"rating"`
}

// NearbyTechnicianResponse is one entry of a nearby lookup.
type NearbyTechnicianResponse struct {
	TechnicianID string  `json:"technician_id"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

// GetProfile handles GET /v1/technicians/:id
func (h *TechnicianHandler) GetProfile(c *gin.Context) {
	tech, err := h.technicianService.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTechnicianResponse(tech))
}

// GetAll handles GET /v1/technicians
func (h *TechnicianHandler) GetAll(c *gin.Context) {
	techs, err := h.technicianService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]TechnicianResponse, 0, len(techs))
	for _, tech := range techs {
		responses = append(responses, toTechnicianResponse(tech))
	}
	respondJSON(c, http.StatusOK, responses)
}

// UpdateProfile handles PUT /v1/technicians/:id
func (h *TechnicianHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.technicianService.UpdateProfile(c.Request.Context(), service.UpdateProfileRequest{
		TechnicianID: c.Param("id"),
		Name:         req.Name,
		Phone:        req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GoOnline handles POST /v1/technicians/:id/online
func (h *TechnicianHandler) GoOnline(c *gin.Context) {
	if err := h.technicianService.GoOnline(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"is_online": true})
}

// GoOffline handles POST /v1/technicians/:id/offline
func (h *TechnicianHandler) GoOffline(c *gin.Context) {
	if err := h.technicianService.GoOffline(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"is_online": false})
}

// UpdateLocation handles POST /v1/technicians/:id/location
func (h *TechnicianHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.technicianService.UpdateLocation(c.Request.Context(), service.UpdateLocationRequest{
		TechnicianID: c.Param("id"),
		Lat:          req.Lat,
		Lng:          req.Lng,
		Address:      req.Address,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetNearby handles GET /v1/technicians/nearby?lat=..&lng=..&radius_km=..
func (h *TechnicianHandler) GetNearby(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng are required"})
		return
	}

	radiusKm := 5.0
	if raw := c.Query("radius_km"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			radiusKm = parsed
		}
	}

	locations, err := h.technicianService.FindNearby(c.Request.Context(), lat, lng, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]NearbyTechnicianResponse, 0, len(locations))
	for _, loc := range locations {
		responses = append(responses, NearbyTechnicianResponse{
			TechnicianID: loc.TechnicianID,
			Lat:          loc.Lat,
			Lng:          loc.Lng,
		})
	}
	respondJSON(c, http.StatusOK, responses)
}

// GetActiveJobs handles GET /v1/technicians/:id/jobs
func (h *TechnicianHandler) GetActiveJobs(c *gin.Context) {
	jobs, err := h.jobService.ActiveJobs(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toJobResponses(jobs))
}

func toTechnicianResponse(tech *domain.Technician) TechnicianResponse {
	resp := TechnicianResponse{
		UserID:          tech.UserID,
		Name:            tech.Name,
		Phone:           tech.Phone,
		IsOnline:        tech.IsOnline,
		CanAcceptJobs:   tech.CanAcceptJobs,
		Lat:             tech.Lat,
		Lng:             tech.Lng,
		LocationAddress: tech.LocationAddress,
		Balance:         tech.Wallet.Balance,
		CommissionDue:   tech.Wallet.CommissionDue,
		TodayEarnings:   tech.Stats.TodayEarnings,
		CompletedJobs:   tech.Stats.CompletedJobs,
		TotalJobs:       tech.Stats.TotalJobs,
		Rating:          tech.Stats.Rating,
	}

	if !tech.LocationUpdatedAt.IsZero() {
		resp.LocationUpdatedAt = tech.LocationUpdatedAt.Format(time.RFC3339)
	}

	return resp
}
