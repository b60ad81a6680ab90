package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleet/internal/domain"
	"fleet/internal/service"
)

// TripHandler handles HTTP requests for the captain-facing trip lifecycle.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// TripResponse is the HTTP representation of a scheduled trip.
type TripResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	TripDate          string          `json:"trip_date"`
	ScheduledTime     string          `json:"scheduled_time"`
	TripType          string          `json:"trip_type"`
	Status            string          `json:"status"`
	Price             float64         `json:"price"`
	AssignedCaptainID string          `json:"assigned_captain_id,omitempty"`
	CompanyID         string          `json:"company_id,omitempty"`
	FinancialRule     string          `json:"financial_rule,omitempty"`
	NetAmount         float64         `json:"net_amount,omitempty"`
	FinancialStatus   string          `json:"financial_status,omitempty"`
	Points            []PointResponse `json:"points,omitempty"`
}

// PointResponse is the HTTP representation of a checkpoint.
type PointResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Order        int     `json:"order"`
	IsFinalPoint bool    `json:"is_final_point"`
	ExpectedTime string  `json:"expected_time,omitempty"`
	ReachedAt    string  `json:"reached_at,omitempty"`
}

func toTripResponse(trip *domain.ScheduledTrip) TripResponse {
	resp := TripResponse{
		ID:                trip.ID,
		Name:              trip.Name,
		TripDate:          trip.TripDate.Format("2006-01-02"),
		ScheduledTime:     trip.ScheduledTime.Format(time.RFC3339),
		TripType:          string(trip.TripType),
		Status:            string(trip.Status),
		Price:             trip.Price,
		AssignedCaptainID: trip.AssignedCaptainID,
		CompanyID:         trip.CompanyID,
		FinancialRule:     string(trip.FinancialRule),
		NetAmount:         trip.NetAmount,
		FinancialStatus:   string(trip.FinancialStatus),
	}
	for _, p := range trip.Points {
		pr := PointResponse{
			ID:           p.ID,
			Name:         p.Name,
			Latitude:     p.Latitude,
			Longitude:    p.Longitude,
			Order:        p.Order,
			IsFinalPoint: p.IsFinalPoint,
		}
		if !p.ExpectedTime.IsZero() {
			pr.ExpectedTime = p.ExpectedTime.Format(time.RFC3339)
		}
		if !p.ReachedAt.IsZero() {
			pr.ReachedAt = p.ReachedAt.Format(time.RFC3339)
		}
		resp.Points = append(resp.Points, pr)
	}
	return resp
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// GetTripProgress handles GET /v1/trips/:id/progress
func (h *TripHandler) GetTripProgress(c *gin.Context) {
	tripID := c.Param("id")

	if _, err := h.tripService.GetTrip(c.Request.Context(), tripID); err != nil {
		respondError(c, err)
		return
	}

	progress, err := h.tripService.GetTripProgress(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}
	if progress == nil {
		respondJSON(c, http.StatusOK, gin.H{"started": false})
		return
	}

	resp := gin.H{
		"started":              true,
		"current_point_index":  progress.CurrentPointIndex,
		"started_at":           progress.StartedAt.Format(time.RFC3339),
		"last_latitude":        progress.LastLatitude,
		"last_longitude":       progress.LastLongitude,
		"last_location_update": progress.LastLocationUpdate.Format(time.RFC3339),
	}
	if !progress.CompletedAt.IsZero() {
		resp["completed_at"] = progress.CompletedAt.Format(time.RFC3339)
	}
	respondJSON(c, http.StatusOK, resp)
}

// StartTrip handles POST /v1/trips/:id/start
func (h *TripHandler) StartTrip(c *gin.Context) {
	var req service.StartTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	req.TripID = c.Param("id")

	result, err := h.tripService.StartTrip(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"trip":       toTripResponse(result.Trip),
		"activation": result.Activation,
		"progress": gin.H{
			"current_point_index": result.Progress.CurrentPointIndex,
			"started_at":          result.Progress.StartedAt.Format(time.RFC3339),
		},
	})
}

// CheckpointReached handles POST /v1/trips/progress
func (h *TripHandler) CheckpointReached(c *gin.Context) {
	var req service.CheckpointReachedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.tripService.CheckpointReached(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"point_id":  result.Point.ID,
		"order":     result.Point.Order,
		"completed": result.Completed,
	}
	if result.Timing != nil {
		resp["timing"] = result.Timing
	}
	if result.Finance != nil {
		resp["finance"] = result.Finance
	}
	respondJSON(c, http.StatusOK, resp)
}

// EmergencyTerminate handles POST /v1/trips/:id/emergency-terminate
func (h *TripHandler) EmergencyTerminate(c *gin.Context) {
	var req service.EmergencyTerminateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	req.TripID = c.Param("id")

	result, err := h.tripService.EmergencyTerminate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"trip":    toTripResponse(result.Trip),
		"finance": result.Finance,
	})
}
