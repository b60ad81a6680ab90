package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleet/internal/domain"
	"fleet/internal/repository"
	"fleet/internal/service"
)

// AdminHandler handles HTTP requests for trip administration.
type AdminHandler struct {
	tripService *service.TripService
	checkRepo   repository.ActivationCheckRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(tripService *service.TripService, checkRepo repository.ActivationCheckRepository) *AdminHandler {
	return &AdminHandler{tripService: tripService, checkRepo: checkRepo}
}

// CreateTrip handles POST /v1/admin/trips
func (h *AdminHandler) CreateTrip(c *gin.Context) {
	var req service.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTripResponse(trip))
}

// ListTrips handles GET /v1/admin/trips?status=SCHEDULED
func (h *AdminHandler) ListTrips(c *gin.Context) {
	status := domain.TripStatus(c.DefaultQuery("status", string(domain.TripStatusScheduled)))

	trips, err := h.tripService.ListTripsByStatus(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		resp = append(resp, toTripResponse(trip))
	}
	respondJSON(c, http.StatusOK, resp)
}

// UpdateTrip handles PUT /v1/admin/trips/:id
func (h *AdminHandler) UpdateTrip(c *gin.Context) {
	var req service.UpdateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	req.TripID = c.Param("id")

	trip, err := h.tripService.UpdateTrip(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// DeleteTrip handles DELETE /v1/admin/trips/:id
func (h *AdminHandler) DeleteTrip(c *gin.Context) {
	if err := h.tripService.DeleteTrip(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"deleted": true})
}

// CancelTrip handles POST /v1/admin/trips/:id/cancel
func (h *AdminHandler) CancelTrip(c *gin.Context) {
	if err := h.tripService.CancelTrip(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": string(domain.TripStatusCancelled)})
}

// ForceClose handles POST /v1/admin/trips/:id/force-close
func (h *AdminHandler) ForceClose(c *gin.Context) {
	result, err := h.tripService.ForceClose(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"trip":    toTripResponse(result.Trip),
		"finance": result.Finance,
	})
}

// emergencyTerminateRequest is the body for admin emergency terminations.
type emergencyTerminateRequest struct {
	AdminID string `json:"admin_id" binding:"required"`
}

// EmergencyTerminate handles POST /v1/admin/trips/:id/emergency-terminate
func (h *AdminHandler) EmergencyTerminate(c *gin.Context) {
	var req emergencyTerminateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.tripService.AdminEmergencyTerminate(c.Request.Context(), c.Param("id"), req.AdminID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"trip":    toTripResponse(result.Trip),
		"finance": result.Finance,
	})
}

// ListActivationChecks handles GET /v1/admin/trips/:id/activation-checks
func (h *AdminHandler) ListActivationChecks(c *gin.Context) {
	tripID := c.Param("id")

	if _, err := h.tripService.GetTrip(c.Request.Context(), tripID); err != nil {
		respondError(c, err)
		return
	}

	checks, err := h.checkRepo.ListByTripID(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	type entry struct {
		CaptainID       string  `json:"captain_id"`
		WithinProximity bool    `json:"within_proximity"`
		OnTime          bool    `json:"on_time"`
		Activated       bool    `json:"activated"`
		Latitude        float64 `json:"latitude"`
		Longitude       float64 `json:"longitude"`
		Distance        float64 `json:"distance_to_first_point"`
		CreatedAt       string  `json:"created_at"`
	}
	resp := make([]entry, 0, len(checks))
	for _, check := range checks {
		resp = append(resp, entry{
			CaptainID:       check.CaptainID,
			WithinProximity: check.WasWithinProximity,
			OnTime:          check.WasOnTime,
			Activated:       check.Activated,
			Latitude:        check.CaptainLatitude,
			Longitude:       check.CaptainLongitude,
			Distance:        check.DistanceToFirstPoint,
			CreatedAt:       check.CreatedAt.Format(time.RFC3339),
		})
	}
	respondJSON(c, http.StatusOK, resp)
}
