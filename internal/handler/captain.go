package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleet/internal/domain"
	"fleet/internal/service"
)

// CaptainHandler handles HTTP requests for captains.
type CaptainHandler struct {
	captainService *service.CaptainService
}

// NewCaptainHandler creates a new CaptainHandler.
func NewCaptainHandler(captainService *service.CaptainService) *CaptainHandler {
	return &CaptainHandler{captainService: captainService}
}

// CaptainResponse is the HTTP representation of a captain.
type CaptainResponse struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Phone                string  `json:"phone"`
	Status               string  `json:"status"`
	TotalEarning         float64 `json:"total_earning"`
	ScheduledTripBalance float64 `json:"scheduled_trip_balance"`
}

func toCaptainResponse(captain *domain.Captain) CaptainResponse {
	return CaptainResponse{
		ID:                   captain.ID,
		Name:                 captain.Name,
		Phone:                captain.Phone,
		Status:               string(captain.Status),
		TotalEarning:         captain.TotalEarning,
		ScheduledTripBalance: captain.ScheduledTripBalance,
	}
}

// Register handles POST /v1/captains/register
func (h *CaptainHandler) Register(c *gin.Context) {
	var req service.RegisterCaptainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}

	captain, err := h.captainService.RegisterCaptain(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toCaptainResponse(captain))
}

// GetCaptain handles GET /v1/captains/:id
func (h *CaptainHandler) GetCaptain(c *gin.Context) {
	captain, err := h.captainService.GetCaptain(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toCaptainResponse(captain))
}

// statusRequest is the body for status updates.
type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus handles PUT /v1/captains/:id/status
func (h *CaptainHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}

	err := h.captainService.SetStatus(c.Request.Context(), c.Param("id"), domain.CaptainStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": req.Status})
}

// UpdateLocation handles POST /v1/captains/:id/location
func (h *CaptainHandler) UpdateLocation(c *gin.Context) {
	var req service.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	req.CaptainID = c.Param("id")

	result, err := h.captainService.UpdateLocation(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, result)
}

// GetLedger handles GET /v1/captains/:id/ledger
func (h *CaptainHandler) GetLedger(c *gin.Context) {
	ledgers, err := h.captainService.GetLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	type entry struct {
		TripID       string  `json:"trip_id"`
		Rule         string  `json:"rule"`
		BaseAmount   float64 `json:"base_amount"`
		NetAmount    float64 `json:"net_amount"`
		StatusAtCalc string  `json:"status_at_calculation"`
		CalculatedAt string  `json:"calculated_at"`
	}
	resp := make([]entry, 0, len(ledgers))
	for _, l := range ledgers {
		resp = append(resp, entry{
			TripID:       l.TripID,
			Rule:         string(l.Rule),
			BaseAmount:   l.BaseAmount,
			NetAmount:    l.NetAmount,
			StatusAtCalc: string(l.StatusAtCalculation),
			CalculatedAt: l.CalculatedAt.Format(time.RFC3339),
		})
	}
	respondJSON(c, http.StatusOK, resp)
}
