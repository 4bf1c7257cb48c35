package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"treasury/internal/treasury"
)

// EmergencyHandler is the only mutating surface that works while the system
// is paused.
type EmergencyHandler struct {
	Service *treasury.Service
}

func (h *EmergencyHandler) Register(r gin.IRoutes) {
	r.GET("/emergency/status", h.status)
	r.POST("/emergency/pause", h.pause)
	r.POST("/emergency/unpause", h.unpause)
	r.POST("/emergency/withdrawals", h.withdraw)
	r.POST("/emergency/recovery", h.recovery)
}

func (h *EmergencyHandler) status(c *gin.Context) {
	Ok(c, gin.H{"paused": h.Service.Paused()}, nil)
}

func (h *EmergencyHandler) pause(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.Service.Pause(c.Request.Context(), a); err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, gin.H{"paused": true}, nil)
}

func (h *EmergencyHandler) unpause(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.Service.Unpause(c.Request.Context(), a); err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, gin.H{"paused": false}, nil)
}

type emergencyWithdrawRequest struct {
	Recipient string          `json:"recipient"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

func (h *EmergencyHandler) withdraw(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req emergencyWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	proposal, err := h.Service.EmergencyWithdraw(c.Request.Context(), a, req.Recipient, req.Category, req.Amount, req.Reason)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, proposal, nil)
}

type emergencyRecoveryRequest struct {
	Recipient string `json:"recipient"`
}

func (h *EmergencyHandler) recovery(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req emergencyRecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	total, err := h.Service.EmergencyRecovery(c.Request.Context(), a, req.Recipient)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, gin.H{"recovered": total}, nil)
}
