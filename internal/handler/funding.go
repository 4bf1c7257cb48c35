package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"treasury/internal/treasury"
)

// FundingHandler manages the dependent external accounts the treasury keeps
// topped up, plus the manual sweep trigger.
type FundingHandler struct {
	Service *treasury.Service
}

func (h *FundingHandler) Register(r gin.IRoutes) {
	r.GET("/funding/targets", h.list)
	r.GET("/funding/targets/:address", h.get)
	r.PUT("/funding/targets/:address", h.configure)
	r.POST("/funding/targets/:address/check", h.check)
	r.POST("/funding/sweep", h.sweep)
}

func (h *FundingHandler) list(c *gin.Context) {
	items, err := h.Service.FundingTargets(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *FundingHandler) get(c *gin.Context) {
	address := strings.TrimSpace(c.Param("address"))
	target, err := h.Service.FundingTarget(c.Request.Context(), address)
	if err != nil {
		serviceError(c, err)
		return
	}
	if target == nil {
		Error(c, http.StatusNotFound, "funding target not found", nil)
		return
	}
	Ok(c, target, nil)
}

type configureFundingRequest struct {
	Category           string          `json:"category"`
	Amount             decimal.Decimal `json:"amount"`
	FrequencySeconds   int64           `json:"frequency_seconds"`
	MinimumBalance     decimal.Decimal `json:"minimum_balance"`
	AutoFundingEnabled bool            `json:"auto_funding_enabled"`
}

func (h *FundingHandler) configure(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	var req configureFundingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	target, err := h.Service.ConfigureFundingTarget(c.Request.Context(), a, treasury.FundingTargetConfig{
		Address:            address,
		Category:           req.Category,
		Amount:             req.Amount,
		Frequency:          time.Duration(req.FrequencySeconds) * time.Second,
		MinimumBalance:     req.MinimumBalance,
		AutoFundingEnabled: req.AutoFundingEnabled,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, target, nil)
}

func (h *FundingHandler) check(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	funded, err := h.Service.CheckAndFund(c.Request.Context(), a, address)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, gin.H{"funded": funded}, nil)
}

func (h *FundingHandler) sweep(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	funded, err := h.Service.TriggerAll(c.Request.Context(), a)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, gin.H{"funded": funded}, nil)
}
