package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"treasury/internal/treasury"
)

// TreasuryHandler exposes the allocation ledger: balance, per-category
// allocations, deposits, reserve/release, and rebalancing.
type TreasuryHandler struct {
	Service *treasury.Service
}

func (h *TreasuryHandler) Register(r gin.IRoutes) {
	r.GET("/treasury/balance", h.balance)
	r.GET("/treasury/allocations", h.listAllocations)
	r.GET("/treasury/allocations/:category", h.getAllocation)
	r.PUT("/treasury/allocations", h.putAllocationConfig)
	r.POST("/treasury/deposits", h.deposit)
	r.POST("/treasury/reservations", h.reserve)
	r.POST("/treasury/releases", h.release)
	r.POST("/treasury/rebalances", h.rebalance)
}

func (h *TreasuryHandler) balance(c *gin.Context) {
	balance, err := h.Service.Balance(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, gin.H{"balance": balance, "paused": h.Service.Paused()}, nil)
}

func (h *TreasuryHandler) listAllocations(c *gin.Context) {
	items, err := h.Service.Allocations(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *TreasuryHandler) getAllocation(c *gin.Context) {
	name := strings.TrimSpace(c.Param("category"))
	item, err := h.Service.Allocation(c.Request.Context(), name)
	if err != nil {
		serviceError(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "category not found", nil)
		return
	}
	Ok(c, item, nil)
}

type putAllocationConfigRequest struct {
	AllocationBps map[string]int64 `json:"allocation_bps"`
}

func (h *TreasuryHandler) putAllocationConfig(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req putAllocationConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Service.ApplyAllocationConfig(c.Request.Context(), a, req.AllocationBps); err != nil {
		serviceError(c, err)
		return
	}
	items, err := h.Service.Allocations(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, nil)
}

type depositRequest struct {
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (h *TreasuryHandler) deposit(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Service.Deposit(c.Request.Context(), a, req.Category, req.Amount, req.Description); err != nil {
		serviceError(c, err)
		return
	}
	balance, err := h.Service.Balance(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, gin.H{"balance": balance}, nil)
}

type reserveRequest struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

func (h *TreasuryHandler) reserve(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Service.Reserve(c.Request.Context(), a, req.Category, req.Amount); err != nil {
		serviceError(c, err)
		return
	}
	h.respondAllocation(c, req.Category)
}

func (h *TreasuryHandler) release(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Service.Release(c.Request.Context(), a, req.Category, req.Amount); err != nil {
		serviceError(c, err)
		return
	}
	h.respondAllocation(c, req.Category)
}

type rebalanceRequest struct {
	FromCategory string          `json:"from_category"`
	ToCategory   string          `json:"to_category"`
	Amount       decimal.Decimal `json:"amount"`
}

func (h *TreasuryHandler) rebalance(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req rebalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Service.Rebalance(c.Request.Context(), a, req.FromCategory, req.ToCategory, req.Amount); err != nil {
		serviceError(c, err)
		return
	}
	items, err := h.Service.Allocations(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *TreasuryHandler) respondAllocation(c *gin.Context, category string) {
	item, err := h.Service.Allocation(c.Request.Context(), category)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, item, nil)
}
