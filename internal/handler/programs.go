package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"treasury/internal/repository"
	"treasury/internal/treasury"
)

// ProgramHandler manages award programs and their distributions.
type ProgramHandler struct {
	Service *treasury.Service
}

func (h *ProgramHandler) Register(r gin.IRoutes) {
	r.GET("/programs", h.list)
	r.GET("/programs/:type", h.get)
	r.PUT("/programs/:type", h.configure)
	r.POST("/programs/:type/distributions", h.distribute)
	r.GET("/programs/:type/grants", h.grants)
}

func (h *ProgramHandler) list(c *gin.Context) {
	items, err := h.Service.Programs(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *ProgramHandler) get(c *gin.Context) {
	programType := strings.TrimSpace(c.Param("type"))
	program, err := h.Service.Program(c.Request.Context(), programType)
	if err != nil {
		serviceError(c, err)
		return
	}
	if program == nil {
		Error(c, http.StatusNotFound, "program not found", nil)
		return
	}
	Ok(c, program, nil)
}

type configureProgramRequest struct {
	Category        string          `json:"category"`
	TotalAllocation decimal.Decimal `json:"total_allocation"`
	VestingSeconds  int64           `json:"vesting_seconds"`
	CliffSeconds    int64           `json:"cliff_seconds"`
}

func (h *ProgramHandler) configure(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	programType := strings.TrimSpace(c.Param("type"))
	var req configureProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	program, err := h.Service.ConfigureProgram(c.Request.Context(), a, treasury.ProgramConfig{
		ProgramType:     programType,
		Category:        req.Category,
		TotalAllocation: req.TotalAllocation,
		VestingDuration: time.Duration(req.VestingSeconds) * time.Second,
		VestingCliff:    time.Duration(req.CliffSeconds) * time.Second,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, program, nil)
}

type programPayoutRequest struct {
	Beneficiary      string          `json:"beneficiary"`
	Amount           decimal.Decimal `json:"amount"`
	EngagementPoints int64           `json:"engagement_points"`
}

type distributeProgramRequest struct {
	Payouts []programPayoutRequest `json:"payouts"`
}

func (h *ProgramHandler) distribute(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	programType := strings.TrimSpace(c.Param("type"))
	var req distributeProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	payouts := make([]treasury.ProgramPayout, 0, len(req.Payouts))
	for _, p := range req.Payouts {
		payouts = append(payouts, treasury.ProgramPayout{
			Beneficiary:      p.Beneficiary,
			Amount:           p.Amount,
			EngagementPoints: p.EngagementPoints,
		})
	}
	grants, err := h.Service.DistributeProgram(c.Request.Context(), a, programType, payouts)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, grants, nil)
}

func (h *ProgramHandler) grants(c *gin.Context) {
	programType := strings.TrimSpace(c.Param("type"))
	items, err := h.Service.Grants(c.Request.Context(), repository.ListGrantsParams{
		Limit:       intQuery(c, "limit", 50),
		Offset:      intQuery(c, "offset", 0),
		ProgramType: &programType,
		Beneficiary: strQueryPtr(c, "beneficiary"),
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, nil)
}
