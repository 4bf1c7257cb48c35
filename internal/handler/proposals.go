package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"treasury/internal/repository"
	"treasury/internal/treasury"
)

// ProposalHandler drives the withdrawal approval/timelock state machine over
// HTTP: propose, approve, cancel, execute, and the read side.
type ProposalHandler struct {
	Service *treasury.Service
}

func (h *ProposalHandler) Register(r gin.IRoutes) {
	r.POST("/proposals", h.create)
	r.GET("/proposals", h.list)
	r.GET("/proposals/:id", h.get)
	r.POST("/proposals/:id/approvals", h.approve)
	r.POST("/proposals/:id/cancel", h.cancel)
	r.POST("/proposals/:id/execute", h.execute)
}

type createProposalRequest struct {
	Recipient   string          `json:"recipient"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

func (h *ProposalHandler) create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req createProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	proposal, err := h.Service.Propose(c.Request.Context(), a, treasury.ProposalRequest{
		Recipient:   req.Recipient,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, proposal, nil)
}

func (h *ProposalHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListProposalsParams{
		Limit:    limit,
		Offset:   offset,
		Status:   strQueryPtr(c, "status"),
		Category: strQueryPtr(c, "category"),
		Source:   strQueryPtr(c, "source"),
		Kind:     strQueryPtr(c, "kind"),
		OrderBy:  "created_at",
		Asc:      boolPtr(false),
	}
	items, total, err := h.Service.Proposals(c.Request.Context(), params)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *ProposalHandler) get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	proposal, err := h.Service.Proposal(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	if proposal == nil {
		Error(c, http.StatusNotFound, "proposal not found", nil)
		return
	}
	Ok(c, proposal, nil)
}

func (h *ProposalHandler) approve(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	proposal, err := h.Service.Approve(c.Request.Context(), a, id)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, proposal, nil)
}

func (h *ProposalHandler) cancel(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	proposal, err := h.Service.Cancel(c.Request.Context(), a, id)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, proposal, nil)
}

func (h *ProposalHandler) execute(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	proposal, err := h.Service.Execute(c.Request.Context(), a, id)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, proposal, nil)
}
