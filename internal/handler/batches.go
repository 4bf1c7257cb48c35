package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"treasury/internal/models"
	"treasury/internal/repository"
	"treasury/internal/treasury"
)

// BatchHandler exposes batch distributions. A created batch rides the same
// proposal machine as single withdrawals; execution goes through the
// proposal endpoints.
type BatchHandler struct {
	Service *treasury.Service
}

func (h *BatchHandler) Register(r gin.IRoutes) {
	r.POST("/batches", h.create)
	r.GET("/batches", h.list)
	r.GET("/batches/:id", h.get)
}

type createBatchRequest struct {
	Category    string                  `json:"category"`
	Description string                  `json:"description"`
	Recipients  []models.BatchRecipient `json:"recipients"`
}

func (h *BatchHandler) create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	proposal, err := h.Service.ProposeBatch(c.Request.Context(), a, treasury.BatchRequest{
		Category:    req.Category,
		Description: req.Description,
		Recipients:  req.Recipients,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, proposal, nil)
}

func (h *BatchHandler) list(c *gin.Context) {
	params := repository.ListBatchesParams{
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		Category: strQueryPtr(c, "category"),
	}
	if v := strings.TrimSpace(c.Query("executed")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			params.Executed = &b
		}
	}
	items, err := h.Service.Batches(c.Request.Context(), params)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, nil)
}

func (h *BatchHandler) get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	batch, err := h.Service.Batch(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	if batch == nil {
		Error(c, http.StatusNotFound, "batch not found", nil)
		return
	}
	Ok(c, batch, nil)
}
