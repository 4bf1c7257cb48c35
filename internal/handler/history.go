package handler

import (
	"github.com/gin-gonic/gin"

	"treasury/internal/repository"
	"treasury/internal/treasury"
)

// HistoryHandler pages through the append-only ledger log.
type HistoryHandler struct {
	Service *treasury.Service
}

func (h *HistoryHandler) Register(r gin.IRoutes) {
	r.GET("/history", h.list)
}

func (h *HistoryHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	params := repository.ListTransactionsParams{
		Limit:    limit,
		Offset:   offset,
		Since:    timeQueryPtr(c, "from"),
		Until:    timeQueryPtr(c, "to"),
		TxType:   strQueryPtr(c, "type"),
		Category: strQueryPtr(c, "category"),
	}
	items, total, err := h.Service.History(c.Request.Context(), params)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
