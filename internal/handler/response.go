package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"treasury/internal/treasury"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// serviceError maps the treasury error taxonomy onto HTTP statuses so every
// rejection surfaces its kind, not a generic 500.
func serviceError(c *gin.Context, err error) {
	var te *treasury.Error
	if errors.As(err, &te) {
		status := http.StatusInternalServerError
		switch te.Kind {
		case treasury.KindValidation:
			status = http.StatusBadRequest
		case treasury.KindAuthorization:
			status = http.StatusForbidden
		case treasury.KindState:
			status = http.StatusConflict
		case treasury.KindInsufficientFunds:
			status = http.StatusUnprocessableEntity
		}
		Error(c, status, te.Msg, map[string]any{"kind": te.Kind.String(), "op": te.Op})
		return
	}
	Error(c, http.StatusBadGateway, err.Error(), nil)
}
