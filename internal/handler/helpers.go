package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"treasury/internal/auth"
	"treasury/internal/treasury"
)

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func strQueryPtr(c *gin.Context, key string) *string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return &v
	}
	return nil
}

func timeQueryPtr(c *gin.Context, key string) *time.Time {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	}
	return nil
}

func uintParam(c *gin.Context, key string) (uint64, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(c.Param(key)), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func boolPtr(v bool) *bool { return &v }

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	hasNext := int64(offset+limit) < total
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": hasNext,
	}
}

// actor pulls the authenticated actor off the context; requests that made it
// past the auth middleware always carry one.
func actor(c *gin.Context) (treasury.Actor, bool) {
	a, ok := auth.ActorFromContext(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "missing identity", nil)
		return treasury.Actor{}, false
	}
	return a, true
}
