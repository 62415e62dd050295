package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
)

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryDefault(c *gin.Context, key string, def bool) bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

func uint64Param(c *gin.Context, key string) uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(c.Param(key)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// dateQuery parses a YYYY-MM-DD query value. Missing values return def;
// malformed ones return ok=false.
func dateQuery(c *gin.Context, key string, def time.Time) (time.Time, bool) {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return def, true
	}
	d, err := calendar.ParseDay(val)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func parseDayPtr(val string) (*time.Time, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil, nil
	}
	d, err := calendar.ParseDay(val)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatDayPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return calendar.DayKey(*t)
}

func paginationMeta(limit, offset, count int) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"count":    count,
		"has_next": limit > 0 && count == limit,
	}
}
