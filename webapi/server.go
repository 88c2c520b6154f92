// Package webapi serves the read-only browse API over the archived notices
// and ledger history. It consumes the same SQLite store the notifier writes,
// but never touches ledger state.
package webapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ticket-notifier/notifier"
)

// NewRouter wires the public read-only endpoints.
// GET /health           — liveness
// GET /tickets          — browse archived notices (source, keyword, from, to, limit)
// GET /history          — notification counters
// GET /sent             — most recently dispatched notices (limit)
func NewRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/tickets", func(c *gin.Context) {
		filter := notifier.NoticeFilter{
			Source:  c.Query("source"),
			Keyword: c.Query("keyword"),
		}
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			filter.Limit = n
		}
		var ok bool
		if filter.From, ok = parseDateParam(c, "from"); !ok {
			return
		}
		if filter.To, ok = parseDateParam(c, "to"); !ok {
			return
		}

		notices, err := notifier.GetAll(db, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(notices), "tickets": notices})
	})

	r.GET("/history", func(c *gin.Context) {
		ledger := notifier.NewLedger(db, 0, false)
		h, err := ledger.History()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(http.StatusOK, h)
	})

	r.GET("/sent", func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}
		records, err := notifier.NewLedger(db, 0, false).Recent(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(records), "sent": records})
	})

	return r
}

func parseDateParam(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be RFC3339 or YYYY-MM-DD"})
	return nil, false
}
