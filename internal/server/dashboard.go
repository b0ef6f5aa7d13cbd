package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tripdomain "github.com/openhaul/tripbook/internal/trip/domain"
)

type DashboardSummaryResponse struct {
	ActiveTrips        int64   `json:"active_trips"`
	DisputedTrips      int64   `json:"disputed_trips"`
	CompletedTrips     int64   `json:"completed_trips"`
	OpenDisputes       int64   `json:"open_disputes"`
	OutstandingBalance float64 `json:"outstanding_balance"`
}

// DashboardSummary aggregates trip counts by status, open disputes, and the
// total balance still outstanding across non-bulk active trips.
func (s *Server) DashboardSummary(c *gin.Context) {
	ctx := c.Request.Context()
	var resp DashboardSummaryResponse

	statuses := []struct {
		status tripdomain.Status
		dst    *int64
	}{
		{tripdomain.StatusActive, &resp.ActiveTrips},
		{tripdomain.StatusInDispute, &resp.DisputedTrips},
		{tripdomain.StatusCompleted, &resp.CompletedTrips},
	}
	for _, row := range statuses {
		if err := s.db.WithContext(ctx).
			Raw(`SELECT COUNT(*) FROM trips WHERE status = ?`, row.status).
			Scan(row.dst).Error; err != nil {
			AbortWithError(c, err)
			return
		}
	}

	if err := s.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM disputes WHERE status = 'open'`).
		Scan(&resp.OpenDisputes).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.db.WithContext(ctx).
		Raw(`SELECT COALESCE(SUM(balance), 0) FROM trips WHERE status != ? AND is_bulk = ?`,
			tripdomain.StatusCompleted, false).
		Scan(&resp.OutstandingBalance).Error; err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
