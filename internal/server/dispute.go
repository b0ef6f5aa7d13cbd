package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	disputedomain "github.com/openhaul/tripbook/internal/dispute/domain"
	tripdomain "github.com/openhaul/tripbook/internal/trip/domain"
)

type openDisputeRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) OpenDispute(c *gin.Context) {
	actor, err := actorFromHeaders(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	tripID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, tripdomain.ErrNotFound)
		return
	}

	var req openDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dispute, err := s.disputeSvc.Open(c.Request.Context(), disputedomain.OpenDisputeRequest{
		TripID:       tripID,
		Reason:       req.Reason,
		RaisedBy:     actor.ID,
		RaisedByRole: actor.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

func (s *Server) ListTripDisputes(c *gin.Context) {
	tripID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, tripdomain.ErrNotFound)
		return
	}

	disputes, err := s.disputeSvc.ListByTrip(c.Request.Context(), tripID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": disputes})
}

type resolveDisputeRequest struct {
	Resolution string `json:"resolution"`
}

func (s *Server) ResolveDispute(c *gin.Context) {
	actor, err := actorFromHeaders(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	disputeID, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, disputedomain.ErrNotFound)
		return
	}

	var req resolveDisputeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	dispute, err := s.disputeSvc.Resolve(c.Request.Context(), disputedomain.ResolveDisputeRequest{
		DisputeID:      disputeID,
		Resolution:     req.Resolution,
		ResolvedBy:     actor.ID,
		ResolvedByRole: actor.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}
