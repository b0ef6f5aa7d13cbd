package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	tripdomain "github.com/openhaul/tripbook/internal/trip/domain"
	"github.com/openhaul/tripbook/pkg/db/pagination"
)

type createTripRequest struct {
	LRNumber   string `json:"lr_number"`
	TripNumber string `json:"trip_number"`
	AgentID    string `json:"agent_id"`
	IsBulk     bool   `json:"is_bulk"`
	Freight    any    `json:"freight"`
	Advance    any    `json:"advance"`
	Bank       string `json:"bank"`
}

func (s *Server) CreateTrip(c *gin.Context) {
	actor, err := actorFromHeaders(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	agentID, err := parseOptionalSnowflakeID(req.AgentID)
	if err != nil || agentID == nil {
		AbortWithError(c, newValidationError("agent_id", "invalid_agent_id", "invalid agent_id"))
		return
	}

	var freight, advance float64
	if !req.IsBulk {
		var ok bool
		if freight, ok = parseAmount(req.Freight); !ok || freight < 0 {
			AbortWithError(c, newValidationError("freight", "invalid_freight", "invalid freight"))
			return
		}
		if req.Advance != nil {
			if advance, ok = parseAmount(req.Advance); !ok || advance < 0 {
				AbortWithError(c, newValidationError("advance", "invalid_advance", "invalid advance"))
				return
			}
		}
	}

	trip, err := s.tripSvc.Create(c.Request.Context(), tripdomain.CreateTripRequest{
		LRNumber:   req.LRNumber,
		TripNumber: req.TripNumber,
		AgentID:    *agentID,
		IsBulk:     req.IsBulk,
		Freight:    freight,
		Advance:    advance,
		Bank:       req.Bank,
		Actor:      actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, trip)
}

func (s *Server) GetTrip(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, tripdomain.ErrNotFound)
		return
	}

	trip, err := s.tripSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

type listTripsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	AgentID   string `form:"agent_id"`
	Status    string `form:"status"`
}

func (s *Server) ListTrips(c *gin.Context) {
	var query listTripsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	agentID, err := parseOptionalSnowflakeID(query.AgentID)
	if err != nil {
		AbortWithError(c, newValidationError("agent_id", "invalid_agent_id", "invalid agent_id"))
		return
	}

	req := tripdomain.ListTripRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Status: strings.TrimSpace(query.Status),
	}
	if agentID != nil {
		req.AgentID = *agentID
	}

	resp, err := s.tripSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Trips, "page_info": resp.PageInfo})
}

type addPaymentRequest struct {
	Amount  any    `json:"amount"`
	Reason  string `json:"reason"`
	Mode    string `json:"mode"`
	Bank    string `json:"bank"`
	AgentID string `json:"agent_id"`
}

func (s *Server) AddPayment(c *gin.Context) {
	actor, err := actorFromHeaders(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, tripdomain.ErrNotFound)
		return
	}

	var req addPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "invalid amount"))
		return
	}

	payReq := tripdomain.AddPaymentRequest{
		Amount: amount,
		Reason: req.Reason,
		Mode:   req.Mode,
		Bank:   req.Bank,
		Actor:  actor,
	}
	if target, err := parseOptionalSnowflakeID(req.AgentID); err != nil {
		AbortWithError(c, newValidationError("agent_id", "invalid_agent_id", "invalid agent_id"))
		return
	} else if target != nil {
		payReq.TargetAgentID = *target
	}

	trip, err := s.tripSvc.AddPayment(c.Request.Context(), id, payReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

type updateDeductionsRequest struct {
	Cess         any     `json:"cess"`
	Kata         any     `json:"kata"`
	Expenses     any     `json:"expenses"`
	Beta         any     `json:"beta"`
	Others       any     `json:"others"`
	OthersReason *string `json:"others_reason"`
}

func (s *Server) UpdateDeductions(c *gin.Context) {
	actor, err := actorFromHeaders(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, tripdomain.ErrNotFound)
		return
	}

	var req updateDeductionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := tripdomain.DeductionUpdate{OthersReason: req.OthersReason}
	fields := []struct {
		name  string
		value any
		dst   **float64
	}{
		{"cess", req.Cess, &update.Cess},
		{"kata", req.Kata, &update.Kata},
		{"expenses", req.Expenses, &update.Expenses},
		{"beta", req.Beta, &update.Beta},
		{"others", req.Others, &update.Others},
	}
	for _, f := range fields {
		parsed, err := parseOptionalAmount(f.value)
		if err != nil || (parsed != nil && *parsed < 0) {
			AbortWithError(c, newValidationError(f.name, "invalid_"+f.name, "invalid "+f.name))
			return
		}
		*f.dst = parsed
	}

	trip, err := s.tripSvc.UpdateDeductions(c.Request.Context(), id, tripdomain.UpdateDeductionsRequest{
		Update: update,
		Actor:  actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

type closeTripRequest struct {
	ForceClose bool `json:"force_close"`
}

func (s *Server) CloseTrip(c *gin.Context) {
	actor, err := actorFromHeaders(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, tripdomain.ErrNotFound)
		return
	}

	var req closeTripRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	trip, err := s.tripSvc.Close(c.Request.Context(), id, tripdomain.CloseTripRequest{
		Actor:      actor,
		ForceClose: req.ForceClose,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

func (s *Server) DeleteTrip(c *gin.Context) {
	actor, err := actorFromHeaders(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, tripdomain.ErrNotFound)
		return
	}

	if err := s.tripSvc.Delete(c.Request.Context(), id, actor); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) AddAttachment(c *gin.Context) {
	actor, err := actorFromHeaders(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, tripdomain.ErrNotFound)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "missing_file", "missing file"))
		return
	}

	storedName := uuid.NewString() + filepath.Ext(file.Filename)
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		AbortWithError(c, err)
		return
	}
	if err := c.SaveUploadedFile(file, filepath.Join(s.cfg.UploadDir, storedName)); err != nil {
		AbortWithError(c, err)
		return
	}

	trip, err := s.tripSvc.AddAttachment(c.Request.Context(), id, tripdomain.AddAttachmentRequest{
		FileName:    filepath.Base(file.Filename),
		StoredName:  storedName,
		ContentType: file.Header.Get("Content-Type"),
		SizeBytes:   file.Size,
		Actor:       actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, trip)
}
