package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	agentdomain "github.com/openhaul/tripbook/internal/agent/domain"
	"github.com/openhaul/tripbook/pkg/db/pagination"
)

type createAgentRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

func (s *Server) CreateAgent(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	agent, err := s.agentSvc.Create(c.Request.Context(), agentdomain.CreateAgentRequest{
		Name:  req.Name,
		Phone: req.Phone,
		Role:  req.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, agent)
}

func (s *Server) GetAgent(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, agentdomain.ErrNotFound)
		return
	}

	agent, err := s.agentSvc.FindByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, agent)
}

type listAgentsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	Role      string `form:"role"`
}

func (s *Server) ListAgents(c *gin.Context) {
	var query listAgentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.agentSvc.List(c.Request.Context(), agentdomain.ListAgentRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Role: strings.TrimSpace(query.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Agents, "page_info": resp.PageInfo})
}

// GetAgentLedger returns the agent's full statement with the canonical
// folded balance.
func (s *Server) GetAgentLedger(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, agentdomain.ErrNotFound)
		return
	}

	if _, err := s.agentSvc.FindByID(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.ledgerSvc.EntriesForAgent(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	balance, err := s.ledgerSvc.BalanceForAgent(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"agent_id": id.String(),
		"balance":  balance,
		"entries":  entries,
	})
}

func (s *Server) GetAgentBalance(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, agentdomain.ErrNotFound)
		return
	}

	if _, err := s.agentSvc.FindByID(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.ledgerSvc.BalanceForAgent(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"agent_id": id.String(), "balance": balance})
}
