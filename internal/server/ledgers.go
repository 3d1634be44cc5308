package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/tallybridge/internal/ledger/domain"
	"github.com/smallbiznis/tallybridge/internal/observability/logger"
	"github.com/smallbiznis/tallybridge/internal/tally/transport"
	"go.uber.org/zap"
)

func (s *Server) CreateLedger(c *gin.Context) {
	var req ledgerdomain.CreateLedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.ledgerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, "Ledger created successfully", resp)
}

func (s *Server) DeleteLedger(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.ledgerSvc.Delete(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": resp.Message,
		"details": resp.Details,
	})
}

// SyncLedgers pulls the ledger list from Tally. Tally being unreachable or
// failing is reported with success=false and a 200; only local store
// failures are a 500.
func (s *Server) SyncLedgers(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := s.ledgerSvc.SyncFromTally(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		if transport.KindOf(err) != "" {
			status = http.StatusOK
			logger.WithContext(ctx, s.log).Warn("ledger sync from tally failed", zap.Error(err))
		} else {
			logger.WithContext(ctx, s.log).Error("ledger sync failed", zap.Error(err))
		}
		c.JSON(status, gin.H{
			"success": false,
			"message": fmt.Sprintf("Failed to sync ledgers: %s", err.Error()),
			"count":   resp.Count,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Successfully synced %d ledgers from Tally", resp.Count),
		"count":   resp.Count,
	})
}

func (s *Server) GetLedger(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ledger, err := s.ledgerSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, "", ledger)
}

func (s *Server) ListLedgers(c *gin.Context) {
	var req ledgerdomain.ListLedgerRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.Search = strings.TrimSpace(req.Search)

	resp, err := s.ledgerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, "", resp)
}
