package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tallybridge/internal/observability/logger"
	synclogdomain "github.com/smallbiznis/tallybridge/internal/synclog/domain"
	"go.uber.org/zap"
)

type tallyStatus struct {
	Connected    bool   `json:"connected"`
	Company      string `json:"company"`
	SalesAccount string `json:"salesAccount"`
	Message      string `json:"message,omitempty"`
}

// GetTallyStatus probes the Tally gateway. An unreachable Tally is a
// normal answer here, not an error.
func (s *Server) GetTallyStatus(c *gin.Context) {
	ctx := c.Request.Context()
	status := tallyStatus{
		Company:      s.gateway.Company(),
		SalesAccount: s.gateway.SalesAccount(),
	}

	if err := s.gateway.Ping(ctx); err != nil {
		logger.WithContext(ctx, s.log).Warn("tally probe failed", zap.Error(err))
		status.Message = err.Error()
		respond(c, "Tally is not reachable", status)
		return
	}

	status.Connected = true
	status.SalesAccount = s.gateway.FindSalesAccount(ctx)
	respond(c, "Tally is reachable", status)
}

func (s *Server) EnsureSalesLedger(c *gin.Context) {
	res, err := s.gateway.EnsureSalesLedger(c.Request.Context())
	if err != nil {
		logger.WithContext(c.Request.Context(), s.log).Warn("ensure sales ledger failed", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": res.Success,
		"message": res.Message,
		"data":    res,
	})
}

func (s *Server) ListSyncLogs(c *gin.Context) {
	var req synclogdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.syncLogSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, "", resp)
}

func (s *Server) GetDashboardStats(c *gin.Context) {
	stats, err := s.dashboardSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, "", stats)
}
