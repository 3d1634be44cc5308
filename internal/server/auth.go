package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type issueTokenRequest struct {
	UserID   int64  `json:"user_id" binding:"required,gt=0"`
	Username string `json:"username" binding:"omitempty,max=100"`
	Role     string `json:"role" binding:"required,oneof=admin accountant analyst"`
}

// IssueToken mints a bearer token for local development. The route is not
// registered in production.
func (s *Server) IssueToken(c *gin.Context) {
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	token, expiresAt, err := s.tokens.Issue(req.UserID, strings.TrimSpace(req.Username), req.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, "", gin.H{
		"token":     token,
		"expiresAt": expiresAt.Format(time.RFC3339),
	})
}
