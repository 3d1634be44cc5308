package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tallybridge/internal/auth"
	obsctx "github.com/smallbiznis/tallybridge/internal/observability/context"
)

const (
	contextClaimsKey = "auth_claims"
	contextUserIDKey = "user_id"
)

// Authenticate requires a valid bearer token and puts the caller on the
// request context so services can attribute sync runs to it.
func (s *Server) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		claims, err := s.tokens.Parse(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		userID := strconv.FormatInt(claims.UserID, 10)
		ctx := obsctx.WithActor(c.Request.Context(), "user", userID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextClaimsKey, claims)
		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), claims.Subject(), claims.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func claimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	value, ok := c.Get(contextClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok && claims != nil
}
