package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bakery-backend/internal/domain"
)

const actorKey = "actor"

// requireAuth resolves the session token (httpOnly cookie, with an
// Authorization bearer fallback for API clients) into the acting identity.
func (s *Server) requireAuth(c *gin.Context) {
	token, err := c.Cookie("token")
	if err != nil || token == "" {
		h := c.GetHeader("Authorization")
		if strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if token == "" {
		failJSON(c, http.StatusUnauthorized, "Not authorized. Login again")
		return
	}
	actor, err := s.auth.Verify(token)
	if err != nil {
		failJSON(c, http.StatusUnauthorized, "Not authorized. Login again")
		return
	}
	c.Set(actorKey, actor)
	c.Next()
}

func (s *Server) requireAdmin(c *gin.Context) {
	if actor(c).Role != domain.RoleAdmin {
		failJSON(c, http.StatusForbidden, "Not authorized")
		return
	}
	c.Next()
}

func actor(c *gin.Context) domain.Actor {
	v, _ := c.Get(actorKey)
	a, _ := v.(domain.Actor)
	return a
}
