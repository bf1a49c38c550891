package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bakery-backend/internal/domain"
)

const cookieMaxAge = 7 * 24 * 3600

func (s *Server) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("token", token, maxAge, "/", "", s.cfg.Env == "prod", true)
}

type registerReq struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		failJSON(c, http.StatusBadRequest, "Name, email, and password are required")
		return
	}
	u, token, err := s.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.setSessionCookie(c, token, cookieMaxAge)
	c.JSON(http.StatusCreated, gin.H{"success": true, "token": token, "user": u})
}

type loginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		failJSON(c, http.StatusBadRequest, "Email and password are required")
		return
	}
	u, token, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.setSessionCookie(c, token, cookieMaxAge)
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": u})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

func (s *Server) handleIsAuth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "role": actor(c).Role})
}

func (s *Server) handleSendVerifyOTP(c *gin.Context) {
	if err := s.auth.SendVerifyOTP(c.Request.Context(), actor(c).UserID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Verification OTP sent on email"})
}

func (s *Server) handleVerifyAccount(c *gin.Context) {
	var req struct {
		OTP string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failJSON(c, http.StatusBadRequest, "OTP is required")
		return
	}
	if err := s.auth.VerifyEmail(c.Request.Context(), actor(c).UserID, req.OTP); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email verified successfully"})
}

func (s *Server) handleSendResetOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failJSON(c, http.StatusBadRequest, "Email is required")
		return
	}
	if err := s.auth.SendResetOTP(c.Request.Context(), req.Email); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "OTP sent to your email"})
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		OTP         string `json:"otp" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failJSON(c, http.StatusBadRequest, "Email, OTP, and new password are required")
		return
	}
	if err := s.auth.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password has been reset successfully"})
}
