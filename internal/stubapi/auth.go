package stubapi

import (
	"net/http"
	"strings"

	"github.com/ad/go-scholar-wizard/internal/apiclient"
	"github.com/ad/go-scholar-wizard/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Server) registerAuth(g *gin.RouterGroup, role models.Role) {
	g.POST("/signup", s.signup(role))
	g.POST("/login", s.login(role))
	g.POST("/verify", s.verify(role))
	g.POST("/resend-code", s.acknowledge(role, "verification code sent"))
	g.POST("/forgot-password", s.acknowledge(role, "reset code sent"))
	g.POST("/reset-password", s.resetPassword(role))
}

func accountID(role models.Role, email string) string {
	return string(role) + ":" + strings.ToLower(strings.TrimSpace(email))
}

func (s *Server) signup(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=6"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		key := accountID(role, req.Email)
		if _, exists := s.accounts[key]; exists {
			s.fail(c, http.StatusConflict, "Conflict", "account already exists")
			return
		}
		s.accounts[key] = &account{
			ID:       uuid.NewString(),
			Role:     role,
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
		}
		s.logger.Info("account created", zap.String("role", string(role)), zap.String("email", req.Email))
		c.JSON(http.StatusCreated, apiclient.MessageResponse{Message: "verification code sent"})
	}
}

func (s *Server) login(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apiclient.Credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		acc, ok := s.accounts[accountID(role, req.Email)]
		if !ok || acc.Password != req.Password {
			s.fail(c, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
			return
		}
		if !acc.Verified {
			s.fail(c, http.StatusForbidden, "Forbidden", "email not verified")
			return
		}
		c.JSON(http.StatusOK, s.issueToken(acc))
	}
}

func (s *Server) verify(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apiclient.VerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		acc, ok := s.accounts[accountID(role, req.Email)]
		if !ok {
			s.fail(c, http.StatusNotFound, "Not Found", "unknown account")
			return
		}
		if req.Code != VerificationCode {
			s.fail(c, http.StatusBadRequest, "Bad Request", "invalid code")
			return
		}
		acc.Verified = true
		c.JSON(http.StatusOK, s.issueToken(acc))
	}
}

func (s *Server) acknowledge(role models.Role, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		s.mu.Lock()
		_, ok := s.accounts[accountID(role, req.Email)]
		s.mu.Unlock()
		if !ok {
			s.fail(c, http.StatusNotFound, "Not Found", "unknown account")
			return
		}
		c.JSON(http.StatusOK, apiclient.MessageResponse{Message: message})
	}
}

func (s *Server) resetPassword(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apiclient.ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		acc, ok := s.accounts[accountID(role, req.Email)]
		if !ok {
			s.fail(c, http.StatusNotFound, "Not Found", "unknown account")
			return
		}
		if req.Code != VerificationCode || len(req.Password) < 6 {
			s.fail(c, http.StatusBadRequest, "Bad Request", "invalid code or password")
			return
		}
		acc.Password = req.Password
		c.JSON(http.StatusOK, apiclient.MessageResponse{Message: "password updated"})
	}
}

// issueToken must be called with s.mu held.
func (s *Server) issueToken(acc *account) apiclient.AuthResponse {
	token := uuid.NewString()
	s.tokens[token] = acc
	return apiclient.AuthResponse{Token: token, User: userOf(acc)}
}

func userOf(acc *account) apiclient.User {
	return apiclient.User{ID: acc.ID, Email: acc.Email, Name: acc.Name, AvatarURL: acc.Avatar}
}
